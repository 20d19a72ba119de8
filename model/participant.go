package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// A Participant takes part in the programs and events of the organization.
type Participant struct {
	ID               uint `gorm:"primaryKey"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
	FirstName        string `gorm:"not null"`
	LastName         string `gorm:"not null"`
	Email            string `gorm:"uniqueIndex;not null"`
	DOB              *time.Time
	Phone            string
	City             string
	State            string
	ZIP              string `gorm:"column:zip"`
	SchoolOrEmployer string
	FieldOfInterest  string
	TotalDonations   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
}

// FullName joins first and last name.
func (p *Participant) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

var participantSearch = SearchSpec{
	Columns:         []string{"first_name", "last_name", "email"},
	FirstNameColumn: "first_name",
	LastNameColumn:  "last_name",
}

// ListParticipants returns one page of participants matching q.
func (s *Store) ListParticipants(q SearchQuery) (PagedResult[Participant], error) {
	return paginate[Participant](s, BuildFilter(q.Raw, participantSearch), q, listOptions{
		Order: "last_name ASC, first_name ASC, id ASC",
	})
}

// ExportParticipants returns every participant matching raw, without paging.
func (s *Store) ExportParticipants(raw string) ([]Participant, error) {
	var rows []Participant
	err := s.db.Model(&Participant{}).
		Scopes(s.filterScope(BuildFilter(raw, participantSearch))).
		Order("last_name ASC, first_name ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

// AllParticipants is used to fill select boxes.
func (s *Store) AllParticipants() ([]Participant, error) {
	var rows []Participant
	err := s.db.Order("last_name ASC, first_name ASC, id ASC").Find(&rows).Error
	return rows, err
}

// GetParticipant loads a participant by id.
func (s *Store) GetParticipant(id uint) (*Participant, error) {
	var p Participant
	if err := s.db.First(&p, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// ParticipantEmailTaken reports whether another participant (not exceptID) uses email.
func (s *Store) ParticipantEmailTaken(email string, exceptID uint) (bool, error) {
	var n int64
	err := s.db.Model(&Participant{}).
		Where("LOWER(email) = ? AND id <> ?", NormalizeEmail(email), exceptID).
		Count(&n).Error
	return n > 0, err
}

func (p *Participant) validate() error {
	if strings.TrimSpace(p.FirstName) == "" || strings.TrimSpace(p.LastName) == "" {
		return invalid("name", "First and last name are required.")
	}
	if strings.TrimSpace(p.Email) == "" {
		return invalid("email", "Email is required.")
	}
	return nil
}

// CreateParticipant validates and inserts p.
func (s *Store) CreateParticipant(p *Participant) error {
	if err := p.validate(); err != nil {
		return err
	}
	taken, err := s.ParticipantEmailTaken(p.Email, 0)
	if err != nil {
		return err
	}
	if taken {
		return invalid("email", "A participant with this email already exists.")
	}
	return s.db.Create(p).Error
}

// UpdateParticipant writes all editable fields of p. Snapshots stored on
// registrations, surveys, milestones and donations are left alone.
func (s *Store) UpdateParticipant(p *Participant) error {
	if err := p.validate(); err != nil {
		return err
	}
	taken, err := s.ParticipantEmailTaken(p.Email, p.ID)
	if err != nil {
		return err
	}
	if taken {
		return invalid("email", "A participant with this email already exists.")
	}
	res := s.db.Model(&Participant{}).Where("id = ?", p.ID).Updates(map[string]any{
		"first_name":         p.FirstName,
		"last_name":          p.LastName,
		"email":              p.Email,
		"dob":                p.DOB,
		"phone":              p.Phone,
		"city":               p.City,
		"state":              p.State,
		"zip":                p.ZIP,
		"school_or_employer": p.SchoolOrEmployer,
		"field_of_interest":  p.FieldOfInterest,
		"total_donations":    p.TotalDonations,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteParticipant removes the participant with id.
func (s *Store) DeleteParticipant(id uint) error {
	return deleteByID[Participant](s, id)
}
