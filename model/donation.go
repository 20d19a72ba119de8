package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// A Donation is money given by a participant. ParticipantEmail is a copy
// taken when the donation is written.
type Donation struct {
	ID               uint `gorm:"primaryKey"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
	ParticipantID    uint `gorm:"not null;index"`
	Participant      Participant
	ParticipantEmail string
	Amount           decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Date             *time.Time
}

// A UserDonor is a donation entered through the public form by someone who
// is not a registered participant.
type UserDonor struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	FirstName string
	LastName  string
	Amount    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Date      *time.Time
}

// MsgAmountNotPositive is shown for donation amounts of zero or less.
const MsgAmountNotPositive = "Donation amount must be greater than $0."

// ParseAmount parses a money amount and rejects values that are not > 0.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "$"))
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, invalid("amount", MsgAmountNotPositive)
	}
	return d.Round(2), nil
}

var donationSearch = SearchSpec{
	Columns:         []string{"participants.first_name", "participants.last_name", "CAST(donations.date AS TEXT)"},
	FirstNameColumn: "participants.first_name",
	LastNameColumn:  "participants.last_name",
}

var userDonorSearch = SearchSpec{
	Columns:         []string{"first_name", "last_name"},
	FirstNameColumn: "first_name",
	LastNameColumn:  "last_name",
}

func joinDonationParticipants(tx *gorm.DB) *gorm.DB {
	return tx.Joins("JOIN participants ON participants.id = donations.participant_id")
}

// ListDonations returns one page of participant donations matching q.
func (s *Store) ListDonations(q SearchQuery) (PagedResult[Donation], error) {
	return paginate[Donation](s, BuildFilter(q.Raw, donationSearch), q, listOptions{
		Base:     joinDonationParticipants,
		Select:   "donations.*",
		Order:    "donations.date DESC, donations.id DESC",
		Preloads: []string{"Participant"},
	})
}

// ExportDonations returns every donation matching raw, without paging.
func (s *Store) ExportDonations(raw string) ([]Donation, error) {
	var rows []Donation
	err := s.db.Model(&Donation{}).
		Scopes(joinDonationParticipants, s.filterScope(BuildFilter(raw, donationSearch))).
		Select("donations.*").
		Preload("Participant").
		Order("donations.date DESC, donations.id DESC").
		Find(&rows).Error
	return rows, err
}

// GetDonation loads a donation with its participant.
func (s *Store) GetDonation(id uint) (*Donation, error) {
	var d Donation
	if err := s.db.Preload("Participant").First(&d, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return invalid("amount", MsgAmountNotPositive)
	}
	return nil
}

// CreateDonation validates and inserts d, copying the participant email.
func (s *Store) CreateDonation(d *Donation) error {
	if err := validateAmount(d.Amount); err != nil {
		return err
	}
	p, err := s.participantRef(d.ParticipantID)
	if err != nil {
		return err
	}
	d.ParticipantEmail = p.Email
	return s.db.Omit("Participant").Create(d).Error
}

// UpdateDonation rewrites the donation with d.ID and refreshes its email copy.
func (s *Store) UpdateDonation(d *Donation) error {
	if err := validateAmount(d.Amount); err != nil {
		return err
	}
	p, err := s.participantRef(d.ParticipantID)
	if err != nil {
		return err
	}
	d.ParticipantEmail = p.Email
	res := s.db.Model(&Donation{}).Where("id = ?", d.ID).Updates(map[string]any{
		"participant_id":    d.ParticipantID,
		"participant_email": d.ParticipantEmail,
		"amount":            d.Amount,
		"date":              d.Date,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteDonation removes the donation with id.
func (s *Store) DeleteDonation(id uint) error {
	return deleteByID[Donation](s, id)
}

// ListUserDonors returns one page of walk-in donors matching q.
func (s *Store) ListUserDonors(q SearchQuery) (PagedResult[UserDonor], error) {
	return paginate[UserDonor](s, BuildFilter(q.Raw, userDonorSearch), q, listOptions{
		Order: "date DESC, id DESC",
	})
}

// GetUserDonor loads a walk-in donor by id.
func (s *Store) GetUserDonor(id uint) (*UserDonor, error) {
	var u UserDonor
	if err := s.db.First(&u, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// CreateUserDonor validates and inserts u.
func (s *Store) CreateUserDonor(u *UserDonor) error {
	if err := validateAmount(u.Amount); err != nil {
		return err
	}
	return s.db.Create(u).Error
}

// UpdateUserDonor rewrites the walk-in donor with u.ID.
func (s *Store) UpdateUserDonor(u *UserDonor) error {
	if err := validateAmount(u.Amount); err != nil {
		return err
	}
	res := s.db.Model(&UserDonor{}).Where("id = ?", u.ID).Updates(map[string]any{
		"first_name": u.FirstName,
		"last_name":  u.LastName,
		"amount":     u.Amount,
		"date":       u.Date,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUserDonor removes the walk-in donor with id.
func (s *Store) DeleteUserDonor(id uint) error {
	return deleteByID[UserDonor](s, id)
}
