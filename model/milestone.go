package model

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

// A Milestone is an achievement of a participant. ParticipantEmail is a copy
// taken when the milestone is written.
type Milestone struct {
	ID               uint `gorm:"primaryKey"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
	ParticipantID    uint `gorm:"not null;index"`
	Participant      Participant
	ParticipantEmail string
	Title            string `gorm:"not null"`
	Date             *time.Time
}

var milestoneSearch = SearchSpec{
	Columns:         []string{"milestones.title", "participants.first_name", "participants.last_name"},
	FirstNameColumn: "participants.first_name",
	LastNameColumn:  "participants.last_name",
}

func joinMilestoneParticipants(tx *gorm.DB) *gorm.DB {
	return tx.Joins("JOIN participants ON participants.id = milestones.participant_id")
}

// ListMilestones returns one page of milestones matching q.
func (s *Store) ListMilestones(q SearchQuery) (PagedResult[Milestone], error) {
	return paginate[Milestone](s, BuildFilter(q.Raw, milestoneSearch), q, listOptions{
		Base:     joinMilestoneParticipants,
		Select:   "milestones.*",
		Order:    "milestones.date DESC, milestones.id DESC",
		Preloads: []string{"Participant"},
	})
}

// GetMilestone loads a milestone with its participant.
func (s *Store) GetMilestone(id uint) (*Milestone, error) {
	var m Milestone
	if err := s.db.Preload("Participant").First(&m, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

// participantRef loads the participant a dependent row points to.
func (s *Store) participantRef(id uint) (*Participant, error) {
	p, err := s.GetParticipant(id)
	if errors.Is(err, ErrNotFound) {
		return nil, invalid("participant", "Invalid Participant selected.")
	}
	return p, err
}

// CreateMilestone validates and inserts m, copying the participant email.
func (s *Store) CreateMilestone(m *Milestone) error {
	if strings.TrimSpace(m.Title) == "" {
		return invalid("title", "Title is required.")
	}
	p, err := s.participantRef(m.ParticipantID)
	if err != nil {
		return err
	}
	m.ParticipantEmail = p.Email
	return s.db.Omit("Participant").Create(m).Error
}

// UpdateMilestone rewrites the milestone with m.ID and refreshes its email copy.
func (s *Store) UpdateMilestone(m *Milestone) error {
	if strings.TrimSpace(m.Title) == "" {
		return invalid("title", "Title is required.")
	}
	p, err := s.participantRef(m.ParticipantID)
	if err != nil {
		return err
	}
	m.ParticipantEmail = p.Email
	res := s.db.Model(&Milestone{}).Where("id = ?", m.ID).Updates(map[string]any{
		"participant_id":    m.ParticipantID,
		"participant_email": m.ParticipantEmail,
		"title":             m.Title,
		"date":              m.Date,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteMilestone removes the milestone with id.
func (s *Store) DeleteMilestone(id uint) error {
	return deleteByID[Milestone](s, id)
}
