package model

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// A Survey is the feedback of a participant on an event occurrence. It
// belongs to a Registration and keeps its own copy of the participant email
// and the event data.
type Survey struct {
	ID                  uint `gorm:"primaryKey"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
	RegistrationID      uint `gorm:"not null;index"`
	Registration        Registration
	ParticipantEmail    string
	EventName           string
	EventDate           time.Time
	EventTimeStart      string
	SatisfactionScore   *int
	UsefulnessScore     *int
	InstructorScore     *int
	RecommendationScore *int
	OverallScore        decimal.NullDecimal `gorm:"type:decimal(4,2)"`
	NPSBucket           string
	Comments            string
	SubmissionDate      *time.Time
	SubmissionTime      string
}

var surveySearch = SearchSpec{
	Columns: []string{"surveys.participant_email", "surveys.event_name"},
}

func joinRegistrations(tx *gorm.DB) *gorm.DB {
	return tx.Joins("JOIN registrations ON registrations.id = surveys.registration_id")
}

// ListSurveys returns one page of surveys matching q.
func (s *Store) ListSurveys(q SearchQuery) (PagedResult[Survey], error) {
	return paginate[Survey](s, BuildFilter(q.Raw, surveySearch), q, listOptions{
		Base:     joinRegistrations,
		Select:   "surveys.*",
		Order:    "surveys.event_date DESC, surveys.id DESC",
		Preloads: []string{"Registration"},
	})
}

// GetSurvey loads a survey with its registration.
func (s *Store) GetSurvey(id uint) (*Survey, error) {
	var sv Survey
	if err := s.db.Preload("Registration").First(&sv, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &sv, nil
}

// resolveSurveyRefs loads participant and event, reporting a validation
// error when either is missing.
func (s *Store) resolveSurveyRefs(participantID, eventID uint) (*Participant, *Event, error) {
	p, err := s.GetParticipant(participantID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, nil, err
	}
	e, err := s.GetEvent(eventID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, nil, err
	}
	if p == nil || e == nil {
		return nil, nil, invalid("participant", "Invalid Participant or Event selected.")
	}
	return p, e, nil
}

func (sv *Survey) takeSnapshot(p *Participant, e *Event, reg *Registration) {
	sv.RegistrationID = reg.ID
	sv.ParticipantEmail = p.Email
	sv.EventName = e.Name
	sv.EventDate = e.Date
	sv.EventTimeStart = e.TimeStart
}

// CreateSurvey stores sv for the given participant and event. A missing
// registration for the pair is created on the fly.
func (s *Store) CreateSurvey(sv *Survey, participantID, eventID uint) error {
	p, e, err := s.resolveSurveyRefs(participantID, eventID)
	if err != nil {
		return err
	}
	reg, err := s.FindOrCreateRegistration(p, e)
	if err != nil {
		return err
	}
	sv.takeSnapshot(p, e, reg)
	sv.Registration = *reg
	return s.db.Omit("Registration").Create(sv).Error
}

// UpdateSurvey rewrites sv. The participant must already be registered for
// the event.
func (s *Store) UpdateSurvey(sv *Survey, participantID, eventID uint) error {
	p, e, err := s.resolveSurveyRefs(participantID, eventID)
	if err != nil {
		return err
	}
	reg, err := s.FindRegistration(p.ID, e.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return invalid("event", "No matching registration found for the selected participant and event.")
		}
		return err
	}
	sv.takeSnapshot(p, e, reg)
	res := s.db.Model(&Survey{}).Where("id = ?", sv.ID).Updates(map[string]any{
		"registration_id":      sv.RegistrationID,
		"participant_email":    sv.ParticipantEmail,
		"event_name":           sv.EventName,
		"event_date":           sv.EventDate,
		"event_time_start":     sv.EventTimeStart,
		"satisfaction_score":   sv.SatisfactionScore,
		"usefulness_score":     sv.UsefulnessScore,
		"instructor_score":     sv.InstructorScore,
		"recommendation_score": sv.RecommendationScore,
		"overall_score":        sv.OverallScore,
		"nps_bucket":           sv.NPSBucket,
		"comments":             sv.Comments,
		"submission_date":      sv.SubmissionDate,
		"submission_time":      sv.SubmissionTime,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteSurvey removes the survey with id.
func (s *Store) DeleteSurvey(id uint) error {
	return deleteByID[Survey](s, id)
}
