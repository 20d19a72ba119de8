package model

import (
	"time"
)

// A Registration links a participant to an event occurrence. Email, event
// name, date and start time are copies taken when the registration is created.
type Registration struct {
	ID               uint `gorm:"primaryKey"`
	CreatedAt        time.Time
	ParticipantID    uint `gorm:"not null;index"`
	EventID          uint `gorm:"not null;index"`
	ParticipantEmail string
	EventName        string
	EventDate        time.Time
	EventTimeStart   string
}

// FindRegistration returns the registration of participantID for eventID.
func (s *Store) FindRegistration(participantID, eventID uint) (*Registration, error) {
	var reg Registration
	err := s.db.Where("participant_id = ? AND event_id = ?", participantID, eventID).First(&reg).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &reg, nil
}

// FindOrCreateRegistration returns the registration of p for e and creates it
// with fresh snapshots when there is none yet.
func (s *Store) FindOrCreateRegistration(p *Participant, e *Event) (*Registration, error) {
	var reg Registration
	err := s.db.
		Where(Registration{ParticipantID: p.ID, EventID: e.ID}).
		Attrs(Registration{
			ParticipantEmail: p.Email,
			EventName:        e.Name,
			EventDate:        e.Date,
			EventTimeStart:   e.TimeStart,
		}).
		FirstOrCreate(&reg).Error
	if err != nil {
		// a concurrent request may have inserted the same pair; the unique
		// index rejected ours, so read theirs
		if existing, lookupErr := s.FindRegistration(p.ID, e.ID); lookupErr == nil {
			return existing, nil
		}
		return nil, err
	}
	return &reg, nil
}

// CountRegistrations counts the registrations of participantID for eventID.
func (s *Store) CountRegistrations(participantID, eventID uint) (int64, error) {
	var n int64
	err := s.db.Model(&Registration{}).
		Where("participant_id = ? AND event_id = ?", participantID, eventID).
		Count(&n).Error
	return n, err
}
