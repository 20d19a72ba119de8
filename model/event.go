package model

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

// EventTemplate is the general kind of an event, e.g. "Workshop".
type EventTemplate struct {
	ID          uint   `gorm:"primaryKey"`
	EventType   string `gorm:"not null"`
	Description string
}

// An Event is one occurrence of an EventTemplate.
type Event struct {
	ID                   uint `gorm:"primaryKey"`
	CreatedAt            time.Time
	UpdatedAt            time.Time
	Name                 string    `gorm:"not null"`
	Date                 time.Time `gorm:"not null"`
	TimeStart            string    // HH:MM
	TimeEnd              string    // HH:MM
	Location             string
	Capacity             *int
	RegistrationDeadline *time.Time
	TemplateID           uint `gorm:"not null;index"`
	Template             EventTemplate
}

var eventSearch = SearchSpec{
	Columns: []string{"events.name", "events.location"},
}

func joinEventTemplates(tx *gorm.DB) *gorm.DB {
	return tx.Joins("JOIN event_templates ON event_templates.id = events.template_id")
}

// ListEvents returns one page of events (with their template) matching q.
func (s *Store) ListEvents(q SearchQuery) (PagedResult[Event], error) {
	return paginate[Event](s, BuildFilter(q.Raw, eventSearch), q, listOptions{
		Base:     joinEventTemplates,
		Select:   "events.*",
		Order:    "events.date DESC, events.id DESC",
		Preloads: []string{"Template"},
	})
}

// AllEvents is used to fill select boxes.
func (s *Store) AllEvents() ([]Event, error) {
	var rows []Event
	err := s.db.Order("date DESC, id DESC").Find(&rows).Error
	return rows, err
}

// GetEvent loads an event with its template.
func (s *Store) GetEvent(id uint) (*Event, error) {
	var e Event
	if err := s.db.Preload("Template").First(&e, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &e, nil
}

// ListEventTemplates returns all templates for the event form.
func (s *Store) ListEventTemplates() ([]EventTemplate, error) {
	var rows []EventTemplate
	err := s.db.Order("event_type ASC, id ASC").Find(&rows).Error
	return rows, err
}

// GetEventTemplate loads a template by id.
func (s *Store) GetEventTemplate(id uint) (*EventTemplate, error) {
	var t EventTemplate
	if err := s.db.First(&t, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// CreateEventTemplate inserts t.
func (s *Store) CreateEventTemplate(t *EventTemplate) error {
	return s.db.Create(t).Error
}

func (s *Store) validateEvent(e *Event) error {
	if strings.TrimSpace(e.Name) == "" {
		return invalid("name", "Event name is required.")
	}
	if e.Date.IsZero() {
		return invalid("date", "Event date is required.")
	}
	if e.TemplateID == 0 {
		return invalid("template", "Event Template is required.")
	}
	if _, err := s.GetEventTemplate(e.TemplateID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return invalid("template", "Invalid Event Template selected.")
		}
		return err
	}
	return nil
}

// CreateEvent validates and inserts e.
func (s *Store) CreateEvent(e *Event) error {
	if err := s.validateEvent(e); err != nil {
		return err
	}
	return s.db.Omit("Template").Create(e).Error
}

// UpdateEvent writes all editable fields of e. Snapshots on registrations and
// surveys keep their values.
func (s *Store) UpdateEvent(e *Event) error {
	if err := s.validateEvent(e); err != nil {
		return err
	}
	res := s.db.Model(&Event{}).Where("id = ?", e.ID).Updates(map[string]any{
		"name":                  e.Name,
		"date":                  e.Date,
		"time_start":            e.TimeStart,
		"time_end":              e.TimeEnd,
		"location":              e.Location,
		"capacity":              e.Capacity,
		"registration_deadline": e.RegistrationDeadline,
		"template_id":           e.TemplateID,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteEvent removes the event with id.
func (s *Store) DeleteEvent(id uint) error {
	return deleteByID[Event](s, id)
}
