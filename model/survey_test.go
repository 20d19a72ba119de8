package model_test

import (
	"errors"
	"testing"

	"github.com/ellarises/portal/fixtures"
	"github.com/ellarises/portal/model"
)

func intPtr(i int) *int { return &i }

func TestCreateSurveyReusesRegistration(t *testing.T) {
	store := fixtures.NewTestStore(t)
	data := fixtures.SeedTestData(t, store)

	first := &model.Survey{SatisfactionScore: intPtr(5), Comments: "great"}
	if err := store.CreateSurvey(first, data.John.ID, data.Meetup.ID); err != nil {
		t.Fatalf("CreateSurvey failed: %v", err)
	}
	second := &model.Survey{SatisfactionScore: intPtr(3)}
	if err := store.CreateSurvey(second, data.John.ID, data.Meetup.ID); err != nil {
		t.Fatalf("second CreateSurvey failed: %v", err)
	}

	n, err := store.CountRegistrations(data.John.ID, data.Meetup.ID)
	if err != nil {
		t.Fatalf("CountRegistrations failed: %v", err)
	}
	if n != 1 {
		t.Errorf("registrations = %d, want 1", n)
	}
	if first.RegistrationID == 0 || first.RegistrationID != second.RegistrationID {
		t.Errorf("RegistrationID = %d and %d, want the same non-zero id", first.RegistrationID, second.RegistrationID)
	}

	got, err := store.GetSurvey(first.ID)
	if err != nil {
		t.Fatalf("GetSurvey failed: %v", err)
	}
	if got.ParticipantEmail != data.John.Email {
		t.Errorf("ParticipantEmail = %q, want %q", got.ParticipantEmail, data.John.Email)
	}
	if got.EventName != data.Meetup.Name {
		t.Errorf("EventName = %q, want %q", got.EventName, data.Meetup.Name)
	}
	if got.Registration.ParticipantID != data.John.ID || got.Registration.EventID != data.Meetup.ID {
		t.Errorf("Registration = %d/%d, want %d/%d", got.Registration.ParticipantID, got.Registration.EventID, data.John.ID, data.Meetup.ID)
	}
}

func TestCreateSurveyInvalidReferences(t *testing.T) {
	store := fixtures.NewTestStore(t)
	data := fixtures.SeedTestData(t, store)

	tests := []struct {
		name          string
		participantID uint
		eventID       uint
	}{
		{"unknown participant", 9999, data.Meetup.ID},
		{"unknown event", data.John.ID, 9999},
		{"nothing selected", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.CreateSurvey(&model.Survey{}, tt.participantID, tt.eventID)
			var verr *model.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			if verr.Message != "Invalid Participant or Event selected." {
				t.Errorf("Message = %q", verr.Message)
			}
		})
	}

	n, err := store.CountRegistrations(data.John.ID, 9999)
	if err != nil {
		t.Fatalf("CountRegistrations failed: %v", err)
	}
	if n != 0 {
		t.Errorf("registrations = %d, want 0", n)
	}
}

func TestUpdateSurveyRequiresRegistration(t *testing.T) {
	store := fixtures.NewTestStore(t)
	data := fixtures.SeedTestData(t, store)

	sv := &model.Survey{SatisfactionScore: intPtr(4)}
	if err := store.CreateSurvey(sv, data.John.ID, data.Meetup.ID); err != nil {
		t.Fatalf("CreateSurvey failed: %v", err)
	}

	moved := &model.Survey{ID: sv.ID, SatisfactionScore: intPtr(2)}
	err := store.UpdateSurvey(moved, data.John.ID, data.Gala.ID)
	var verr *model.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	n, err := store.CountRegistrations(data.John.ID, data.Gala.ID)
	if err != nil {
		t.Fatalf("CountRegistrations failed: %v", err)
	}
	if n != 0 {
		t.Errorf("update created %d registrations, want 0", n)
	}

	got, err := store.GetSurvey(sv.ID)
	if err != nil {
		t.Fatalf("GetSurvey failed: %v", err)
	}
	if got.SatisfactionScore == nil || *got.SatisfactionScore != 4 {
		t.Errorf("SatisfactionScore changed after a rejected update")
	}

	// same pair is fine
	same := &model.Survey{ID: sv.ID, SatisfactionScore: intPtr(1), Comments: "changed"}
	if err := store.UpdateSurvey(same, data.John.ID, data.Meetup.ID); err != nil {
		t.Fatalf("UpdateSurvey failed: %v", err)
	}
	got, err = store.GetSurvey(sv.ID)
	if err != nil {
		t.Fatalf("GetSurvey failed: %v", err)
	}
	if got.Comments != "changed" {
		t.Errorf("Comments = %q, want %q", got.Comments, "changed")
	}
}

func TestSurveySnapshotSurvivesEventRename(t *testing.T) {
	store := fixtures.NewTestStore(t)
	data := fixtures.SeedTestData(t, store)

	sv := &model.Survey{}
	if err := store.CreateSurvey(sv, data.Jane.ID, data.Gala.ID); err != nil {
		t.Fatalf("CreateSurvey failed: %v", err)
	}

	renamed := *data.Gala
	renamed.Name = "Spring Gala"
	if err := store.UpdateEvent(&renamed); err != nil {
		t.Fatalf("UpdateEvent failed: %v", err)
	}

	got, err := store.GetSurvey(sv.ID)
	if err != nil {
		t.Fatalf("GetSurvey failed: %v", err)
	}
	if got.EventName != "Fundraising Gala" {
		t.Errorf("EventName = %q, want the name at survey time", got.EventName)
	}
}

func TestDeleteSurveyNotFound(t *testing.T) {
	store := fixtures.NewTestStore(t)
	if err := store.DeleteSurvey(1); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
