// Package fixtures provides a throw-away store and seed data for tests.
package fixtures

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/ellarises/portal/model"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	ManagerEmail    = "manager@example.com"
	ManagerPassword = "manager-secret"
	CommonEmail     = "commonuser@example.com"
	CommonPassword  = "common-secret"
	LegacyEmail     = "legacy@example.com"
	LegacyPassword  = "plain-old-password"
)

// TestConfig is the configuration used by NewTestStore.
func TestConfig() *model.Config {
	return &model.Config{
		Mode:                "test",
		CookieSecret:        "0123456789abcdef0123456789abcdef",
		RegistrationAllowed: true,
	}
}

// NewTestStore opens a fresh SQLite database in a temp dir.
func NewTestStore(t testing.TB) *model.Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db") + "?_pragma=foreign_keys(1)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql.DB: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	store, err := model.NewStore(db, TestConfig())
	if err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return store
}

// TestData holds the rows created by SeedTestData.
type TestData struct {
	Manager  *model.User
	Common   *model.User
	Legacy   *model.User
	John     *model.Participant
	Jane     *model.Participant
	Alice    *model.Participant
	Template *model.EventTemplate
	Meetup   *model.Event
	Gala     *model.Event
}

// SeedTestData creates three users, three participants, one event template
// and two events.
func SeedTestData(t testing.TB, store *model.Store) *TestData {
	t.Helper()
	data := &TestData{
		Manager: &model.User{FirstName: "Manager", LastName: "User", Email: ManagerEmail, Password: hash(t, ManagerPassword), Role: model.RoleManager},
		Common:  &model.User{FirstName: "User", LastName: "Common", Email: CommonEmail, Password: hash(t, CommonPassword), Role: model.RoleCommon},
		Legacy:  &model.User{FirstName: "Old", LastName: "Timer", Email: LegacyEmail, Password: LegacyPassword, Role: model.RoleCommon},
	}
	for _, u := range []*model.User{data.Manager, data.Common, data.Legacy} {
		if err := store.CreateUser(u); err != nil {
			t.Fatalf("create user %s: %v", u.Email, err)
		}
	}

	data.John = Participant("John", "Doe", "john.doe@example.com")
	data.Jane = Participant("Jane", "Smith", "jane.smith@example.com")
	data.Alice = Participant("Alice", "Johnson", "alice.j@example.com")
	for _, p := range []*model.Participant{data.John, data.Jane, data.Alice} {
		if err := store.CreateParticipant(p); err != nil {
			t.Fatalf("create participant %s: %v", p.Email, err)
		}
	}

	data.Template = &model.EventTemplate{EventType: "Workshop", Description: "Hands-on STEAM workshop"}
	if err := store.CreateEventTemplate(data.Template); err != nil {
		t.Fatalf("create event template: %v", err)
	}
	data.Meetup = Event("Community Meetup", "Community Hall", Date("2025-12-15"), data.Template.ID)
	data.Gala = Event("Fundraising Gala", "Grand Ballroom", Date("2026-01-20"), data.Template.ID)
	for _, e := range []*model.Event{data.Meetup, data.Gala} {
		if err := store.CreateEvent(e); err != nil {
			t.Fatalf("create event %s: %v", e.Name, err)
		}
	}
	return data
}

// Participant builds an unsaved participant.
func Participant(first, last, email string) *model.Participant {
	return &model.Participant{
		FirstName:      first,
		LastName:       last,
		Email:          email,
		City:           "Springfield",
		State:          "IL",
		TotalDonations: decimal.NewFromInt(0),
	}
}

// Event builds an unsaved event occurrence.
func Event(name, location string, date time.Time, templateID uint) *model.Event {
	capacity := 50
	return &model.Event{
		Name:       name,
		Location:   location,
		Date:       date,
		TimeStart:  "18:00",
		TimeEnd:    "20:00",
		Capacity:   &capacity,
		TemplateID: templateID,
	}
}

// SeedParticipants creates n participants named "Bulk<i> Person<i>".
func SeedParticipants(t testing.TB, store *model.Store, n int) []*model.Participant {
	t.Helper()
	out := make([]*model.Participant, 0, n)
	for i := 1; i <= n; i++ {
		p := Participant(fmt.Sprintf("Bulk%02d", i), fmt.Sprintf("Person%02d", i), fmt.Sprintf("bulk%02d@example.com", i))
		if err := store.CreateParticipant(p); err != nil {
			t.Fatalf("create participant %d: %v", i, err)
		}
		out = append(out, p)
	}
	return out
}

// Date parses YYYY-MM-DD and panics on malformed input.
func Date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

// DatePtr is Date for optional fields.
func DatePtr(s string) *time.Time {
	d := Date(s)
	return &d
}

func hash(t testing.TB, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return string(h)
}
