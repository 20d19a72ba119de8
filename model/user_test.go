package model_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/ellarises/portal/fixtures"
	"github.com/ellarises/portal/model"
	"golang.org/x/crypto/bcrypt"
)

func TestVerifyCredential(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("GenerateFromPassword failed: %v", err)
	}

	tests := []struct {
		name        string
		stored      string
		submitted   string
		wantMatch   bool
		wantUpgrade bool
	}{
		{"hash matches", string(hash), "secret", true, false},
		{"hash mismatch", string(hash), "Secret", false, false},
		{"plaintext matches", "secret", "secret", true, true},
		{"plaintext mismatch", "secret", "secret ", false, false},
		{"empty stored", "", "", false, false},
		{"submitted hash is not a password", string(hash), string(hash), false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match, upgrade := model.VerifyCredential(tt.stored, tt.submitted)
			if match != tt.wantMatch || upgrade != tt.wantUpgrade {
				t.Errorf("VerifyCredential = (%v, %v), want (%v, %v)", match, upgrade, tt.wantMatch, tt.wantUpgrade)
			}
		})
	}
}

func TestAuthenticateUser(t *testing.T) {
	store := fixtures.NewTestStore(t)
	data := fixtures.SeedTestData(t, store)

	u, err := store.AuthenticateUser(fixtures.ManagerEmail, fixtures.ManagerPassword)
	if err != nil {
		t.Fatalf("AuthenticateUser failed: %v", err)
	}
	if u.ID != data.Manager.ID {
		t.Errorf("ID = %d, want %d", u.ID, data.Manager.ID)
	}
	if u.Role != model.RoleManager {
		t.Errorf("Role = %q, want %q", u.Role, model.RoleManager)
	}

	// email lookup ignores case and surrounding blanks
	if _, err := store.AuthenticateUser("  MANAGER@Example.com ", fixtures.ManagerPassword); err != nil {
		t.Errorf("AuthenticateUser with mixed case email failed: %v", err)
	}
}

func TestAuthenticateUserRejects(t *testing.T) {
	store := fixtures.NewTestStore(t)
	fixtures.SeedTestData(t, store)

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", fixtures.ManagerEmail, "nope"},
		{"unknown email", "nobody@example.com", fixtures.ManagerPassword},
		{"empty password", fixtures.CommonEmail, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.AuthenticateUser(tt.email, tt.password)
			if !errors.Is(err, model.ErrInvalidCredentials) {
				t.Errorf("err = %v, want ErrInvalidCredentials", err)
			}
		})
	}
}

func TestAuthenticateUserUpgradesLegacyPassword(t *testing.T) {
	store := fixtures.NewTestStore(t)
	data := fixtures.SeedTestData(t, store)

	if _, err := store.AuthenticateUser(fixtures.LegacyEmail, fixtures.LegacyPassword); err != nil {
		t.Fatalf("AuthenticateUser failed: %v", err)
	}

	stored, err := store.GetUserByID(data.Legacy.ID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if !strings.HasPrefix(stored.Password, "$2") {
		t.Fatalf("stored credential %q is not a bcrypt hash", stored.Password)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte(fixtures.LegacyPassword)); err != nil {
		t.Errorf("upgraded hash does not match the password: %v", err)
	}

	// the next login goes through bcrypt
	if _, err := store.AuthenticateUser(fixtures.LegacyEmail, fixtures.LegacyPassword); err != nil {
		t.Errorf("second AuthenticateUser failed: %v", err)
	}
}

func TestAuthenticateUserWrongPasswordKeepsLegacyCredential(t *testing.T) {
	store := fixtures.NewTestStore(t)
	data := fixtures.SeedTestData(t, store)

	if _, err := store.AuthenticateUser(fixtures.LegacyEmail, "guess"); !errors.Is(err, model.ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
	stored, err := store.GetUserByID(data.Legacy.ID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if stored.Password != fixtures.LegacyPassword {
		t.Errorf("Password = %q, want it unchanged", stored.Password)
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	store := fixtures.NewTestStore(t)
	fixtures.SeedTestData(t, store)

	u := &model.User{FirstName: "Dup", LastName: "User", Email: "Manager@Example.com", Password: "x", Role: model.RoleCommon}
	if err := store.CreateUser(u); !errors.Is(err, model.ErrEmailTaken) {
		t.Errorf("err = %v, want ErrEmailTaken", err)
	}

	bad := &model.User{FirstName: "Bad", LastName: "Role", Email: "bad@example.com", Password: "x", Role: "admin"}
	var verr *model.ValidationError
	if err := store.CreateUser(bad); !errors.As(err, &verr) {
		t.Errorf("err = %v, want ValidationError", err)
	}
}

func TestUpdateUserPassword(t *testing.T) {
	store := fixtures.NewTestStore(t)
	data := fixtures.SeedTestData(t, store)

	before, err := store.GetUserByID(data.Common.ID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}

	u := &model.User{ID: data.Common.ID, FirstName: "Renamed", LastName: "Common", Email: fixtures.CommonEmail, Role: model.RoleCommon}
	if err := store.UpdateUser(u, ""); err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}
	after, err := store.GetUserByID(data.Common.ID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if after.Password != before.Password {
		t.Errorf("blank password changed the stored credential")
	}
	if after.FirstName != "Renamed" {
		t.Errorf("FirstName = %q, want Renamed", after.FirstName)
	}

	if err := store.UpdateUser(u, "brand-new-secret"); err != nil {
		t.Fatalf("UpdateUser with password failed: %v", err)
	}
	if _, err := store.AuthenticateUser(fixtures.CommonEmail, "brand-new-secret"); err != nil {
		t.Errorf("login with new password failed: %v", err)
	}
	if _, err := store.AuthenticateUser(fixtures.CommonEmail, fixtures.CommonPassword); !errors.Is(err, model.ErrInvalidCredentials) {
		t.Errorf("old password still accepted: %v", err)
	}

	u.Email = fixtures.ManagerEmail
	if err := store.UpdateUser(u, ""); !errors.Is(err, model.ErrEmailTaken) {
		t.Errorf("err = %v, want ErrEmailTaken", err)
	}
}

func TestDeleteUserNotFound(t *testing.T) {
	store := fixtures.NewTestStore(t)
	if err := store.DeleteUser(4711); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
