package model_test

import (
	"context"
	"strings"
	"testing"

	"github.com/ellarises/portal/fixtures"
	"github.com/ellarises/portal/model"
)

func TestRunMaintenanceUpgradesLegacyCredentials(t *testing.T) {
	store := fixtures.NewTestStore(t)
	data := fixtures.SeedTestData(t, store)

	managerBefore, err := store.GetUserByID(data.Manager.ID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}

	if err := model.RunMaintenance(context.Background(), store); err != nil {
		t.Fatalf("RunMaintenance failed: %v", err)
	}

	legacy, err := store.GetUserByID(data.Legacy.ID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if !strings.HasPrefix(legacy.Password, "$2") {
		t.Errorf("legacy credential = %q, want a bcrypt hash", legacy.Password)
	}
	if _, err := store.AuthenticateUser(fixtures.LegacyEmail, fixtures.LegacyPassword); err != nil {
		t.Errorf("login after maintenance failed: %v", err)
	}

	managerAfter, err := store.GetUserByID(data.Manager.ID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if managerAfter.Password != managerBefore.Password {
		t.Errorf("hashed credential was rehashed")
	}

	// a second run finds nothing to do
	if err := model.RunMaintenance(context.Background(), store); err != nil {
		t.Fatalf("second RunMaintenance failed: %v", err)
	}
	again, err := store.GetUserByID(data.Legacy.ID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if again.Password != legacy.Password {
		t.Errorf("second run changed the credential")
	}
}
