package controller

import (
	"bytes"
	"net/http"
	"net/url"
	"testing"

	"github.com/ellarises/portal/fixtures"
	"github.com/ellarises/portal/model"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

func TestDonationRejectsNonPositiveAmount(t *testing.T) {
	app := newTestApp(t, nil)
	b := app.browser()
	b.login(fixtures.ManagerEmail, fixtures.ManagerPassword)

	for _, amount := range []string{"0", "-5", "abc"} {
		t.Run(amount, func(t *testing.T) {
			rec := b.post("/donations/add", url.Values{
				"participant_id": {idString(app.data.John.ID)},
				"amount":         {amount},
			})
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
			}
			name, data := app.renderer.last()
			if name != "donationedit.html" {
				t.Errorf("template = %q, want donationedit.html", name)
			}
			if data["error"] != model.MsgAmountNotPositive {
				t.Errorf("error = %v, want %q", data["error"], model.MsgAmountNotPositive)
			}
			if df, _ := data["form"].(donationForm); df.Amount != amount {
				t.Errorf("form amount = %q, want the submitted %q", df.Amount, amount)
			}
		})
	}

	result, err := app.store.ListDonations(model.NewSearchQuery("", 1))
	if err != nil {
		t.Fatalf("ListDonations failed: %v", err)
	}
	if result.Total != 0 {
		t.Errorf("donations = %d, want 0", result.Total)
	}
}

func TestDonationAddAndList(t *testing.T) {
	app := newTestApp(t, nil)
	b := app.browser()
	b.login(fixtures.ManagerEmail, fixtures.ManagerPassword)

	rec := b.post("/donations/add", url.Values{
		"participant_id": {idString(app.data.Jane.ID)},
		"amount":         {"$40.00"},
		"date":           {"2025-10-01"},
	})
	assertRedirect(t, rec, "/donations")

	rec = b.get("/donations?search=jane")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /donations status = %d", rec.Code)
	}
	_, data := app.renderer.last()
	donations, _ := data["donations"].(model.PagedResult[model.Donation])
	if donations.Total != 1 {
		t.Fatalf("donations Total = %d, want 1", donations.Total)
	}
	d := donations.Items[0]
	if !d.Amount.Equal(decimal.NewFromInt(40)) {
		t.Errorf("Amount = %s, want 40", d.Amount)
	}
	if d.ParticipantEmail != app.data.Jane.Email {
		t.Errorf("ParticipantEmail = %q, want %q", d.ParticipantEmail, app.data.Jane.Email)
	}
	if data["search"] != "jane" {
		t.Errorf("search = %v, want jane", data["search"])
	}
}

func TestUserDonorPublicForm(t *testing.T) {
	app := newTestApp(t, nil)
	b := app.browser()

	rec := b.post("/donations/userdonor/add", url.Values{"first_name": {"Walk"}, "last_name": {"In"}, "amount": {"0"}})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}

	rec = b.post("/donations/userdonor/add", url.Values{"first_name": {"Walk"}, "last_name": {"In"}, "amount": {"25"}})
	assertRedirect(t, rec, "/donations/userdonor/add")
	if f := b.flashes(); !hasFlash(f, "User Donor added successfully!") {
		t.Errorf("flashes = %v, want the success message", f)
	}

	donors, err := app.store.ListUserDonors(model.NewSearchQuery("", 1))
	if err != nil {
		t.Fatalf("ListUserDonors failed: %v", err)
	}
	if donors.Total != 1 {
		t.Fatalf("user donors = %d, want 1", donors.Total)
	}

	// editing needs a manager
	assertRedirect(t, b.post("/donations/userdonor/delete/"+idString(donors.Items[0].ID), nil), "/login")
}

func TestDonationsExport(t *testing.T) {
	app := newTestApp(t, nil)
	for _, p := range []*model.Participant{app.data.John, app.data.Jane} {
		if err := app.store.CreateDonation(&model.Donation{ParticipantID: p.ID, Amount: decimal.NewFromInt(15)}); err != nil {
			t.Fatalf("CreateDonation failed: %v", err)
		}
	}
	b := app.browser()
	b.login(fixtures.ManagerEmail, fixtures.ManagerPassword)

	rec := b.get("/donations/export?search=john")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != mimeXLSX {
		t.Errorf("Content-Type = %q, want %q", ct, mimeXLSX)
	}
	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("OpenReader failed: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("Donations")
	if err != nil {
		t.Fatalf("GetRows failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want header plus one donation", len(rows))
	}
	if rows[0][0] != "ID" || rows[1][1] != "John" {
		t.Errorf("rows = %v", rows)
	}
}
