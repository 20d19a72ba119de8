package controller

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/ellarises/portal/fixtures"
	"github.com/ellarises/portal/model"
)

func TestAuthorize(t *testing.T) {
	tests := []struct {
		name string
		user *SessionUser
		req  RoleRequirement
		want error
	}{
		{"anonymous", nil, ManagerOnly, errUnauthenticated},
		{"zero id", &SessionUser{Role: model.RoleManager}, ManagerOnly, errUnauthenticated},
		{"manager", &SessionUser{ID: 1, Role: model.RoleManager}, ManagerOnly, nil},
		{"common user", &SessionUser{ID: 2, Role: model.RoleCommon}, ManagerOnly, errUnauthorized},
		{"common allowed", &SessionUser{ID: 2, Role: model.RoleCommon}, RoleRequirement{model.RoleManager, model.RoleCommon}, nil},
		{"unknown role", &SessionUser{ID: 3, Role: "admin"}, ManagerOnly, errUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := authorize(tt.user, tt.req); !errors.Is(err, tt.want) {
				t.Errorf("authorize = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestAuthGuardRemembersRequestedURL(t *testing.T) {
	app := newTestApp(t, nil)
	b := app.browser()

	rec := b.get("/participants?search=jo&page=2")
	assertRedirect(t, rec, "/login")

	rec = b.get("/login")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /login status = %d", rec.Code)
	}
	name, data := app.renderer.last()
	if name != "login.html" {
		t.Errorf("template = %q, want login.html", name)
	}
	if f, _ := data["flashes"].([]Flash); !hasFlash(f, msgLoginRequired) {
		t.Errorf("flashes = %v, want %q", f, msgLoginRequired)
	}

	rec = b.post("/login", url.Values{"email": {fixtures.ManagerEmail}, "password": {fixtures.ManagerPassword}})
	assertRedirect(t, rec, "/participants?search=jo&page=2")

	rec = b.get("/participants?search=jo&page=2")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /participants after login status = %d", rec.Code)
	}
}

func TestAuthGuardBlocksAnonymousMutations(t *testing.T) {
	app := newTestApp(t, nil)
	b := app.browser()

	rec := b.post("/participants/delete/"+idString(app.data.John.ID), nil)
	assertRedirect(t, rec, "/login")
	if _, err := app.store.GetParticipant(app.data.John.ID); err != nil {
		t.Errorf("participant deleted by anonymous request: %v", err)
	}

	assertRedirect(t, b.get("/dashboard"), "/login")
	assertRedirect(t, b.get("/users"), "/login")
}

func TestAuthGuardReturnsToListAfterPost(t *testing.T) {
	app := newTestApp(t, nil)
	b := app.browser()

	rec := b.post("/donations/delete/5", nil)
	assertRedirect(t, rec, "/login")

	rec = b.post("/login", url.Values{"email": {fixtures.ManagerEmail}, "password": {fixtures.ManagerPassword}})
	assertRedirect(t, rec, "/donations")
}

func TestReturnTarget(t *testing.T) {
	tests := []struct {
		method, target, want string
	}{
		{http.MethodGet, "/participants?search=jo&page=2", "/participants?search=jo&page=2"},
		{http.MethodHead, "/events", "/events"},
		{http.MethodPost, "/donations/delete/5", "/donations"},
		{http.MethodPost, "/donations/userdonor/edit/3", "/donations"},
		{http.MethodPost, "/participants/add?x=1", "/participants"},
		{http.MethodPost, "/", "/"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, nil)
			if got := returnTarget(req); got != tt.want {
				t.Errorf("returnTarget = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRoleGuardSendsCommonUserHome(t *testing.T) {
	app := newTestApp(t, nil)
	b := app.browser()
	b.login(fixtures.CommonEmail, fixtures.CommonPassword)

	// lists are fine
	rec := b.get("/participants")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /participants status = %d, want 200", rec.Code)
	}
	if name, _ := app.renderer.last(); name != "participants.html" {
		t.Errorf("template = %q, want participants.html", name)
	}

	for _, target := range []string{"/participants/add", "/events/edit/" + idString(app.data.Meetup.ID), "/users", "/donations/export"} {
		t.Run(target, func(t *testing.T) {
			assertRedirect(t, b.get(target), "/")
			if f := b.flashes(); !hasFlash(f, msgNotPermitted) {
				t.Errorf("flashes = %v, want %q", f, msgNotPermitted)
			}
		})
	}

	rec = b.post("/participants/add", url.Values{"first_name": {"Eve"}, "last_name": {"Intruder"}, "email": {"eve@example.com"}})
	assertRedirect(t, rec, "/")
	result, err := app.store.ListParticipants(model.NewSearchQuery("eve", 1))
	if err != nil {
		t.Fatalf("ListParticipants failed: %v", err)
	}
	if result.Total != 0 {
		t.Errorf("common user created a participant")
	}
}

func TestPublicListPolicy(t *testing.T) {
	app := newTestApp(t, func(cfg *model.Config) {
		cfg.PublicLists = []string{"events", "users"}
	})
	b := app.browser()

	rec := b.get("/events")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /events status = %d, want 200", rec.Code)
	}
	if name, _ := app.renderer.last(); name != "events.html" {
		t.Errorf("template = %q, want events.html", name)
	}

	assertRedirect(t, b.get("/participants"), "/login")
	// the user list is never public
	assertRedirect(t, b.get("/users"), "/login")
	// a public list does not open its mutations
	assertRedirect(t, b.get("/events/add"), "/login")
}

func TestCSRFTokenRequired(t *testing.T) {
	app := newTestApp(t, nil)
	b := app.browser()
	b.login(fixtures.ManagerEmail, fixtures.ManagerPassword)

	rec := b.do(http.MethodPost, "/participants/delete/"+idString(app.data.Jane.ID), url.Values{}, false)
	if rec.Code == http.StatusOK {
		t.Fatalf("POST without CSRF token succeeded")
	}
	if _, err := app.store.GetParticipant(app.data.Jane.ID); err != nil {
		t.Errorf("participant deleted without CSRF token: %v", err)
	}
}

func idString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
