package controller

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/ellarises/portal/fixtures"
	"github.com/ellarises/portal/model"

	"github.com/labstack/echo/v4"
)

const testCSRFToken = "test-csrf-token-0123456789abcdef"

// recordingRenderer remembers the last template and its data instead of
// executing HTML templates.
type recordingRenderer struct {
	mu   sync.Mutex
	name string
	data map[string]any
}

func (r *recordingRenderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.name = name
	r.data, _ = data.(map[string]any)
	_, err := io.WriteString(w, name)
	return err
}

func (r *recordingRenderer) last() (string, map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.name, r.data
}

type testApp struct {
	t        *testing.T
	e        *echo.Echo
	store    *model.Store
	data     *fixtures.TestData
	renderer *recordingRenderer
}

// newTestApp seeds a store and builds the complete server on top of it.
// configure may adjust the configuration before the routes are registered.
func newTestApp(t *testing.T, configure func(*model.Config)) *testApp {
	t.Helper()
	store := fixtures.NewTestStore(t)
	data := fixtures.SeedTestData(t, store)
	if configure != nil {
		configure(store.Config)
	}
	r := &recordingRenderer{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &testApp{
		t:        t,
		e:        newServer(store, r, logger),
		store:    store,
		data:     data,
		renderer: r,
	}
}

// browser is a cookie keeping HTML client.
type browser struct {
	app     *testApp
	cookies map[string]*http.Cookie
}

func (app *testApp) browser() *browser {
	return &browser{
		app: app,
		cookies: map[string]*http.Cookie{
			"csrf": {Name: "csrf", Value: testCSRFToken},
		},
	}
}

func (b *browser) do(method, target string, form url.Values, withToken bool) *httptest.ResponseRecorder {
	b.app.t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	}
	req.Header.Set(echo.HeaderAccept, "text/html,application/xhtml+xml")
	if withToken {
		req.Header.Set("X-CSRF-Token", testCSRFToken)
	}
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	b.app.e.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return rec
}

func (b *browser) get(target string) *httptest.ResponseRecorder {
	return b.do(http.MethodGet, target, nil, true)
}

func (b *browser) post(target string, form url.Values) *httptest.ResponseRecorder {
	if form == nil {
		form = url.Values{}
	}
	return b.do(http.MethodPost, target, form, true)
}

func (b *browser) login(email, password string) {
	b.app.t.Helper()
	rec := b.post("/login", url.Values{"email": {email}, "password": {password}})
	if rec.Code != http.StatusSeeOther {
		b.app.t.Fatalf("login as %s: status = %d, want %d", email, rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get(echo.HeaderLocation); loc == "/login" {
		b.app.t.Fatalf("login as %s was rejected", email)
	}
}

// flashes renders the home page and returns the flashes shown there.
func (b *browser) flashes() []Flash {
	b.app.t.Helper()
	rec := b.get("/")
	if rec.Code != http.StatusOK {
		b.app.t.Fatalf("GET / status = %d, want %d", rec.Code, http.StatusOK)
	}
	_, data := b.app.renderer.last()
	f, _ := data["flashes"].([]Flash)
	return f
}

func hasFlash(flashes []Flash, msg string) bool {
	for _, f := range flashes {
		if f.Message == msg {
			return true
		}
	}
	return false
}

func assertRedirect(t *testing.T, rec *httptest.ResponseRecorder, want string) {
	t.Helper()
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get(echo.HeaderLocation); loc != want {
		t.Fatalf("Location = %q, want %q", loc, want)
	}
}
