package controller

import (
	"encoding/gob"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/ellarises/portal/model"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/shopspring/decimal"
	"github.com/xeonx/timeago"
)

type Flash struct {
	Kind    string // "success" | "error" | "warning" | "info"
	Message string
}

// FlashLoader pulls the flashes out of the session (which empties them) and
// puts them into the echo context for the next render.
func FlashLoader(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		sw, err := LoadSession(c)
		if err != nil {
			c.Set("flashes", []Flash{})
			return next(c)
		}
		raw := sw.Flashes()
		flashes := make([]Flash, 0, len(raw))
		for _, it := range raw {
			if f, ok := it.(Flash); ok {
				flashes = append(flashes, f)
			}
		}
		if len(raw) > 0 {
			_ = sw.Save()
		}
		c.Set("flashes", flashes)
		return next(c)
	}
}

// AddFlash queues a one-shot message for the next rendered page.
func AddFlash(c echo.Context, kind, msg string) error {
	sw, err := LoadSession(c)
	if err != nil {
		return ErrInternal(err)
	}
	sw.AddFlash(Flash{Kind: kind, Message: msg})
	if err := sw.Save(); err != nil {
		return ErrInternal(fmt.Errorf("cannot save session: %w", err))
	}
	return nil
}

type appError struct {
	Code     string // stable internal error code for ops/support
	Status   int    // HTTP status
	Err      error  // original error, never shown to the client
	Public   string // safe text for the user (optional)
	Redirect string // where browsers are sent after the flash (optional)
}

func (e *appError) Error() string { return fmt.Sprintf("%s: %v", e.Code, e.Err) }
func (e *appError) Unwrap() error { return e.Err }

func ErrNotFound(err error) *appError {
	return &appError{Code: "NOT_FOUND", Status: http.StatusNotFound, Err: err}
}
func ErrInvalid(err error, public string) *appError {
	return &appError{Code: "INVALID_INPUT", Status: http.StatusBadRequest, Err: err, Public: public}
}
func ErrInternal(err error) *appError {
	return &appError{Code: "INTERNAL", Status: http.StatusInternalServerError, Err: err}
}

// ErrStore wraps an unexpected data store failure. The user sees a generic
// message and is sent to redirect.
func ErrStore(err error, redirect string) *appError {
	return &appError{
		Code:     "STORE_FAILURE",
		Status:   http.StatusInternalServerError,
		Err:      err,
		Public:   msgStoreFailure,
		Redirect: redirect,
	}
}

var timeagoEnglish = timeago.NoMax(timeago.English)

// The Template interface implements rendering functionality for echo.
type Template struct {
	templates *template.Template
}

// Render is the echo way of rendering templates.
func (t *Template) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	return t.templates.ExecuteTemplate(w, name, data)
}

// NewTemplate parses all *.html files in dir.
func NewTemplate(dir string) (*Template, error) {
	tmpl, err := template.New("t").Funcs(templateFuncs()).ParseGlob(filepath.Join(dir, "*.html"))
	if err != nil {
		return nil, fmt.Errorf("cannot parse templates in %s: %w", dir, err)
	}
	return &Template{templates: tmpl}, nil
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"htmldate": func(in time.Time) string {
			if in.IsZero() {
				return ""
			}
			return in.Format("2006-01-02")
		},
		"htmldateptr": func(in *time.Time) string {
			if in == nil || in.IsZero() {
				return ""
			}
			return in.Format("2006-01-02")
		},
		"userdate": func(in time.Time) string {
			return in.Format("01/02/2006")
		},
		"timeago": func(in time.Time) string {
			return timeagoEnglish.Format(in)
		},
		"rounddecimal": func(in decimal.Decimal) string {
			return in.Round(2).StringFixed(2)
		},
		"money": func(in decimal.Decimal) string {
			return "$" + in.Round(2).StringFixed(2)
		},
		"intptr": func(in *int) string {
			if in == nil {
				return ""
			}
			return fmt.Sprint(*in)
		},
		"add": func(a, b int) int { return a + b },
		"sub": func(a, b int) int { return a - b },
	}
}

type controller struct {
	model  *model.Store
	logger *slog.Logger
}

func (ctrl *controller) defaultResponseMap(c echo.Context, title string) map[string]any {
	responseMap := map[string]any{
		"title":     title,
		"loggedin":  false,
		"ismanager": false,
		"path":      c.Request().URL.Path,
	}

	if flashes, ok := c.Get("flashes").([]Flash); ok {
		responseMap["flashes"] = flashes
	} else {
		responseMap["flashes"] = []Flash{}
	}

	if t := c.Get(middleware.DefaultCSRFConfig.ContextKey); t != nil {
		responseMap["CSRFToken"] = t.(string)
	}

	if user, ok := currentUser(c); ok {
		responseMap["user"] = user
		responseMap["loggedin"] = true
		responseMap["ismanager"] = user.Role == model.RoleManager
	}
	return responseMap
}

// NewController is the entry point of the web application. It blocks until
// the server stops.
func NewController(store *model.Store) error {
	// development: text, debug; everything else: JSON, info
	var logger *slog.Logger
	if store.Config.Mode == "development" {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	} else {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	slog.SetDefault(logger)

	viewsDir := store.Config.ViewsDir
	if viewsDir == "" {
		viewsDir = filepath.Join("public", "views")
	}
	viewsDir = store.Config.Path(viewsDir)
	tmpl, err := NewTemplate(viewsDir)
	if err != nil {
		return err
	}

	e := newServer(store, tmpl, logger)
	e.Static("/static", store.Config.Path("static"))

	if err := e.Start(fmt.Sprintf(":%d", store.Config.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("cannot start application %w", err)
	}
	return nil
}

// newServer builds the echo instance with all middleware and routes.
func newServer(store *model.Store, renderer echo.Renderer, logger *slog.Logger) *echo.Echo {
	gob.Register(Flash{})

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Pre(middleware.MethodOverrideWithConfig(middleware.MethodOverrideConfig{
		Getter: middleware.MethodFromForm("_method"),
	}))
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.BodyLimit("2M"))
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		DisableStackAll:   false,
		DisablePrintStack: true,
	}))
	e.Use(requestLogger(logger))
	e.HTTPErrorHandler = httpErrorHandler(logger)

	ctrl := &controller{model: store, logger: logger}

	cookieStore := sessions.NewCookieStore([]byte(store.Config.CookieSecret))
	cookieStore.Options = cookieOptions(0, ctrl.cookieCfg())
	e.Use(session.Middleware(cookieStore))
	e.Use(ctrl.CookieCfgMiddleware)
	e.Use(FlashLoader)
	e.Use(ctrl.identityMiddleware)

	if store.Config.Mode == "development" {
		e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				if strings.HasPrefix(c.Request().URL.Path, "/static/") {
					res := c.Response().Header()
					res.Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
					res.Set("Pragma", "no-cache")
					res.Set("Expires", "0")
				}
				return next(c)
			}
		})
	}
	e.Use(middleware.CSRFWithConfig(middleware.CSRFConfig{
		TokenLength:    32,
		TokenLookup:    "form:csrf,header:X-CSRF-Token",
		CookieName:     "csrf",
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSameSite: http.SameSiteLaxMode,
		CookieSecure:   store.Config.Mode == "production",
	}))

	e.Renderer = renderer

	e.GET("/", ctrl.root)
	e.GET("/dashboard", ctrl.dashboard, ctrl.authMiddleware)
	e.GET("/teapot", ctrl.teapot)
	e.GET("/login", ctrl.login)
	e.POST("/login", ctrl.login)
	e.GET("/logout", ctrl.logout)
	e.GET("/register", ctrl.register)
	e.POST("/register", ctrl.register)

	ctrl.participantsInit(e)
	ctrl.eventsInit(e)
	ctrl.surveysInit(e)
	ctrl.milestonesInit(e)
	ctrl.donationsInit(e)
	ctrl.usersInit(e)
	return e
}

// requestLogger puts a request scoped logger into the context and writes one
// access log line per request.
func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			req := c.Request()
			res := c.Response()
			rid := res.Header().Get(echo.HeaderXRequestID)

			reqLogger := logger.With(
				"request_id", rid,
			).WithGroup("http").With(
				"method", req.Method,
				"path", req.URL.Path,
				"remote_ip", c.RealIP(),
			)
			c.Set("logger", reqLogger)

			err := next(c)
			if err != nil {
				// let the error handler write the response so the status is known
				c.Error(err)
			}

			if shouldSkipAccessLog(c) {
				return nil
			}
			attrs := []any{
				"status", res.Status,
				"latency_ms", float64(time.Since(start).Microseconds()) / 1000.0,
			}
			switch {
			case res.Status >= 500:
				reqLogger.Error("http_request", attrs...)
			case res.Status >= 400:
				reqLogger.Warn("http_request", attrs...)
			default:
				reqLogger.Info("http_request", attrs...)
			}
			return nil
		}
	}
}

// httpErrorHandler logs everything internally and hands out only safe payloads.
func httpErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		l := requestLog(c, logger)

		var ae *appError
		var he *echo.HTTPError
		switch {
		case errors.As(err, &ae):
		case errors.As(err, &he):
			// only 4xx messages reach the user, 5xx are masked
			public := ""
			if he.Code >= 400 && he.Code < 500 {
				public = fmt.Sprint(he.Message)
			}
			ae = &appError{
				Code:   httpStatusToCode(he.Code),
				Status: he.Code,
				Err:    fmt.Errorf("%v", he.Message),
				Public: public,
			}
		default:
			ae = ErrInternal(err)
		}

		attrs := []any{
			"status", ae.Status,
			"code", ae.Code,
			"error", ae.Err.Error(),
		}
		if ae.Status >= 500 {
			l.Error("handler_error", attrs...)
		} else {
			l.Warn("handler_error", attrs...)
		}

		if wantsHTML(c.Request()) {
			kind := "error"
			if ae.Status >= 400 && ae.Status < 500 {
				kind = "warning"
			}
			if err := AddFlash(c, kind, userMessage(ae)); err != nil {
				l.Error("cannot add flash message", "error", err)
			}
			_ = c.Redirect(http.StatusSeeOther, errorRedirectTarget(c, ae))
			return
		}

		_ = c.JSON(ae.Status, map[string]any{
			"error":      userMessage(ae),
			"error_code": ae.Code,
			"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
		})
	}
}

// errorRedirectTarget picks the explicit redirect of the error, then the
// referer when it points to this host, then the home page.
func errorRedirectTarget(c echo.Context, ae *appError) string {
	if ae.Redirect != "" {
		return ae.Redirect
	}
	if ref := c.Request().Referer(); ref != "" {
		if target := localPath(ref, c.Request().Host); target != "" && target != c.Request().URL.RequestURI() {
			return target
		}
	}
	return "/"
}

func requestLog(c echo.Context, fallback *slog.Logger) *slog.Logger {
	if l, ok := c.Get("logger").(*slog.Logger); ok && l != nil {
		return l
	}
	if fallback != nil {
		return fallback
	}
	return slog.Default()
}

func userMessage(ae *appError) string {
	if ae.Public != "" {
		return ae.Public
	}
	switch ae.Code {
	case "INVALID_INPUT":
		return "The input is invalid. Please check it and submit again."
	case "NOT_FOUND":
		return "The requested page could not be found."
	case "METHOD_NOT_ALLOWED":
		return "This HTTP method is not supported here."
	default:
		return "An error occurred. Please try again later."
	}
}

func wantsHTML(r *http.Request) bool { return strings.Contains(r.Header.Get("Accept"), "text/html") }

func httpStatusToCode(status int) string {
	switch status {
	case 400:
		return "INVALID_INPUT"
	case 401:
		return "UNAUTHORIZED"
	case 403:
		return "FORBIDDEN"
	case 404:
		return "NOT_FOUND"
	case 405:
		return "METHOD_NOT_ALLOWED"
	default:
		if status >= 500 {
			return "INTERNAL"
		}
		return "ERROR"
	}
}

func shouldSkipAccessLog(c echo.Context) bool {
	p := c.Request().URL.Path
	if strings.HasPrefix(p, "/static/") {
		return true
	}
	switch p {
	case "/favicon.ico", "/robots.txt":
		return true
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".css", ".js", ".map", ".png", ".jpg", ".jpeg", ".svg", ".ico", ".webp":
		return true
	}
	m := c.Request().Method
	return m == http.MethodHead || m == http.MethodOptions
}
