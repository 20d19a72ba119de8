package controller

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
)

// session keys
const (
	sessionName     = "session"
	keyUserID       = "uid"
	keyUserName     = "name"
	keyUserRole     = "role"
	keyReturnTo     = "returnTo"
	keyPersist      = "persist"
	ctxUser         = "user"
	defaultReturnTo = "/"
)

// SessionUser is the identity snapshot kept in the session. It never holds
// the credential.
type SessionUser struct {
	ID        uint
	FirstName string
	Role      string
}

// SessionWriter is a thin wrapper around gorilla/sessions that ensures
// cookie options (MaxAge, Secure, Domain, SameSite) are applied consistently
// before saving. This avoids overwriting a persistent "remember me" cookie
// with a temporary one when saving flash messages or other values.
type SessionWriter struct {
	sess *sessions.Session
	c    echo.Context
}

// LoadSession retrieves the session named "session" from the Echo context.
// It returns a SessionWriter that you should use to read/write values and Save().
func LoadSession(c echo.Context) (*SessionWriter, error) {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		if !isRecoverableSessionError(err) || sess == nil {
			return nil, err
		}
		// Treat an invalid cookie as "no session"; Save() overwrites it.
		requestLog(c, nil).Info("invalid session cookie, starting fresh", "error", err)
	}
	return &SessionWriter{sess: sess, c: c}, nil
}

// Values gives access to the session data map.
func (sw *SessionWriter) Values() map[any]any {
	return sw.sess.Values
}

// AddFlash appends a flash message to the session. It does not save automatically;
// call sw.Save() afterwards.
func (sw *SessionWriter) AddFlash(v any) {
	sw.sess.AddFlash(v)
}

// Flashes returns and removes the queued flashes. Call Save() afterwards.
func (sw *SessionWriter) Flashes() []any {
	return sw.sess.Flashes()
}

// User returns the identity snapshot, if any.
func (sw *SessionWriter) User() (*SessionUser, bool) {
	uid, ok := sw.sess.Values[keyUserID].(uint)
	if !ok || uid == 0 {
		return nil, false
	}
	name, _ := sw.sess.Values[keyUserName].(string)
	role, _ := sw.sess.Values[keyUserRole].(string)
	return &SessionUser{ID: uid, FirstName: name, Role: role}, true
}

// SetUser stores the identity snapshot.
func (sw *SessionWriter) SetUser(u SessionUser) {
	sw.sess.Values[keyUserID] = u.ID
	sw.sess.Values[keyUserName] = u.FirstName
	sw.sess.Values[keyUserRole] = u.Role
}

// ClearUser removes the identity snapshot and the remember-me flag.
func (sw *SessionWriter) ClearUser() {
	delete(sw.sess.Values, keyUserID)
	delete(sw.sess.Values, keyUserName)
	delete(sw.sess.Values, keyUserRole)
	delete(sw.sess.Values, keyPersist)
}

// SetReturnTo remembers where to go after a successful login.
func (sw *SessionWriter) SetReturnTo(uri string) {
	sw.sess.Values[keyReturnTo] = uri
}

// PopReturnTo reads and clears the return-to URL. It falls back to "/".
func (sw *SessionWriter) PopReturnTo() string {
	uri, _ := sw.sess.Values[keyReturnTo].(string)
	delete(sw.sess.Values, keyReturnTo)
	if uri == "" {
		return defaultReturnTo
	}
	return uri
}

// Save persists the session back to the client. It automatically reapplies
// cookie options based on the "persist" flag stored in the session.
func (sw *SessionWriter) Save() error {
	applySessionOptionsFromPersist(sw.c, sw.sess)
	return sw.sess.Save(sw.c.Request(), sw.c.Response())
}

// applySessionOptionsFromPersist adjusts the session.Options before saving.
// With "persist" set the cookie lives for 30 days, otherwise it is a
// browser session cookie.
func applySessionOptionsFromPersist(c echo.Context, sess *sessions.Session) {
	persist, _ := sess.Values[keyPersist].(bool)
	maxAge := 0
	if persist {
		maxAge = 60 * 60 * 24 * 30
	}

	cfg, ok := c.Get("cookiecfg").(CookieCfg)
	if !ok {
		cfg = CookieCfg{}
	}
	sess.Options = cookieOptions(maxAge, cfg)
}

// currentUser returns the identity set by identityMiddleware or authMiddleware.
func currentUser(c echo.Context) (*SessionUser, bool) {
	u, ok := c.Get(ctxUser).(*SessionUser)
	return u, ok && u != nil
}

// identityMiddleware copies the session identity (if any) into the context.
// It never blocks a request.
func (ctrl *controller) identityMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if sw, err := LoadSession(c); err == nil {
			if u, ok := sw.User(); ok {
				c.Set(ctxUser, u)
			}
		} else {
			requestLog(c, ctrl.logger).Warn("cannot load session", "error", err)
		}
		return next(c)
	}
}

// isRecoverableSessionError checks whether the given error from session.Get()
// indicates an invalid or old session cookie that can be treated as "no session".
func isRecoverableSessionError(err error) bool {
	if err == nil {
		return false
	}
	if strings.Contains(err.Error(), "securecookie: the value is not valid") {
		return true
	}
	var scErr securecookie.Error
	return errors.As(err, &scErr)
}

// logWith is a shortcut for handlers.
func logWith(c echo.Context) *slog.Logger {
	return requestLog(c, nil)
}
