package controller

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ellarises/portal/model"

	"github.com/labstack/echo/v4"
)

// login handles GET (render form) and POST (authenticate).
// A successful POST stores the identity snapshot and sends the user to the
// remembered return-to URL.
func (ctrl *controller) login(c echo.Context) error {
	sw, err := LoadSession(c)
	if err != nil {
		return ErrInternal(fmt.Errorf("cannot load session: %w", err))
	}

	if c.Request().Method == http.MethodGet {
		if target := ctrl.loginReturnTo(c, sw); target != "" {
			sw.SetReturnTo(target)
			if err := sw.Save(); err != nil {
				return ErrInternal(fmt.Errorf("cannot save session: %w", err))
			}
		}
		m := ctrl.defaultResponseMap(c, "Login")
		return c.Render(http.StatusOK, "login.html", m)
	}

	email := model.NormalizeEmail(c.FormValue("email"))
	password := c.FormValue("password")
	remember := c.FormValue("rememberMe") != ""

	// do not leak whether the account exists
	user, err := ctrl.model.AuthenticateUser(email, password)
	if err != nil {
		if errors.Is(err, model.ErrInvalidCredentials) {
			logWith(c).Info("login failed", "email", email)
			if err := AddFlash(c, "error", msgInvalidCreds); err != nil {
				return err
			}
			return c.Redirect(http.StatusSeeOther, "/login")
		}
		return ErrStore(err, "/login")
	}

	sw.SetUser(SessionUser{ID: user.ID, FirstName: user.FirstName, Role: user.Role})
	sw.Values()[keyPersist] = remember
	target := sw.PopReturnTo()
	if err := sw.Save(); err != nil {
		return ErrInternal(fmt.Errorf("cannot save session: %w", err))
	}
	logWith(c).Info("login", "uid", user.ID, "role", user.Role)
	return c.Redirect(http.StatusSeeOther, target)
}

// loginReturnTo decides which URL a GET /login should remember. An explicit
// ?returnTo wins, then a URL stored by the auth guard, then the referer.
func (ctrl *controller) loginReturnTo(c echo.Context, sw *SessionWriter) string {
	host := c.Request().Host
	if target := localPath(c.QueryParam("returnTo"), host); target != "" {
		return target
	}
	if stored, _ := sw.Values()[keyReturnTo].(string); stored != "" {
		return ""
	}
	target := localPath(c.Request().Referer(), host)
	if target == "" || strings.HasPrefix(target, "/login") || strings.HasPrefix(target, "/register") {
		return ""
	}
	return target
}

// logout removes the identity snapshot. The session itself stays so that the
// flash survives the redirect.
func (ctrl *controller) logout(c echo.Context) error {
	sw, err := LoadSession(c)
	if err != nil {
		return ErrInternal(fmt.Errorf("cannot load session: %w", err))
	}
	sw.ClearUser()
	delete(sw.Values(), keyReturnTo)
	sw.AddFlash(Flash{Kind: "success", Message: "You have been logged out."})
	if err := sw.Save(); err != nil {
		return ErrInternal(fmt.Errorf("cannot save session: %w", err))
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

type registerForm struct {
	FirstName       string `form:"firstName"`
	LastName        string `form:"lastName"`
	Email           string `form:"email"`
	Password        string `form:"password"`
	ConfirmPassword string `form:"confirmPassword"`
}

func (f *registerForm) validate() string {
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
	f.Email = model.NormalizeEmail(f.Email)
	switch {
	case f.FirstName == "" || f.LastName == "" || f.Email == "" || f.Password == "" || f.ConfirmPassword == "":
		return "All fields are required."
	case f.Password != f.ConfirmPassword:
		return "Passwords do not match."
	case len(f.Password) < model.MinPasswordLength:
		return fmt.Sprintf("Password must be at least %d characters long.", model.MinPasswordLength)
	}
	return ""
}

// register handles GET (render form) and POST (create a common user).
func (ctrl *controller) register(c echo.Context) error {
	if !ctrl.model.Config.RegistrationAllowed {
		return echo.NewHTTPError(http.StatusForbidden, "Registration is disabled")
	}
	if c.Request().Method == http.MethodGet {
		m := ctrl.defaultResponseMap(c, "Register")
		m["form"] = registerForm{}
		return c.Render(http.StatusOK, "register.html", m)
	}

	var rf registerForm
	if err := decodeForm(c, &rf); err != nil {
		return err
	}
	rerender := func(msg string) error {
		m := ctrl.defaultResponseMap(c, "Register")
		rf.Password, rf.ConfirmPassword = "", ""
		m["form"] = rf
		m["error"] = msg
		return c.Render(http.StatusUnprocessableEntity, "register.html", m)
	}
	if msg := rf.validate(); msg != "" {
		return rerender(msg)
	}

	hash, err := model.HashPassword(rf.Password)
	if err != nil {
		return ErrInternal(err)
	}
	user := &model.User{
		FirstName: rf.FirstName,
		LastName:  rf.LastName,
		Email:     rf.Email,
		Password:  hash,
		Role:      model.RoleCommon,
	}
	if err := ctrl.model.CreateUser(user); err != nil {
		if errors.Is(err, model.ErrEmailTaken) {
			return rerender("An account with this email already exists.")
		}
		return ErrStore(err, "/register")
	}
	logWith(c).Info("user registered", "uid", user.ID)

	body := fmt.Sprintf("Hello %s,\n\nyour Ella Rises account has been created. You can log in with %s.\n", user.FirstName, user.Email)
	if err := ctrl.sendEmail(user.Email, "Welcome to Ella Rises", body); err != nil {
		logWith(c).Warn("cannot send welcome mail", "error", err)
	}

	if err := AddFlash(c, "success", "Account created successfully! Please login."); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/login")
}
