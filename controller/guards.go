package controller

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/ellarises/portal/model"

	"github.com/labstack/echo/v4"
)

const (
	msgLoginRequired    = "Please log in to view this page."
	msgMustBeLoggedIn   = "You must be logged in to view this resource."
	msgNotPermitted     = "You do not have permission to view this resource."
	msgStoreFailure     = "Something went wrong. Please try again."
	msgInvalidCreds     = "Incorrect email or password."
	msgCannotDeleteSelf = "You cannot delete your own account."
)

var (
	errUnauthenticated = errors.New("not logged in")
	errUnauthorized    = errors.New("role not permitted")
)

// RoleRequirement lists the roles allowed to pass a Role Guard.
type RoleRequirement []string

// ManagerOnly is the requirement of every mutating route.
var ManagerOnly = RoleRequirement{model.RoleManager}

// Allows reports whether role is part of the requirement.
func (r RoleRequirement) Allows(role string) bool {
	return slices.Contains(r, role)
}

// authorize is the decision of the Role Guard.
func authorize(user *SessionUser, req RoleRequirement) error {
	if user == nil || user.ID == 0 {
		return errUnauthenticated
	}
	if !req.Allows(user.Role) {
		return errUnauthorized
	}
	return nil
}

// authMiddleware lets requests with a session identity through. Anonymous
// requests are sent to /login. The requested URL is kept for after the login,
// or for anything but GET and HEAD, the list page of the resource.
func (ctrl *controller) authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		sw, err := LoadSession(c)
		if err != nil {
			return ErrInternal(fmt.Errorf("cannot load session: %w", err))
		}
		user, ok := sw.User()
		if !ok {
			sw.SetReturnTo(returnTarget(c.Request()))
			sw.AddFlash(Flash{Kind: "warning", Message: msgLoginRequired})
			if err := sw.Save(); err != nil {
				return ErrInternal(fmt.Errorf("cannot save session: %w", err))
			}
			return c.Redirect(http.StatusSeeOther, "/login")
		}
		c.Set(ctxUser, user)
		return next(c)
	}
}

// returnTarget is where a login should continue to. Form posts can't be
// replayed by a redirect, so they fall back to their resource list.
func returnTarget(r *http.Request) string {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return r.URL.RequestURI()
	}
	resource, _, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
	if resource == "" {
		return "/"
	}
	return "/" + resource
}

// requireRole returns the Role Guard for req. It runs after authMiddleware.
func (ctrl *controller) requireRole(req RoleRequirement) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, _ := currentUser(c)
			switch err := authorize(user, req); {
			case errors.Is(err, errUnauthenticated):
				if err := AddFlash(c, "warning", msgMustBeLoggedIn); err != nil {
					return err
				}
				return c.Redirect(http.StatusSeeOther, "/login")
			case errors.Is(err, errUnauthorized):
				logWith(c).Info("role not permitted", "uid", user.ID, "role", user.Role)
				if err := AddFlash(c, "error", msgNotPermitted); err != nil {
					return err
				}
				return c.Redirect(http.StatusSeeOther, "/")
			}
			return next(c)
		}
	}
}

// managerChain is the middleware chain of all add/edit/delete routes.
func (ctrl *controller) managerChain() []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{ctrl.authMiddleware, ctrl.requireRole(ManagerOnly)}
}

// listChain is the middleware chain of a list route. Lists named in
// Config.PublicLists can be browsed anonymously, the users list always
// needs a manager.
func (ctrl *controller) listChain(resource string) []echo.MiddlewareFunc {
	if resource == "users" {
		return ctrl.managerChain()
	}
	if ctrl.model.Config.IsPublicList(resource) {
		return nil
	}
	return []echo.MiddlewareFunc{ctrl.authMiddleware}
}
