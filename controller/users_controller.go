package controller

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ellarises/portal/model"

	"github.com/labstack/echo/v4"
)

// usersInit registers the staff account routes. All of them, the list
// included, need a manager.
func (ctrl *controller) usersInit(e *echo.Echo) {
	g := e.Group("/users", ctrl.managerChain()...)
	g.GET("/add", ctrl.userAdd)
	g.POST("/add", ctrl.userAdd)
	g.GET("/edit/:id", ctrl.userEdit)
	g.POST("/edit/:id", ctrl.userEdit)
	g.POST("/delete/:id", ctrl.userDelete)
	e.GET("/users", ctrl.usersList, ctrl.listChain("users")...)
}

type userForm struct {
	FirstName string `form:"first_name"`
	LastName  string `form:"last_name"`
	Email     string `form:"email"`
	Role      string `form:"role"`
	Password  string `form:"password"`
}

// validate checks the required fields. The password is only required for
// new accounts.
func (uf *userForm) validate(isNew bool) string {
	uf.FirstName = strings.TrimSpace(uf.FirstName)
	uf.LastName = strings.TrimSpace(uf.LastName)
	uf.Email = model.NormalizeEmail(uf.Email)
	switch {
	case uf.FirstName == "" || uf.LastName == "" || uf.Email == "":
		return "First name, last name and email are required."
	case !model.ValidRole(uf.Role):
		return "Please choose a valid role."
	case isNew && uf.Password == "":
		return "Password is required."
	case uf.Password != "" && len(uf.Password) < model.MinPasswordLength:
		return fmt.Sprintf("Password must be at least %d characters long.", model.MinPasswordLength)
	}
	return ""
}

func (uf userForm) toModel() *model.User {
	return &model.User{
		FirstName: uf.FirstName,
		LastName:  uf.LastName,
		Email:     uf.Email,
		Role:      uf.Role,
	}
}

func (ctrl *controller) usersList(c echo.Context) error {
	q := listQuery(c, "search", "page")
	result, err := ctrl.model.ListUsers(q)
	if err != nil {
		return ErrStore(err, "/")
	}
	m := ctrl.defaultResponseMap(c, "Users")
	m["users"] = result
	m["search"] = q.Raw
	return c.Render(http.StatusOK, "users.html", m)
}

func (ctrl *controller) renderUserForm(c echo.Context, status int, id uint, uf userForm, errMsg string) error {
	m := ctrl.defaultResponseMap(c, "Add User")
	m["action"] = "/users/add"
	m["submit"] = "Add User"
	if id != 0 {
		m["title"] = "Edit User"
		m["action"] = fmt.Sprintf("/users/edit/%d", id)
		m["submit"] = "Save Changes"
		m["id"] = id
	}
	m["cancel"] = "/users"
	// never send a password back to the browser
	uf.Password = ""
	m["form"] = uf
	m["roles"] = model.Roles
	if errMsg != "" {
		m["error"] = errMsg
	}
	return c.Render(status, "useredit.html", m)
}

func (ctrl *controller) userAdd(c echo.Context) error {
	if c.Request().Method == http.MethodGet {
		return ctrl.renderUserForm(c, http.StatusOK, 0, userForm{Role: model.RoleCommon}, "")
	}
	var uf userForm
	if err := decodeForm(c, &uf); err != nil {
		return err
	}
	if msg := uf.validate(true); msg != "" {
		return ctrl.renderUserForm(c, http.StatusUnprocessableEntity, 0, uf, msg)
	}
	hash, err := model.HashPassword(uf.Password)
	if err != nil {
		return ErrInternal(err)
	}
	u := uf.toModel()
	u.Password = hash
	if err := ctrl.model.CreateUser(u); err != nil {
		if errors.Is(err, model.ErrEmailTaken) {
			return ctrl.renderUserForm(c, http.StatusUnprocessableEntity, 0, uf, "An account with this email already exists.")
		}
		if msg, ok := validationMessage(err); ok {
			return ctrl.renderUserForm(c, http.StatusUnprocessableEntity, 0, uf, msg)
		}
		return ErrStore(err, "/users/add")
	}
	return flashRedirect(c, "success", "User added successfully!", "/users")
}

// userEdit updates a staff account. A blank password keeps the stored
// credential. Editing one's own account refreshes the session snapshot.
func (ctrl *controller) userEdit(c echo.Context) error {
	id, ok := paramID(c)
	if !ok {
		return c.Redirect(http.StatusSeeOther, "/users")
	}
	if c.Request().Method == http.MethodGet {
		u, err := ctrl.model.GetUserByID(id)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return c.Redirect(http.StatusSeeOther, "/users")
			}
			return ErrStore(err, "/users")
		}
		return ctrl.renderUserForm(c, http.StatusOK, id, userForm{
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Email:     u.Email,
			Role:      u.Role,
		}, "")
	}

	var uf userForm
	if err := decodeForm(c, &uf); err != nil {
		return err
	}
	if msg := uf.validate(false); msg != "" {
		return ctrl.renderUserForm(c, http.StatusUnprocessableEntity, id, uf, msg)
	}
	u := uf.toModel()
	u.ID = id
	if err := ctrl.model.UpdateUser(u, uf.Password); err != nil {
		switch {
		case errors.Is(err, model.ErrEmailTaken):
			return ctrl.renderUserForm(c, http.StatusUnprocessableEntity, id, uf, "An account with this email already exists.")
		case errors.Is(err, model.ErrNotFound):
			return c.Redirect(http.StatusSeeOther, "/users")
		}
		if msg, ok := validationMessage(err); ok {
			return ctrl.renderUserForm(c, http.StatusUnprocessableEntity, id, uf, msg)
		}
		return ErrStore(err, fmt.Sprintf("/users/edit/%d", id))
	}

	if me, ok := currentUser(c); ok && me.ID == id {
		sw, err := LoadSession(c)
		if err != nil {
			return ErrInternal(err)
		}
		sw.SetUser(SessionUser{ID: id, FirstName: u.FirstName, Role: u.Role})
		if err := sw.Save(); err != nil {
			return ErrInternal(err)
		}
	}
	return flashRedirect(c, "success", "User updated successfully!", "/users")
}

// userDelete removes a staff account. Deleting the account of the current
// session is refused.
func (ctrl *controller) userDelete(c echo.Context) error {
	id, ok := paramID(c)
	if !ok {
		return c.Redirect(http.StatusSeeOther, "/users")
	}
	if me, ok := currentUser(c); ok && me.ID == id {
		return flashRedirect(c, "error", msgCannotDeleteSelf, "/users")
	}
	if err := ctrl.model.DeleteUser(id); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return c.Redirect(http.StatusSeeOther, "/users")
		}
		return ErrStore(err, "/users")
	}
	logWith(c).Info("user deleted", "deleted_uid", id)
	return flashRedirect(c, "success", "User deleted successfully!", "/users")
}
