package controller

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/ellarises/portal/model"

	"github.com/labstack/echo/v4"
)

// donationsInit registers participant donations and walk-in donors. Anyone
// may enter a walk-in donation; changing existing ones needs a manager.
func (ctrl *controller) donationsInit(e *echo.Echo) {
	e.GET("/donations/userdonor/add", ctrl.userDonorAdd)
	e.POST("/donations/userdonor/add", ctrl.userDonorAdd)

	g := e.Group("/donations", ctrl.managerChain()...)
	g.GET("/add", ctrl.donationAdd)
	g.POST("/add", ctrl.donationAdd)
	g.GET("/edit/:id", ctrl.donationEdit)
	g.POST("/edit/:id", ctrl.donationEdit)
	g.POST("/delete/:id", ctrl.donationDelete)
	g.GET("/export", ctrl.donationsExport)
	g.GET("/userdonor/edit/:id", ctrl.userDonorEdit)
	g.POST("/userdonor/edit/:id", ctrl.userDonorEdit)
	g.POST("/userdonor/delete/:id", ctrl.userDonorDelete)
	e.GET("/donations", ctrl.donationsList, ctrl.listChain("donations")...)
}

type donationForm struct {
	ParticipantID string `form:"participant_id"`
	Amount        string `form:"amount"`
	Date          string `form:"date"`
}

// toModel converts the form. A non-positive or malformed amount is reported
// as a validation error.
func (df donationForm) toModel() (*model.Donation, error) {
	amount, err := model.ParseAmount(df.Amount)
	if err != nil {
		return nil, err
	}
	return &model.Donation{
		ParticipantID: formID(df.ParticipantID),
		Amount:        amount,
		Date:          optionalDate(df.Date),
	}, nil
}

func donationFormFrom(d *model.Donation) donationForm {
	return donationForm{
		ParticipantID: strconv.FormatUint(uint64(d.ParticipantID), 10),
		Amount:        d.Amount.StringFixed(2),
		Date:          dateString(d.Date),
	}
}

type userDonorForm struct {
	FirstName string `form:"first_name"`
	LastName  string `form:"last_name"`
	Amount    string `form:"amount"`
	Date      string `form:"date"`
}

func (uf userDonorForm) toModel() (*model.UserDonor, error) {
	amount, err := model.ParseAmount(uf.Amount)
	if err != nil {
		return nil, err
	}
	return &model.UserDonor{
		FirstName: strings.TrimSpace(uf.FirstName),
		LastName:  strings.TrimSpace(uf.LastName),
		Amount:    amount,
		Date:      optionalDate(uf.Date),
	}, nil
}

func userDonorFormFrom(u *model.UserDonor) userDonorForm {
	return userDonorForm{
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Amount:    u.Amount.StringFixed(2),
		Date:      dateString(u.Date),
	}
}

// donationsList shows participant donations and walk-in donors on one page.
// Each list has its own search and page parameters.
func (ctrl *controller) donationsList(c echo.Context) error {
	q := listQuery(c, "search", "page")
	donations, err := ctrl.model.ListDonations(q)
	if err != nil {
		return ErrStore(err, "/")
	}
	uq := listQuery(c, "userDonorSearch", "userDonorPage")
	userDonors, err := ctrl.model.ListUserDonors(uq)
	if err != nil {
		return ErrStore(err, "/")
	}
	m := ctrl.defaultResponseMap(c, "Donations")
	m["donations"] = donations
	m["search"] = q.Raw
	m["userDonors"] = userDonors
	m["userDonorSearch"] = uq.Raw
	return c.Render(http.StatusOK, "donations.html", m)
}

func (ctrl *controller) renderDonationForm(c echo.Context, status int, id uint, df donationForm, errMsg string) error {
	participants, err := ctrl.model.AllParticipants()
	if err != nil {
		return ErrStore(err, "/donations")
	}
	m := ctrl.defaultResponseMap(c, "Add Donation")
	m["action"] = "/donations/add"
	m["submit"] = "Add Donation"
	if id != 0 {
		m["title"] = "Edit Donation"
		m["action"] = fmt.Sprintf("/donations/edit/%d", id)
		m["submit"] = "Save Changes"
		m["id"] = id
	}
	m["cancel"] = "/donations"
	m["form"] = df
	m["participants"] = participants
	if errMsg != "" {
		m["error"] = errMsg
	}
	return c.Render(status, "donationedit.html", m)
}

func (ctrl *controller) donationAdd(c echo.Context) error {
	if c.Request().Method == http.MethodGet {
		return ctrl.renderDonationForm(c, http.StatusOK, 0, donationForm{}, "")
	}
	var df donationForm
	if err := decodeForm(c, &df); err != nil {
		return err
	}
	d, err := df.toModel()
	if err == nil {
		err = ctrl.model.CreateDonation(d)
	}
	if err != nil {
		if msg, ok := validationMessage(err); ok {
			return ctrl.renderDonationForm(c, http.StatusUnprocessableEntity, 0, df, msg)
		}
		return ErrStore(err, "/donations/add")
	}
	return flashRedirect(c, "success", "Donation added successfully!", "/donations")
}

func (ctrl *controller) donationEdit(c echo.Context) error {
	id, ok := paramID(c)
	if !ok {
		return c.Redirect(http.StatusSeeOther, "/donations")
	}
	if c.Request().Method == http.MethodGet {
		d, err := ctrl.model.GetDonation(id)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return c.Redirect(http.StatusSeeOther, "/donations")
			}
			return ErrStore(err, "/donations")
		}
		return ctrl.renderDonationForm(c, http.StatusOK, id, donationFormFrom(d), "")
	}

	var df donationForm
	if err := decodeForm(c, &df); err != nil {
		return err
	}
	d, err := df.toModel()
	if err == nil {
		d.ID = id
		err = ctrl.model.UpdateDonation(d)
	}
	if err != nil {
		if msg, ok := validationMessage(err); ok {
			return ctrl.renderDonationForm(c, http.StatusUnprocessableEntity, id, df, msg)
		}
		if errors.Is(err, model.ErrNotFound) {
			return c.Redirect(http.StatusSeeOther, "/donations")
		}
		return ErrStore(err, fmt.Sprintf("/donations/edit/%d", id))
	}
	return flashRedirect(c, "success", "Donation updated successfully!", "/donations")
}

func (ctrl *controller) donationDelete(c echo.Context) error {
	id, ok := paramID(c)
	if !ok {
		return c.Redirect(http.StatusSeeOther, "/donations")
	}
	if err := ctrl.model.DeleteDonation(id); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return c.Redirect(http.StatusSeeOther, "/donations")
		}
		return ErrStore(err, "/donations")
	}
	return flashRedirect(c, "success", "Donation deleted successfully!", "/donations")
}

func (ctrl *controller) renderUserDonorForm(c echo.Context, status int, id uint, uf userDonorForm, errMsg string) error {
	m := ctrl.defaultResponseMap(c, "Make a Donation")
	m["action"] = "/donations/userdonor/add"
	m["submit"] = "Donate"
	m["cancel"] = "/"
	if id != 0 {
		m["title"] = "Edit User Donor"
		m["action"] = fmt.Sprintf("/donations/userdonor/edit/%d", id)
		m["submit"] = "Save Changes"
		m["cancel"] = "/donations"
		m["id"] = id
	}
	m["form"] = uf
	if errMsg != "" {
		m["error"] = errMsg
	}
	return c.Render(status, "userdonoredit.html", m)
}

// userDonorAdd is the public donation form.
func (ctrl *controller) userDonorAdd(c echo.Context) error {
	if c.Request().Method == http.MethodGet {
		return ctrl.renderUserDonorForm(c, http.StatusOK, 0, userDonorForm{}, "")
	}
	var uf userDonorForm
	if err := decodeForm(c, &uf); err != nil {
		return err
	}
	u, err := uf.toModel()
	if err == nil {
		err = ctrl.model.CreateUserDonor(u)
	}
	if err != nil {
		if msg, ok := validationMessage(err); ok {
			return ctrl.renderUserDonorForm(c, http.StatusUnprocessableEntity, 0, uf, msg)
		}
		return ErrStore(err, "/donations/userdonor/add")
	}
	return flashRedirect(c, "success", "User Donor added successfully!", "/donations/userdonor/add")
}

func (ctrl *controller) userDonorEdit(c echo.Context) error {
	id, ok := paramID(c)
	if !ok {
		return c.Redirect(http.StatusSeeOther, "/donations")
	}
	if c.Request().Method == http.MethodGet {
		u, err := ctrl.model.GetUserDonor(id)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return c.Redirect(http.StatusSeeOther, "/donations")
			}
			return ErrStore(err, "/donations")
		}
		return ctrl.renderUserDonorForm(c, http.StatusOK, id, userDonorFormFrom(u), "")
	}

	var uf userDonorForm
	if err := decodeForm(c, &uf); err != nil {
		return err
	}
	u, err := uf.toModel()
	if err == nil {
		u.ID = id
		err = ctrl.model.UpdateUserDonor(u)
	}
	if err != nil {
		if msg, ok := validationMessage(err); ok {
			return ctrl.renderUserDonorForm(c, http.StatusUnprocessableEntity, id, uf, msg)
		}
		if errors.Is(err, model.ErrNotFound) {
			return c.Redirect(http.StatusSeeOther, "/donations")
		}
		return ErrStore(err, fmt.Sprintf("/donations/userdonor/edit/%d", id))
	}
	return flashRedirect(c, "success", "User Donor updated successfully!", "/donations")
}

func (ctrl *controller) userDonorDelete(c echo.Context) error {
	id, ok := paramID(c)
	if !ok {
		return c.Redirect(http.StatusSeeOther, "/donations")
	}
	if err := ctrl.model.DeleteUserDonor(id); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return c.Redirect(http.StatusSeeOther, "/donations")
		}
		return ErrStore(err, "/donations")
	}
	return flashRedirect(c, "success", "User Donor deleted successfully!", "/donations")
}
