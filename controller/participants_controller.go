package controller

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ellarises/portal/model"

	"github.com/labstack/echo/v4"
)

// participantsInit registers the participant routes. Listing follows the
// listing policy, everything else needs a manager.
func (ctrl *controller) participantsInit(e *echo.Echo) {
	g := e.Group("/participants", ctrl.managerChain()...)
	g.GET("/add", ctrl.participantAdd)
	g.POST("/add", ctrl.participantAdd)
	g.GET("/edit/:id", ctrl.participantEdit)
	g.POST("/edit/:id", ctrl.participantEdit)
	g.POST("/delete/:id", ctrl.participantDelete)
	g.GET("/export", ctrl.participantsExport)
	e.GET("/participants", ctrl.participantsList, ctrl.listChain("participants")...)
}

// participantForm models the HTML form payload for creating/updating a participant.
type participantForm struct {
	FirstName        string `form:"first_name"`
	LastName         string `form:"last_name"`
	Email            string `form:"email"`
	DOB              string `form:"dob"`
	Phone            string `form:"phone"`
	City             string `form:"city"`
	State            string `form:"state"`
	ZIP              string `form:"zip"`
	SchoolOrEmployer string `form:"school_or_employer"`
	FieldOfInterest  string `form:"field_of_interest"`
	TotalDonations   string `form:"total_donations"`
}

func (pf participantForm) toModel() *model.Participant {
	return &model.Participant{
		FirstName:        strings.TrimSpace(pf.FirstName),
		LastName:         strings.TrimSpace(pf.LastName),
		Email:            model.NormalizeEmail(pf.Email),
		DOB:              optionalDate(pf.DOB),
		Phone:            strings.TrimSpace(pf.Phone),
		City:             strings.TrimSpace(pf.City),
		State:            strings.TrimSpace(pf.State),
		ZIP:              strings.TrimSpace(pf.ZIP),
		SchoolOrEmployer: strings.TrimSpace(pf.SchoolOrEmployer),
		FieldOfInterest:  strings.TrimSpace(pf.FieldOfInterest),
		TotalDonations:   decimalOrZero(pf.TotalDonations),
	}
}

func participantFormFrom(p *model.Participant) participantForm {
	return participantForm{
		FirstName:        p.FirstName,
		LastName:         p.LastName,
		Email:            p.Email,
		DOB:              dateString(p.DOB),
		Phone:            p.Phone,
		City:             p.City,
		State:            p.State,
		ZIP:              p.ZIP,
		SchoolOrEmployer: p.SchoolOrEmployer,
		FieldOfInterest:  p.FieldOfInterest,
		TotalDonations:   p.TotalDonations.StringFixed(2),
	}
}

func (ctrl *controller) participantsList(c echo.Context) error {
	q := listQuery(c, "search", "page")
	result, err := ctrl.model.ListParticipants(q)
	if err != nil {
		return ErrStore(err, "/")
	}
	m := ctrl.defaultResponseMap(c, "Participants")
	m["participants"] = result
	m["search"] = q.Raw
	return c.Render(http.StatusOK, "participants.html", m)
}

func (ctrl *controller) renderParticipantForm(c echo.Context, status int, id uint, pf participantForm, errMsg string) error {
	m := ctrl.defaultResponseMap(c, "Add Participant")
	m["action"] = "/participants/add"
	m["submit"] = "Add Participant"
	if id != 0 {
		m["title"] = "Edit Participant"
		m["action"] = fmt.Sprintf("/participants/edit/%d", id)
		m["submit"] = "Save Changes"
		m["id"] = id
	}
	m["cancel"] = "/participants"
	m["form"] = pf
	if errMsg != "" {
		m["error"] = errMsg
	}
	return c.Render(status, "participantedit.html", m)
}

func (ctrl *controller) participantAdd(c echo.Context) error {
	if c.Request().Method == http.MethodGet {
		return ctrl.renderParticipantForm(c, http.StatusOK, 0, participantForm{TotalDonations: "0.00"}, "")
	}
	var pf participantForm
	if err := decodeForm(c, &pf); err != nil {
		return err
	}
	p := pf.toModel()
	if err := ctrl.model.CreateParticipant(p); err != nil {
		if msg, ok := validationMessage(err); ok {
			return ctrl.renderParticipantForm(c, http.StatusUnprocessableEntity, 0, pf, msg)
		}
		return ErrStore(err, "/participants/add")
	}
	return flashRedirect(c, "success", "Participant added successfully!", "/participants")
}

func (ctrl *controller) participantEdit(c echo.Context) error {
	id, ok := paramID(c)
	if !ok {
		return c.Redirect(http.StatusSeeOther, "/participants")
	}
	if c.Request().Method == http.MethodGet {
		p, err := ctrl.model.GetParticipant(id)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return c.Redirect(http.StatusSeeOther, "/participants")
			}
			return ErrStore(err, "/participants")
		}
		return ctrl.renderParticipantForm(c, http.StatusOK, id, participantFormFrom(p), "")
	}

	var pf participantForm
	if err := decodeForm(c, &pf); err != nil {
		return err
	}
	p := pf.toModel()
	p.ID = id
	if err := ctrl.model.UpdateParticipant(p); err != nil {
		if msg, ok := validationMessage(err); ok {
			return ctrl.renderParticipantForm(c, http.StatusUnprocessableEntity, id, pf, msg)
		}
		if errors.Is(err, model.ErrNotFound) {
			return c.Redirect(http.StatusSeeOther, "/participants")
		}
		return ErrStore(err, fmt.Sprintf("/participants/edit/%d", id))
	}
	return flashRedirect(c, "success", "Participant updated successfully!", "/participants")
}

func (ctrl *controller) participantDelete(c echo.Context) error {
	id, ok := paramID(c)
	if !ok {
		return c.Redirect(http.StatusSeeOther, "/participants")
	}
	if err := ctrl.model.DeleteParticipant(id); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return c.Redirect(http.StatusSeeOther, "/participants")
		}
		return ErrStore(err, "/participants")
	}
	return flashRedirect(c, "success", "Participant deleted successfully!", "/participants")
}

// flashRedirect queues a flash and answers with 303 to target.
func flashRedirect(c echo.Context, kind, msg, target string) error {
	if err := AddFlash(c, kind, msg); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, target)
}
