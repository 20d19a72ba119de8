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

func (ctrl *controller) milestonesInit(e *echo.Echo) {
	g := e.Group("/milestones", ctrl.managerChain()...)
	g.GET("/add", ctrl.milestoneAdd)
	g.POST("/add", ctrl.milestoneAdd)
	g.GET("/edit/:id", ctrl.milestoneEdit)
	g.POST("/edit/:id", ctrl.milestoneEdit)
	g.POST("/delete/:id", ctrl.milestoneDelete)
	e.GET("/milestones", ctrl.milestonesList, ctrl.listChain("milestones")...)
}

type milestoneForm struct {
	ParticipantID string `form:"participant_id"`
	Title         string `form:"title"`
	Date          string `form:"date"`
}

func (mf milestoneForm) toModel() *model.Milestone {
	return &model.Milestone{
		ParticipantID: formID(mf.ParticipantID),
		Title:         strings.TrimSpace(mf.Title),
		Date:          optionalDate(mf.Date),
	}
}

func milestoneFormFrom(ms *model.Milestone) milestoneForm {
	return milestoneForm{
		ParticipantID: strconv.FormatUint(uint64(ms.ParticipantID), 10),
		Title:         ms.Title,
		Date:          dateString(ms.Date),
	}
}

func (ctrl *controller) milestonesList(c echo.Context) error {
	q := listQuery(c, "search", "page")
	result, err := ctrl.model.ListMilestones(q)
	if err != nil {
		return ErrStore(err, "/")
	}
	m := ctrl.defaultResponseMap(c, "Milestones")
	m["milestones"] = result
	m["search"] = q.Raw
	return c.Render(http.StatusOK, "milestones.html", m)
}

func (ctrl *controller) renderMilestoneForm(c echo.Context, status int, id uint, mf milestoneForm, errMsg string) error {
	participants, err := ctrl.model.AllParticipants()
	if err != nil {
		return ErrStore(err, "/milestones")
	}
	m := ctrl.defaultResponseMap(c, "Add Milestone")
	m["action"] = "/milestones/add"
	m["submit"] = "Add Milestone"
	if id != 0 {
		m["title"] = "Edit Milestone"
		m["action"] = fmt.Sprintf("/milestones/edit/%d", id)
		m["submit"] = "Save Changes"
		m["id"] = id
	}
	m["cancel"] = "/milestones"
	m["form"] = mf
	m["participants"] = participants
	if errMsg != "" {
		m["error"] = errMsg
	}
	return c.Render(status, "milestoneedit.html", m)
}

func (ctrl *controller) milestoneAdd(c echo.Context) error {
	if c.Request().Method == http.MethodGet {
		return ctrl.renderMilestoneForm(c, http.StatusOK, 0, milestoneForm{}, "")
	}
	var mf milestoneForm
	if err := decodeForm(c, &mf); err != nil {
		return err
	}
	if err := ctrl.model.CreateMilestone(mf.toModel()); err != nil {
		if msg, ok := validationMessage(err); ok {
			return ctrl.renderMilestoneForm(c, http.StatusUnprocessableEntity, 0, mf, msg)
		}
		return ErrStore(err, "/milestones/add")
	}
	return flashRedirect(c, "success", "Milestone added successfully!", "/milestones")
}

// milestoneEdit updates exactly the milestone named in the URL.
func (ctrl *controller) milestoneEdit(c echo.Context) error {
	id, ok := paramID(c)
	if !ok {
		return c.Redirect(http.StatusSeeOther, "/milestones")
	}
	if c.Request().Method == http.MethodGet {
		ms, err := ctrl.model.GetMilestone(id)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return c.Redirect(http.StatusSeeOther, "/milestones")
			}
			return ErrStore(err, "/milestones")
		}
		return ctrl.renderMilestoneForm(c, http.StatusOK, id, milestoneFormFrom(ms), "")
	}

	var mf milestoneForm
	if err := decodeForm(c, &mf); err != nil {
		return err
	}
	ms := mf.toModel()
	ms.ID = id
	if err := ctrl.model.UpdateMilestone(ms); err != nil {
		if msg, ok := validationMessage(err); ok {
			return ctrl.renderMilestoneForm(c, http.StatusUnprocessableEntity, id, mf, msg)
		}
		if errors.Is(err, model.ErrNotFound) {
			return c.Redirect(http.StatusSeeOther, "/milestones")
		}
		return ErrStore(err, fmt.Sprintf("/milestones/edit/%d", id))
	}
	return flashRedirect(c, "success", "Milestone updated successfully!", "/milestones")
}

func (ctrl *controller) milestoneDelete(c echo.Context) error {
	id, ok := paramID(c)
	if !ok {
		return c.Redirect(http.StatusSeeOther, "/milestones")
	}
	if err := ctrl.model.DeleteMilestone(id); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return c.Redirect(http.StatusSeeOther, "/milestones")
		}
		return ErrStore(err, "/milestones")
	}
	return flashRedirect(c, "success", "Milestone deleted successfully!", "/milestones")
}
