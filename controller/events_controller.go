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

func (ctrl *controller) eventsInit(e *echo.Echo) {
	g := e.Group("/events", ctrl.managerChain()...)
	g.GET("/add", ctrl.eventAdd)
	g.POST("/add", ctrl.eventAdd)
	g.GET("/edit/:id", ctrl.eventEdit)
	g.POST("/edit/:id", ctrl.eventEdit)
	g.POST("/delete/:id", ctrl.eventDelete)
	e.GET("/events", ctrl.eventsList, ctrl.listChain("events")...)
}

type eventForm struct {
	Name                 string `form:"name"`
	Date                 string `form:"date"`
	TimeStart            string `form:"time_start"`
	TimeEnd              string `form:"time_end"`
	Location             string `form:"location"`
	Capacity             string `form:"capacity"`
	RegistrationDeadline string `form:"registration_deadline"`
	TemplateID           string `form:"template_id"`
}

func (ef eventForm) toModel() *model.Event {
	return &model.Event{
		Name:                 strings.TrimSpace(ef.Name),
		Date:                 requiredDate(ef.Date),
		TimeStart:            strings.TrimSpace(ef.TimeStart),
		TimeEnd:              strings.TrimSpace(ef.TimeEnd),
		Location:             strings.TrimSpace(ef.Location),
		Capacity:             optionalInt(ef.Capacity),
		RegistrationDeadline: optionalDate(ef.RegistrationDeadline),
		TemplateID:           formID(ef.TemplateID),
	}
}

func eventFormFrom(e *model.Event) eventForm {
	return eventForm{
		Name:                 e.Name,
		Date:                 dateString(&e.Date),
		TimeStart:            e.TimeStart,
		TimeEnd:              e.TimeEnd,
		Location:             e.Location,
		Capacity:             intString(e.Capacity),
		RegistrationDeadline: dateString(e.RegistrationDeadline),
		TemplateID:           strconv.FormatUint(uint64(e.TemplateID), 10),
	}
}

func (ctrl *controller) eventsList(c echo.Context) error {
	q := listQuery(c, "search", "page")
	result, err := ctrl.model.ListEvents(q)
	if err != nil {
		return ErrStore(err, "/")
	}
	m := ctrl.defaultResponseMap(c, "Events")
	m["events"] = result
	m["search"] = q.Raw
	return c.Render(http.StatusOK, "events.html", m)
}

func (ctrl *controller) renderEventForm(c echo.Context, status int, id uint, ef eventForm, errMsg string) error {
	templates, err := ctrl.model.ListEventTemplates()
	if err != nil {
		return ErrStore(err, "/events")
	}
	m := ctrl.defaultResponseMap(c, "Add Event")
	m["action"] = "/events/add"
	m["submit"] = "Add Event"
	if id != 0 {
		m["title"] = "Edit Event"
		m["action"] = fmt.Sprintf("/events/edit/%d", id)
		m["submit"] = "Save Changes"
		m["id"] = id
	}
	m["cancel"] = "/events"
	m["form"] = ef
	m["templates"] = templates
	if errMsg != "" {
		m["error"] = errMsg
	}
	return c.Render(status, "eventedit.html", m)
}

func (ctrl *controller) eventAdd(c echo.Context) error {
	if c.Request().Method == http.MethodGet {
		return ctrl.renderEventForm(c, http.StatusOK, 0, eventForm{}, "")
	}
	var ef eventForm
	if err := decodeForm(c, &ef); err != nil {
		return err
	}
	if err := ctrl.model.CreateEvent(ef.toModel()); err != nil {
		if msg, ok := validationMessage(err); ok {
			return ctrl.renderEventForm(c, http.StatusUnprocessableEntity, 0, ef, msg)
		}
		return ErrStore(err, "/events/add")
	}
	return flashRedirect(c, "success", "Event added successfully!", "/events")
}

func (ctrl *controller) eventEdit(c echo.Context) error {
	id, ok := paramID(c)
	if !ok {
		return c.Redirect(http.StatusSeeOther, "/events")
	}
	if c.Request().Method == http.MethodGet {
		ev, err := ctrl.model.GetEvent(id)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return c.Redirect(http.StatusSeeOther, "/events")
			}
			return ErrStore(err, "/events")
		}
		return ctrl.renderEventForm(c, http.StatusOK, id, eventFormFrom(ev), "")
	}

	var ef eventForm
	if err := decodeForm(c, &ef); err != nil {
		return err
	}
	ev := ef.toModel()
	ev.ID = id
	if err := ctrl.model.UpdateEvent(ev); err != nil {
		if msg, ok := validationMessage(err); ok {
			return ctrl.renderEventForm(c, http.StatusUnprocessableEntity, id, ef, msg)
		}
		if errors.Is(err, model.ErrNotFound) {
			return c.Redirect(http.StatusSeeOther, "/events")
		}
		return ErrStore(err, fmt.Sprintf("/events/edit/%d", id))
	}
	return flashRedirect(c, "success", "Event updated successfully!", "/events")
}

func (ctrl *controller) eventDelete(c echo.Context) error {
	id, ok := paramID(c)
	if !ok {
		return c.Redirect(http.StatusSeeOther, "/events")
	}
	if err := ctrl.model.DeleteEvent(id); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return c.Redirect(http.StatusSeeOther, "/events")
		}
		return ErrStore(err, "/events")
	}
	return flashRedirect(c, "success", "Event deleted successfully!", "/events")
}
