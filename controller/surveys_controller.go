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

func (ctrl *controller) surveysInit(e *echo.Echo) {
	e.GET("/surveys/view/:id", ctrl.surveyView, ctrl.authMiddleware)
	g := e.Group("/surveys", ctrl.managerChain()...)
	g.GET("/add", ctrl.surveyAdd)
	g.POST("/add", ctrl.surveyAdd)
	g.GET("/edit/:id", ctrl.surveyEdit)
	g.POST("/edit/:id", ctrl.surveyEdit)
	g.POST("/delete/:id", ctrl.surveyDelete)
	e.GET("/surveys", ctrl.surveysList, ctrl.listChain("surveys")...)
}

type surveyForm struct {
	ParticipantID       string `form:"participant_id"`
	EventID             string `form:"event_id"`
	SatisfactionScore   string `form:"satisfaction_score"`
	UsefulnessScore     string `form:"usefulness_score"`
	InstructorScore     string `form:"instructor_score"`
	RecommendationScore string `form:"recommendation_score"`
	OverallScore        string `form:"overall_score"`
	NPSBucket           string `form:"nps_bucket"`
	Comments            string `form:"comments"`
	SubmissionDate      string `form:"submission_date"`
	SubmissionTime      string `form:"submission_time"`
}

func (sf surveyForm) toModel() *model.Survey {
	return &model.Survey{
		SatisfactionScore:   scaleInt(sf.SatisfactionScore, 1, 5),
		UsefulnessScore:     scaleInt(sf.UsefulnessScore, 1, 5),
		InstructorScore:     scaleInt(sf.InstructorScore, 1, 5),
		RecommendationScore: scaleInt(sf.RecommendationScore, 0, 10),
		OverallScore:        optionalDecimal(sf.OverallScore),
		NPSBucket:           strings.TrimSpace(sf.NPSBucket),
		Comments:            strings.TrimSpace(sf.Comments),
		SubmissionDate:      optionalDate(sf.SubmissionDate),
		SubmissionTime:      strings.TrimSpace(sf.SubmissionTime),
	}
}

func surveyFormFrom(sv *model.Survey) surveyForm {
	sf := surveyForm{
		ParticipantID:       strconv.FormatUint(uint64(sv.Registration.ParticipantID), 10),
		EventID:             strconv.FormatUint(uint64(sv.Registration.EventID), 10),
		SatisfactionScore:   intString(sv.SatisfactionScore),
		UsefulnessScore:     intString(sv.UsefulnessScore),
		InstructorScore:     intString(sv.InstructorScore),
		RecommendationScore: intString(sv.RecommendationScore),
		NPSBucket:           sv.NPSBucket,
		Comments:            sv.Comments,
		SubmissionDate:      dateString(sv.SubmissionDate),
		SubmissionTime:      sv.SubmissionTime,
	}
	if sv.OverallScore.Valid {
		sf.OverallScore = sv.OverallScore.Decimal.String()
	}
	return sf
}

func (ctrl *controller) surveysList(c echo.Context) error {
	q := listQuery(c, "search", "page")
	result, err := ctrl.model.ListSurveys(q)
	if err != nil {
		return ErrStore(err, "/")
	}
	m := ctrl.defaultResponseMap(c, "Surveys")
	m["surveys"] = result
	m["search"] = q.Raw
	return c.Render(http.StatusOK, "surveys.html", m)
}

func (ctrl *controller) surveyView(c echo.Context) error {
	id, ok := paramID(c)
	if !ok {
		return c.Redirect(http.StatusSeeOther, "/surveys")
	}
	sv, err := ctrl.model.GetSurvey(id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return c.Redirect(http.StatusSeeOther, "/surveys")
		}
		return ErrStore(err, "/surveys")
	}
	m := ctrl.defaultResponseMap(c, "Survey Details")
	m["survey"] = sv
	return c.Render(http.StatusOK, "surveyview.html", m)
}

func (ctrl *controller) renderSurveyForm(c echo.Context, status int, id uint, sf surveyForm, errMsg string) error {
	participants, err := ctrl.model.AllParticipants()
	if err != nil {
		return ErrStore(err, "/surveys")
	}
	events, err := ctrl.model.AllEvents()
	if err != nil {
		return ErrStore(err, "/surveys")
	}
	m := ctrl.defaultResponseMap(c, "Add Survey")
	m["action"] = "/surveys/add"
	m["submit"] = "Add Survey"
	if id != 0 {
		m["title"] = "Edit Survey"
		m["action"] = fmt.Sprintf("/surveys/edit/%d", id)
		m["submit"] = "Save Changes"
		m["id"] = id
	}
	m["cancel"] = "/surveys"
	m["form"] = sf
	m["participants"] = participants
	m["events"] = events
	if errMsg != "" {
		m["error"] = errMsg
	}
	return c.Render(status, "surveyedit.html", m)
}

// surveyAdd creates a survey. A missing registration for the selected
// participant and event is created on the fly and reused afterwards.
func (ctrl *controller) surveyAdd(c echo.Context) error {
	if c.Request().Method == http.MethodGet {
		return ctrl.renderSurveyForm(c, http.StatusOK, 0, surveyForm{}, "")
	}
	var sf surveyForm
	if err := decodeForm(c, &sf); err != nil {
		return err
	}
	sv := sf.toModel()
	if err := ctrl.model.CreateSurvey(sv, formID(sf.ParticipantID), formID(sf.EventID)); err != nil {
		if msg, ok := validationMessage(err); ok {
			return ctrl.renderSurveyForm(c, http.StatusUnprocessableEntity, 0, sf, msg)
		}
		return ErrStore(err, "/surveys/add")
	}
	return flashRedirect(c, "success", "Survey added successfully!", "/surveys")
}

// surveyEdit rewrites a survey. The participant must already be registered
// for the selected event.
func (ctrl *controller) surveyEdit(c echo.Context) error {
	id, ok := paramID(c)
	if !ok {
		return c.Redirect(http.StatusSeeOther, "/surveys")
	}
	if c.Request().Method == http.MethodGet {
		sv, err := ctrl.model.GetSurvey(id)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return c.Redirect(http.StatusSeeOther, "/surveys")
			}
			return ErrStore(err, "/surveys")
		}
		return ctrl.renderSurveyForm(c, http.StatusOK, id, surveyFormFrom(sv), "")
	}

	var sf surveyForm
	if err := decodeForm(c, &sf); err != nil {
		return err
	}
	sv := sf.toModel()
	sv.ID = id
	if err := ctrl.model.UpdateSurvey(sv, formID(sf.ParticipantID), formID(sf.EventID)); err != nil {
		if msg, ok := validationMessage(err); ok {
			return ctrl.renderSurveyForm(c, http.StatusUnprocessableEntity, id, sf, msg)
		}
		if errors.Is(err, model.ErrNotFound) {
			return c.Redirect(http.StatusSeeOther, "/surveys")
		}
		return ErrStore(err, fmt.Sprintf("/surveys/edit/%d", id))
	}
	return flashRedirect(c, "success", "Survey updated successfully!", "/surveys")
}

func (ctrl *controller) surveyDelete(c echo.Context) error {
	id, ok := paramID(c)
	if !ok {
		return c.Redirect(http.StatusSeeOther, "/surveys")
	}
	if err := ctrl.model.DeleteSurvey(id); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return c.Redirect(http.StatusSeeOther, "/surveys")
		}
		return ErrStore(err, "/surveys")
	}
	return flashRedirect(c, "success", "Survey deleted successfully!", "/surveys")
}
