package controller

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// root renders the public home page with the participant count and the
// total of all donations.
func (ctrl *controller) root(c echo.Context) error {
	m := ctrl.defaultResponseMap(c, "Ella Rises")
	stats, err := ctrl.model.LoadHomeStats()
	if err != nil {
		// the home page must render even when the numbers are unavailable
		logWith(c).Error("cannot load home stats", "error", err)
	}
	m["participantCount"] = stats.Participants
	m["totalDonations"] = stats.TotalDonations.StringFixed(2)
	return c.Render(http.StatusOK, "index.html", m)
}

func (ctrl *controller) dashboard(c echo.Context) error {
	m := ctrl.defaultResponseMap(c, "Ella Rises Dashboard")
	return c.Render(http.StatusOK, "dashboard.html", m)
}

func (ctrl *controller) teapot(c echo.Context) error {
	return c.String(http.StatusTeapot, "I'm a teapot")
}
