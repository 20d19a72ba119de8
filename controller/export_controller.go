package controller

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ellarises/portal/model"

	"github.com/labstack/echo/v4"
	"github.com/xuri/excelize/v2"
)

const mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// buildWorkbook writes one sheet with a bold header row followed by rows.
func buildWorkbook(sheet string, header []string, rows [][]any) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	for col, title := range header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, title); err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(sheet, cell, cell, bold); err != nil {
			return nil, err
		}
	}
	for r, row := range rows {
		for col, v := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, r+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
	}
	if err := f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return nil, err
	}
	return f, nil
}

// sendWorkbook streams f as an attachment.
func sendWorkbook(c echo.Context, f *excelize.File, basename string) error {
	defer f.Close()
	buf, err := f.WriteToBuffer()
	if err != nil {
		return ErrInternal(fmt.Errorf("cannot write workbook: %w", err))
	}
	filename := fmt.Sprintf("%s-%s.xlsx", basename, time.Now().Format("2006-01-02"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, mimeXLSX, buf.Bytes())
}

func participantRows(list []model.Participant) [][]any {
	rows := make([][]any, 0, len(list))
	for _, p := range list {
		rows = append(rows, []any{
			p.ID, p.FirstName, p.LastName, p.Email, dateString(p.DOB), p.Phone,
			p.City, p.State, p.ZIP, p.SchoolOrEmployer, p.FieldOfInterest,
			p.TotalDonations.InexactFloat64(),
		})
	}
	return rows
}

// participantsExport sends all participants matching ?search as XLSX.
func (ctrl *controller) participantsExport(c echo.Context) error {
	list, err := ctrl.model.ExportParticipants(c.QueryParam("search"))
	if err != nil {
		return ErrStore(err, "/participants")
	}
	f, err := buildWorkbook("Participants", []string{
		"ID", "First name", "Last name", "Email", "Date of birth", "Phone",
		"City", "State", "ZIP", "School or employer", "Field of interest", "Total donations",
	}, participantRows(list))
	if err != nil {
		return ErrInternal(err)
	}
	logWith(c).Info("participants exported", "rows", len(list))
	return sendWorkbook(c, f, "participants")
}

func donationRows(list []model.Donation) [][]any {
	rows := make([][]any, 0, len(list))
	for _, d := range list {
		rows = append(rows, []any{
			d.ID, d.Participant.FirstName, d.Participant.LastName, d.ParticipantEmail,
			d.Amount.InexactFloat64(), dateString(d.Date),
		})
	}
	return rows
}

// donationsExport sends all participant donations matching ?search as XLSX.
func (ctrl *controller) donationsExport(c echo.Context) error {
	list, err := ctrl.model.ExportDonations(c.QueryParam("search"))
	if err != nil {
		return ErrStore(err, "/donations")
	}
	f, err := buildWorkbook("Donations", []string{
		"ID", "First name", "Last name", "Email at donation", "Amount", "Date",
	}, donationRows(list))
	if err != nil {
		return ErrInternal(err)
	}
	logWith(c).Info("donations exported", "rows", len(list))
	return sendWorkbook(c, f, "donations")
}
