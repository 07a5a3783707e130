package inbox

import (
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"
)

// ExportSheet names the worksheet holding the messages
const ExportSheet = "Messages"

var exportHeader = []interface{}{"Type", "Name", "Email", "Message", "Date", "Read", "Car", "Submission Type", "Status"}

type exportRow struct {
	car, subType, status string
}

func (r *exportRow) VisitChat(ChatSource) error       { return nil }
func (r *exportRow) VisitContact(ContactSource) error { return nil }
func (r *exportRow) VisitSubmission(s SubmissionSource) error {
	d := s.Submission
	r.car = strconv.Itoa(d.CarYear) + " " + d.CarMake + " " + d.CarModel
	r.subType = string(d.SubmissionType)
	r.status = d.Status
	return nil
}

// ExportXLSX writes the feed as an Excel workbook, one message per row
func ExportXLSX(w io.Writer, msgs []Message) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), ExportSheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(ExportSheet, "A1", &exportHeader); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(ExportSheet, 1, 1, bold); err != nil {
		return err
	}
	if err := f.SetPanes(ExportSheet, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	}); err != nil {
		return err
	}

	for i, m := range msgs {
		var extra exportRow
		if err := m.Source.Accept(&extra); err != nil {
			return err
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			string(m.Type()),
			m.Name,
			m.Email,
			m.Text,
			m.Date.UTC().Format(time.RFC3339),
			strconv.FormatBool(m.Read),
			extra.car,
			extra.subType,
			extra.status,
		}
		if err := f.SetSheetRow(ExportSheet, cell, &row); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(ExportSheet, "A", "I", 18); err != nil {
		return err
	}
	return f.Write(w)
}
