// Package export renders booking reports as Excel workbooks for admins.
package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"stadion/internal/models"
)

var reportColumns = []string{"ID", "Hour", "Full name", "Phone", "Status", "Canceled by", "Created at"}

// DayReport builds a one-sheet workbook listing all bookings of a date,
// canceled rows included, in ledger order.
func DayReport(date string, bookings []models.Booking) (*excelize.File, error) {
	f := excelize.NewFile()

	sheet := date
	if len(sheet) > 31 {
		sheet = sheet[:31] // Excel sheet name limit
	}
	f.SetSheetName("Sheet1", sheet)

	for i, col := range reportColumns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, col); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	for row, b := range bookings {
		values := []interface{}{
			b.ID,
			b.Hour,
			b.FullName,
			b.Phone,
			string(b.Status),
			string(b.CanceledBy),
			b.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, fmt.Errorf("write row %d: %w", row+1, err)
			}
		}
	}

	return f, nil
}

// DayReportBytes renders the day report into an xlsx byte buffer, ready to
// be sent as a document.
func DayReportBytes(date string, bookings []models.Booking) ([]byte, error) {
	f, err := DayReport(date, bookings)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("serialize report: %w", err)
	}
	return buf.Bytes(), nil
}
