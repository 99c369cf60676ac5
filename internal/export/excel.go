// Package export renders bookings as Excel workbooks for the admin UI.
package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"gentlecut/internal/model"
)

var bookingColumns = []string{"ID", "Code", "Barber", "Date", "Time", "Services", "Customer", "Phone", "Created"}

// Exporter writes booking workbooks with one sheet per barber.
type Exporter struct {
	barberNames map[int64]string
}

func NewExporter(barbers []model.Barber) *Exporter {
	names := make(map[int64]string, len(barbers))
	for _, b := range barbers {
		names[b.ID] = b.Name
	}
	return &Exporter{barberNames: names}
}

// WriteBookings writes the workbook to w. Bookings are expected in
// ledger order, so each sheet is already sorted by date and time.
func (e *Exporter) WriteBookings(w io.Writer, bookings []model.Booking) error {
	f := excelize.NewFile()
	defer f.Close()

	sheets := make(map[int64]string)
	rows := make(map[string]int)

	for _, b := range bookings {
		sheet, ok := sheets[b.BarberID]
		if !ok {
			var err error
			sheet, err = e.addBarberSheet(f, b.BarberID, len(sheets) == 0)
			if err != nil {
				return err
			}
			sheets[b.BarberID] = sheet
			if err := writeRow(f, sheet, 1, headerCells()); err != nil {
				return err
			}
			if err := styleHeader(f, sheet); err != nil {
				return err
			}
			rows[sheet] = 2
		}

		if err := writeRow(f, sheet, rows[sheet], e.bookingCells(b)); err != nil {
			return err
		}
		rows[sheet]++
	}

	if len(sheets) == 0 {
		f.SetSheetName("Sheet1", "Bookings")
		if err := writeRow(f, "Bookings", 1, headerCells()); err != nil {
			return err
		}
	}

	return f.Write(w)
}

func (e *Exporter) barberName(barberID int64) string {
	if name := e.barberNames[barberID]; name != "" {
		return name
	}
	return "Barber " + strconv.FormatInt(barberID, 10)
}

func (e *Exporter) addBarberSheet(f *excelize.File, barberID int64, first bool) (string, error) {
	name := e.barberName(barberID)
	// Excel caps sheet names at 31 chars.
	if len(name) > 31 {
		name = name[:31]
	}

	if first {
		f.SetSheetName("Sheet1", name)
		return name, nil
	}
	if _, err := f.NewSheet(name); err != nil {
		return "", fmt.Errorf("create sheet %s: %w", name, err)
	}
	return name, nil
}

func headerCells() []interface{} {
	cells := make([]interface{}, len(bookingColumns))
	for i, c := range bookingColumns {
		cells[i] = c
	}
	return cells
}

func (e *Exporter) bookingCells(b model.Booking) []interface{} {
	ids := make([]string, len(b.ServiceIDs))
	for i, id := range b.ServiceIDs {
		ids[i] = strconv.FormatInt(id, 10)
	}
	return []interface{}{
		b.ID,
		b.Code,
		e.barberName(b.BarberID),
		string(b.Date),
		b.Time,
		strings.Join(ids, ","),
		b.Customer.Name,
		b.Customer.Phone,
		b.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	for i, val := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, val); err != nil {
			return err
		}
	}
	return nil
}

func styleHeader(f *excelize.File, sheet string) error {
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return err
	}
	endCell, err := excelize.CoordinatesToCellName(len(bookingColumns), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", endCell, style)
}
