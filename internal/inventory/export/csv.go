// Package export renders inventory reports for download and archiving.
package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/AKAPP611/al-jameel-mes/internal/inventory"
)

// CSV encodes the inventory lines of a report.
type CSV struct{}

// Format implements inventory.ReportEncoder.
func (CSV) Format() string { return "csv" }

// ContentType implements inventory.ReportEncoder.
func (CSV) ContentType() string { return "text/csv" }

// Encode implements inventory.ReportEncoder.
func (CSV) Encode(w io.Writer, report inventory.Report) error {
	return WriteReportCSV(w, report)
}

// WriteReportCSV writes one row per inventory record followed by a totals row.
func WriteReportCSV(w io.Writer, report inventory.Report) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(lineHeader); err != nil {
		return err
	}
	for _, line := range report.Inventory {
		if err := writer.Write(lineRecord(line)); err != nil {
			return err
		}
	}
	if err := writer.Write([]string{"TOTAL", "", "", "", "", "", "", "", "", report.Summary.TotalInventoryValue.StringFixed(2), ""}); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

var lineHeader = []string{"SKU", "Name", "UOM", "Location", "Current Stock", "Reserved", "Available", "Min Stock", "Unit Cost", "Value", "Status"}

func lineRecord(line inventory.ReportLine) []string {
	return []string{
		line.SKU,
		line.Name,
		line.UOM,
		line.Location,
		formatQty(line.Qty),
		formatQty(line.Reserved),
		formatQty(line.Available),
		formatQty(line.MinStock),
		line.UnitCost.StringFixed(2),
		line.Value.StringFixed(2),
		line.Status,
	}
}

func formatQty(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
