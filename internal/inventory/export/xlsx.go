package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/AKAPP611/al-jameel-mes/internal/inventory"
)

// Sheet names in the XLSX workbook.
const (
	SheetSummary   = "Summary"
	SheetInventory = "Inventory"
	SheetMovements = "Movements"
	SheetOrders    = "Orders"
)

// XLSX encodes a report as a workbook with one sheet per section.
type XLSX struct{}

// Format implements inventory.ReportEncoder.
func (XLSX) Format() string { return "xlsx" }

// ContentType implements inventory.ReportEncoder.
func (XLSX) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Encode implements inventory.ReportEncoder.
func (XLSX) Encode(w io.Writer, report inventory.Report) error {
	return WriteReportXLSX(w, report)
}

// WriteReportXLSX renders report into a workbook and writes it to w.
func WriteReportXLSX(w io.Writer, report inventory.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return err
	}
	summary := [][]any{
		{"Factory", report.FactoryID},
		{"Generated At", report.GeneratedAt.Format(time.RFC3339)},
		{"Total Items", report.Summary.TotalItems},
		{"Total Inventory Value", report.Summary.TotalInventoryValue.InexactFloat64()},
		{"Total Orders", report.Summary.TotalOrders},
		{"Pending Orders", report.Summary.PendingOrders},
		{"Low Stock Items", report.Summary.LowStockItems},
	}
	if err := writeRows(f, SheetSummary, summary); err != nil {
		return err
	}

	inventoryRows := [][]any{toAny(lineHeader)}
	for _, line := range report.Inventory {
		inventoryRows = append(inventoryRows, []any{
			line.SKU, line.Name, line.UOM, line.Location,
			line.Qty, line.Reserved, line.Available, line.MinStock,
			line.UnitCost.InexactFloat64(), line.Value.InexactFloat64(), line.Status,
		})
	}
	if err := addSheet(f, SheetInventory, inventoryRows); err != nil {
		return err
	}

	movementRows := [][]any{{"Timestamp", "Type", "SKU", "Quantity", "Reason", "From Location", "To Location", "Order"}}
	for _, m := range report.Movements {
		movementRows = append(movementRows, []any{
			m.Timestamp.Format(time.RFC3339), string(m.Type), m.SKU, m.Quantity,
			m.Reason, m.FromLocation, m.ToLocation, m.OrderID,
		})
	}
	if err := addSheet(f, SheetMovements, movementRows); err != nil {
		return err
	}

	orderRows := [][]any{{"Order", "Customer", "Status", "Lines", "Total Value", "Created At"}}
	for _, o := range report.Orders {
		orderRows = append(orderRows, []any{
			o.ID, o.CustomerName, string(o.Status), len(o.Items),
			o.TotalValue.InexactFloat64(), o.CreatedAt.Format(time.RFC3339),
		})
	}
	if err := addSheet(f, SheetOrders, orderRows); err != nil {
		return err
	}

	return f.Write(w)
}

func addSheet(f *excelize.File, name string, rows [][]any) error {
	if _, err := f.NewSheet(name); err != nil {
		return err
	}
	return writeRows(f, name, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("export: %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
