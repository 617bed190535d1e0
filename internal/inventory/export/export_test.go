package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/AKAPP611/al-jameel-mes/internal/inventory"
)

func sampleReport() inventory.Report {
	doc := inventory.StateDocument{
		FactoryID: "pistachio",
		Items: []inventory.Item{
			{SKU: "PST-18-21", Name: "Pistachio 18/21", UOM: "kg", UnitCost: decimal.RequireFromString("4.25"), MinStock: 50},
		},
		Inventory: []inventory.InventoryRecord{{SKU: "PST-18-21", Qty: 20, Reserved: 5}},
		Movements: []inventory.Movement{{ID: "m1", Type: inventory.MovementIn, SKU: "PST-18-21", Quantity: 20}},
		Orders: []inventory.Order{{ID: "PI-123456-ABC", CustomerName: "Acme", Status: inventory.OrderStatusDraft,
			Items: []inventory.OrderLine{{SKU: "PST-18-21", Quantity: 2}}, TotalValue: decimal.RequireFromString("8.50")}},
	}
	return inventory.BuildReport(doc, time.Date(2025, 3, 14, 8, 0, 0, 0, time.UTC))
}

func TestWriteReportCSV(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, WriteReportCSV(buf, sampleReport()))

	records, err := csv.NewReader(buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, lineHeader, records[0])
	require.Equal(t, []string{"PST-18-21", "Pistachio 18/21", "kg", "", "20", "5", "15", "50", "4.25", "85.00", "LOW_STOCK"}, records[1])
	require.Equal(t, "85.00", records[2][9])
}

func TestWriteReportXLSX(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, WriteReportXLSX(buf, sampleReport()))

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, []string{SheetSummary, SheetInventory, SheetMovements, SheetOrders}, f.GetSheetList())
	factory, err := f.GetCellValue(SheetSummary, "B1")
	require.NoError(t, err)
	require.Equal(t, "pistachio", factory)

	rows, err := f.GetRows(SheetInventory)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "PST-18-21", rows[1][0])

	orders, err := f.GetRows(SheetOrders)
	require.NoError(t, err)
	require.Equal(t, "PI-123456-ABC", orders[1][0])
}

type memoryObjects struct {
	objects map[string][]byte
	fail    error
}

func (m *memoryObjects) Put(_ context.Context, key string, body []byte, _ string) error {
	if m.fail != nil {
		return m.fail
	}
	m.objects[key] = body
	return nil
}

func TestArchiverUploadsBothRenditions(t *testing.T) {
	store := &memoryObjects{objects: map[string][]byte{}}
	keys, err := NewArchiver(store, "reports").Archive(context.Background(), sampleReport())
	require.NoError(t, err)
	require.Equal(t, []string{
		"reports/pistachio/2025-03-14/inventory-report-pistachio-2025-03-14.json",
		"reports/pistachio/2025-03-14/inventory-report-pistachio-2025-03-14.xlsx",
	}, keys)
	require.Contains(t, string(store.objects[keys[0]]), `"factoryId": "pistachio"`)
	require.NotEmpty(t, store.objects[keys[1]])
}

func TestArchiverPropagatesStoreErrors(t *testing.T) {
	store := &memoryObjects{objects: map[string][]byte{}, fail: errors.New("access denied")}
	keys, err := NewArchiver(store, "").Archive(context.Background(), sampleReport())
	require.Error(t, err)
	require.Empty(t, keys)
}

func TestEncodersDescribeFormats(t *testing.T) {
	encoders := []inventory.ReportEncoder{CSV{}, XLSX{}}
	require.Equal(t, "csv", encoders[0].Format())
	require.Equal(t, "xlsx", encoders[1].Format())
}
