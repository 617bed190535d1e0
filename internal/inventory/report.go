package inventory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Stock statuses reported per inventory line.
const (
	StockStatusLow = "LOW_STOCK"
	StockStatusOK  = "OK"
)

// RecentMovementLimit caps the movements included in a report.
const RecentMovementLimit = 20

// ReportSummary aggregates one factory document.
type ReportSummary struct {
	TotalItems          int             `json:"totalItems"`
	TotalInventoryValue decimal.Decimal `json:"totalInventoryValue"`
	TotalOrders         int             `json:"totalOrders"`
	PendingOrders       int             `json:"pendingOrders"`
	LowStockItems       int             `json:"lowStockItems"`
}

// ReportLine is one inventory record joined with its item.
type ReportLine struct {
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	UOM       string          `json:"uom,omitempty"`
	Location  string          `json:"location,omitempty"`
	Qty       float64         `json:"currentStock"`
	Reserved  float64         `json:"reserved"`
	Available float64         `json:"available"`
	MinStock  float64         `json:"minStock"`
	MaxStock  float64         `json:"maxStock"`
	UnitCost  decimal.Decimal `json:"unitCost"`
	Value     decimal.Decimal `json:"value"`
	Status    string          `json:"status"`
}

// Report is the downloadable summary of a factory.
type Report struct {
	FactoryID   string        `json:"factoryId"`
	GeneratedAt time.Time     `json:"generatedAt"`
	Summary     ReportSummary `json:"summary"`
	Inventory   []ReportLine  `json:"inventory"`
	Movements   []Movement    `json:"movements"`
	Orders      []Order       `json:"orders"`
}

// LowStockRow is a record at or below its item's minimum.
type LowStockRow struct {
	FactoryID string  `json:"factoryId"`
	SKU       string  `json:"sku"`
	Name      string  `json:"name"`
	UOM       string  `json:"uom,omitempty"`
	Location  string  `json:"location,omitempty"`
	Qty       float64 `json:"currentStock"`
	MinStock  float64 `json:"minStock"`
	Shortage  float64 `json:"shortage"`
}

// FactorySummary is one factory's contribution to a consolidated report.
type FactorySummary struct {
	FactoryID string `json:"factoryId"`
	ReportSummary
}

// ConsolidatedReport summarises several factories.
type ConsolidatedReport struct {
	GeneratedAt         time.Time        `json:"generatedAt"`
	ActiveFactories     int              `json:"activeFactories"`
	TotalItems          int              `json:"totalItems"`
	TotalInventoryValue decimal.Decimal  `json:"totalInventoryValue"`
	TotalOrders         int              `json:"totalOrders"`
	LowStockCount       int              `json:"lowStockCount"`
	Factories           []FactorySummary `json:"factories"`
	LowStock            []LowStockRow    `json:"lowStock"`
}

// BuildReport derives a Report from doc.
func BuildReport(doc StateDocument, at time.Time) Report {
	items := itemsBySKU(doc)
	report := Report{
		FactoryID:   doc.FactoryID,
		GeneratedAt: at,
		Inventory:   make([]ReportLine, 0, len(doc.Inventory)),
		Orders:      make([]Order, 0, len(doc.Orders)),
	}
	total := decimal.Zero
	for _, rec := range doc.Inventory {
		item := items[rec.SKU]
		value := item.UnitCost.Mul(decimal.NewFromFloat(rec.Qty))
		total = total.Add(value)
		line := ReportLine{
			SKU:       rec.SKU,
			Name:      item.Name,
			UOM:       item.UOM,
			Location:  rec.Location,
			Qty:       rec.Qty,
			Reserved:  rec.Reserved,
			Available: RoundQty(rec.Available()),
			MinStock:  item.MinStock,
			MaxStock:  item.MaxStock,
			UnitCost:  item.UnitCost,
			Value:     value,
			Status:    StockStatusOK,
		}
		if isLow(item, rec) {
			line.Status = StockStatusLow
			report.Summary.LowStockItems++
		}
		report.Inventory = append(report.Inventory, line)
	}

	start := 0
	if len(doc.Movements) > RecentMovementLimit {
		start = len(doc.Movements) - RecentMovementLimit
	}
	report.Movements = make([]Movement, 0, len(doc.Movements)-start)
	for _, m := range doc.Movements[start:] {
		report.Movements = append(report.Movements, m.Clone())
	}
	for _, o := range doc.Orders {
		if !o.Status.Terminal() {
			report.Summary.PendingOrders++
		}
		report.Orders = append(report.Orders, o.Clone())
	}

	report.Summary.TotalItems = len(doc.Items)
	report.Summary.TotalInventoryValue = total
	report.Summary.TotalOrders = len(doc.Orders)
	return report
}

// LowStock lists records at or below their item's minimum, largest shortage first.
func LowStock(doc StateDocument) []LowStockRow {
	items := itemsBySKU(doc)
	rows := make([]LowStockRow, 0)
	for _, rec := range doc.Inventory {
		item := items[rec.SKU]
		if !isLow(item, rec) {
			continue
		}
		rows = append(rows, LowStockRow{
			FactoryID: doc.FactoryID,
			SKU:       rec.SKU,
			Name:      item.Name,
			UOM:       item.UOM,
			Location:  rec.Location,
			Qty:       rec.Qty,
			MinStock:  item.MinStock,
			Shortage:  RoundQty(item.MinStock - rec.Qty),
		})
	}
	sortLowStock(rows)
	return rows
}

// Report builds the current report for a factory.
func (r *Repository) Report(ctx context.Context, factoryID string) (Report, error) {
	doc, err := r.GetState(ctx, factoryID)
	if err != nil {
		return Report{}, err
	}
	return BuildReport(doc, r.clock()), nil
}

// Consolidated loads the listed factories concurrently and merges their summaries.
// A factory counts as active when it has at least one item.
func (r *Repository) Consolidated(ctx context.Context, factoryIDs []string) (ConsolidatedReport, error) {
	docs := make([]StateDocument, len(factoryIDs))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range factoryIDs {
		g.Go(func() error {
			doc, err := r.GetState(gctx, id)
			if err != nil {
				return err
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ConsolidatedReport{}, err
	}

	now := r.clock()
	out := ConsolidatedReport{
		GeneratedAt:         now,
		TotalInventoryValue: decimal.Zero,
		Factories:           make([]FactorySummary, 0, len(docs)),
		LowStock:            make([]LowStockRow, 0),
	}
	for _, doc := range docs {
		summary := BuildReport(doc, now).Summary
		if summary.TotalItems > 0 {
			out.ActiveFactories++
		}
		out.TotalItems += summary.TotalItems
		out.TotalOrders += summary.TotalOrders
		out.TotalInventoryValue = out.TotalInventoryValue.Add(summary.TotalInventoryValue)
		out.Factories = append(out.Factories, FactorySummary{FactoryID: doc.FactoryID, ReportSummary: summary})
		out.LowStock = append(out.LowStock, LowStock(doc)...)
	}
	sortLowStock(out.LowStock)
	out.LowStockCount = len(out.LowStock)
	return out, nil
}

func itemsBySKU(doc StateDocument) map[string]Item {
	items := make(map[string]Item, len(doc.Items))
	for _, item := range doc.Items {
		items[item.SKU] = item
	}
	return items
}

func isLow(item Item, rec InventoryRecord) bool {
	return item.MinStock > 0 && rec.Qty <= item.MinStock
}

func sortLowStock(rows []LowStockRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Shortage != rows[j].Shortage {
			return rows[i].Shortage > rows[j].Shortage
		}
		if rows[i].FactoryID != rows[j].FactoryID {
			return rows[i].FactoryID < rows[j].FactoryID
		}
		return rows[i].SKU < rows[j].SKU
	})
}
