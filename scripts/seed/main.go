package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"github.com/AKAPP611/al-jameel-mes/internal/app"
	"github.com/AKAPP611/al-jameel-mes/internal/inventory"
)

type demoItem struct {
	sku, name, uom  string
	kind            inventory.ItemType
	cost, price     string
	minStock, stock float64
}

var catalogue = []demoItem{
	{"PST-RAW", "Raw pistachio in shell", "kg", inventory.ItemTypeRaw, "3.10", "0", 500, 1200},
	{"PST-18-21", "Pistachio 18/21", "kg", inventory.ItemTypeFinished, "4.25", "12.50", 50, 320},
	{"PST-KERNEL", "Pistachio kernel", "kg", inventory.ItemTypeFinished, "9.80", "21.00", 25, 40},
	{"BAG-1KG", "Printed bag 1kg", "pcs", inventory.ItemTypePackaging, "0.12", "0", 2000, 1500},
	{"SHELL", "Pistachio shell", "kg", inventory.ItemTypeByproduct, "0", "0.40", 0, 90},
}

func main() {
	dump := flag.String("dump", "", "write <factory>.json seed documents into this directory instead of storage")
	flag.Parse()

	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := app.NewLogger(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	services, err := app.NewServices(ctx, cfg, logger, nil)
	if err != nil {
		log.Fatalf("init services: %v", err)
	}
	defer services.Close()

	for _, factoryID := range cfg.Factories {
		fmt.Println("→ Seeding", factoryID)
		doc, err := seedFactory(ctx, services.Repo, factoryID)
		if err != nil {
			log.Fatalf("seed %s: %v", factoryID, err)
		}
		if *dump == "" {
			continue
		}
		if err := writeSeed(*dump, doc); err != nil {
			log.Fatalf("dump %s: %v", factoryID, err)
		}
	}
	fmt.Println("✓ Seed complete at", time.Now().Format(time.RFC3339))
}

// seedFactory installs the demo catalogue unless the factory already has items.
func seedFactory(ctx context.Context, repo *inventory.Repository, factoryID string) (inventory.StateDocument, error) {
	doc, err := repo.GetState(ctx, factoryID)
	if err != nil || len(doc.Items) > 0 {
		return doc, err
	}
	for _, it := range catalogue {
		if _, err := repo.AddItem(ctx, factoryID, inventory.NewItem{
			SKU:       it.sku,
			Name:      it.name,
			Type:      it.kind,
			UOM:       it.uom,
			UnitCost:  decimal.RequireFromString(it.cost),
			SalePrice: decimal.RequireFromString(it.price),
			MinStock:  it.minStock,
		}); err != nil {
			return doc, err
		}
		if _, err := repo.UpdateInventory(ctx, factoryID, it.sku, inventory.InventoryUpdate{}); err != nil {
			return doc, err
		}
		if _, err := repo.AddStock(ctx, factoryID, it.sku, it.stock, "opening_balance"); err != nil {
			return doc, err
		}
	}
	return repo.GetState(ctx, factoryID)
}

func writeSeed(dir string, doc inventory.StateDocument) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, doc.FactoryID+".json"), body, 0o644)
}
