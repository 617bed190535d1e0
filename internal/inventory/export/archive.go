package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/AKAPP611/al-jameel-mes/internal/inventory"
)

// ObjectStore is the subset of a blob store used for archiving.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
}

// Archiver uploads JSON and XLSX renditions of a report.
type Archiver struct {
	store  ObjectStore
	prefix string
}

// NewArchiver constructs an Archiver writing below prefix.
func NewArchiver(store ObjectStore, prefix string) *Archiver {
	return &Archiver{store: store, prefix: prefix}
}

// ObjectKey builds the archive key for a report rendition.
func ObjectKey(prefix string, report inventory.Report, ext string) string {
	day := report.GeneratedAt.Format("2006-01-02")
	name := fmt.Sprintf("inventory-report-%s-%s.%s", report.FactoryID, day, ext)
	return path.Join(prefix, report.FactoryID, day, name)
}

// Archive uploads the report and returns the written keys.
func (a *Archiver) Archive(ctx context.Context, report inventory.Report) ([]string, error) {
	payload, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export: encode report: %w", err)
	}
	workbook := &bytes.Buffer{}
	if err := WriteReportXLSX(workbook, report); err != nil {
		return nil, fmt.Errorf("export: render workbook: %w", err)
	}

	objects := []struct {
		key         string
		body        []byte
		contentType string
	}{
		{ObjectKey(a.prefix, report, "json"), payload, "application/json"},
		{ObjectKey(a.prefix, report, "xlsx"), workbook.Bytes(), XLSX{}.ContentType()},
	}
	keys := make([]string, 0, len(objects))
	for _, obj := range objects {
		if err := a.store.Put(ctx, obj.key, obj.body, obj.contentType); err != nil {
			return keys, err
		}
		keys = append(keys, obj.key)
	}
	return keys, nil
}
