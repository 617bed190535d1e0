package orders

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AKAPP611/al-jameel-mes/internal/inventory"
)

const (
	idAlphabet     = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	idSuffixLength = 3
	idAttempts     = 16
)

// orderID formats <PF>-<last 6 digits of unix millis>-<3 base36 chars>, where PF is the
// first two characters of the factory id in upper case.
func orderID(factoryID string, now time.Time, suffix string) string {
	prefix := []rune(strings.ToUpper(factoryID))
	if len(prefix) > 2 {
		prefix = prefix[:2]
	}
	millis := fmt.Sprintf("%06d", now.UnixMilli()%1_000_000)
	return fmt.Sprintf("%s-%s-%s", string(prefix), millis, suffix)
}

func randomSuffix(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteByte(idAlphabet[rand.IntN(len(idAlphabet))])
	}
	return b.String()
}

// uniqueOrderID keeps the short id format and retries until it does not collide with an
// existing order; after idAttempts it falls back to a uuid-derived suffix.
func (m *Manager) uniqueOrderID(doc *inventory.StateDocument, now time.Time) string {
	for i := 0; i < idAttempts; i++ {
		id := orderID(m.factoryID, now, m.suffix(idSuffixLength))
		if doc.Order(id) == nil {
			return id
		}
	}
	for {
		id := orderID(m.factoryID, now, strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12]))
		if doc.Order(id) == nil {
			return id
		}
	}
}
