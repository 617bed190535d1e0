package shared

import "fmt"

// InventoryLockKey builds redis keys for the per-factory state critical section.
func InventoryLockKey(factoryID string) string {
	return fmt.Sprintf("lock:inv:%s", factoryID)
}
