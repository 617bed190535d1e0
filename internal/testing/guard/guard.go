// Package guard switches binaries into test mode when imported from tests, so that
// main packages never dial Redis, S3 or seed endpoints during go test.
package guard

import (
	"os"
	"sync"
)

const testModeEnv = "MES_TEST_MODE"

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv(testModeEnv) == "" {
			_ = os.Setenv(testModeEnv, "1")
		}
	})
}
