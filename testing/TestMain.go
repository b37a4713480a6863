// Package testing switches binaries into test mode when imported by test files.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("BAHIKHATA_TEST_MODE", "1")
		if os.Getenv("DOTENV_PATH") == "" {
			_ = os.Setenv("DOTENV_PATH", os.DevNull)
		}
	})
}

func init() {
	ensureTestMode()
}

func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
