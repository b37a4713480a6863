package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("BAHIKHATA_TEST_MODE") == "" {
			_ = os.Setenv("BAHIKHATA_TEST_MODE", "1")
		}
	})
}
