package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("PRESSROOM_TEST_MODE") == "" {
			_ = os.Setenv("PRESSROOM_TEST_MODE", "1")
		}
	})
}
