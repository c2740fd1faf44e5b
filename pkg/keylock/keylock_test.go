package keylock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStriped_SerializesSameKey(t *testing.T) {
	l := New(8)
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.Do("visitor-1", func() error {
				v := counter
				time.Sleep(time.Microsecond)
				counter = v + 1
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 200, counter)
}

func TestStriped_SameKeySameStripe(t *testing.T) {
	l := New(16)
	assert.Same(t, l.stripe("abc"), l.stripe("abc"))
}

func TestNew_MinimumOneStripe(t *testing.T) {
	assert.Equal(t, 1, New(0).Len())
	assert.Equal(t, 1, New(-3).Len())
}
