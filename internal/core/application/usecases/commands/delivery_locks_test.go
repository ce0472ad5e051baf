package commands_test

import (
	"sync/atomic"
	"testing"
	"time"

	"cargotrust/internal/core/application/usecases/commands"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeliveryLocks(t *testing.T) {
	t.Run("same_id_waits", func(t *testing.T) {
		locks := commands.NewDeliveryLocks()
		unlock := locks.Lock(1)

		var acquired atomic.Bool
		done := make(chan struct{})
		go func() {
			defer close(done)
			release := locks.Lock(1)
			acquired.Store(true)
			release()
		}()

		time.Sleep(20 * time.Millisecond)
		assert.False(t, acquired.Load())

		unlock()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("second lock was never granted")
		}
		assert.True(t, acquired.Load())
		assert.Zero(t, locks.Len())
	})

	t.Run("different_ids_do_not_wait", func(t *testing.T) {
		locks := commands.NewDeliveryLocks()
		unlockFirst := locks.Lock(1)
		defer unlockFirst()

		done := make(chan struct{})
		go func() {
			defer close(done)
			locks.Lock(2)()
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("unrelated delivery was blocked")
		}
		require.Equal(t, 1, locks.Len())
	})
}
