// Package storetest holds the behaviour every ports.Store engine must show.
// Engine packages run Suite from their own tests.
package storetest

import (
	"context"
	"fmt"
	"sync/atomic"

	"cargotrust/internal/core/ports"
	"cargotrust/internal/pkg/errs"
)

// FlakyKV wraps a KeyValue and rejects writes on demand, the way a full
// storage quota does.
type FlakyKV struct {
	ports.KeyValue
	failWrites atomic.Bool
	writes     atomic.Int64
}

func NewFlakyKV(kv ports.KeyValue) *FlakyKV {
	return &FlakyKV{KeyValue: kv}
}

func (k *FlakyKV) FailWrites(fail bool) {
	k.failWrites.Store(fail)
}

// Writes counts the accepted writes.
func (k *FlakyKV) Writes() int64 {
	return k.writes.Load()
}

func (k *FlakyKV) Set(ctx context.Context, key, value string) error {
	if k.failWrites.Load() {
		return fmt.Errorf("set %q: %w", key, errs.ErrCapacityExceeded)
	}
	if err := k.KeyValue.Set(ctx, key, value); err != nil {
		return err
	}
	k.writes.Add(1)
	return nil
}
