package flatstore_test

import (
	"context"
	"fmt"

	"cargotrust/internal/adapters/out/store/storetest"
	"cargotrust/internal/pkg/errs"
)

// failOnKey rejects writes to a single key.
type failOnKey struct {
	*storetest.FlakyKV
	key string
}

func (f *failOnKey) Set(ctx context.Context, key, value string) error {
	if key == f.key {
		return fmt.Errorf("set %q: %w", key, errs.ErrCapacityExceeded)
	}
	return f.FlakyKV.Set(ctx, key, value)
}
