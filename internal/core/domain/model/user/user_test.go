package user_test

import (
	"testing"
	"time"

	"cargotrust/internal/core/domain/model/kernel"
	"cargotrust/internal/core/domain/model/user"
	"cargotrust/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 6_000_000, time.UTC)

	t.Run("should build a user", func(t *testing.T) {
		u, err := user.New(1, user.Draft{Address: kernel.MustAddress("GUSER"), Name: "Ada", Email: "ada@example.com"}, now)

		require.NoError(t, err)
		assert.Equal(t, "GUSER", u.Address.String())
		assert.Equal(t, now, u.CreatedAt)
		assert.Equal(t, u.CreatedAt, u.UpdatedAt)
	})

	t.Run("should require an address", func(t *testing.T) {
		_, err := user.New(1, user.Draft{Name: "Ada"}, now)

		require.ErrorIs(t, err, errs.ErrValueIsRequired)
	})

	t.Run("should reject malformed email", func(t *testing.T) {
		_, err := user.New(1, user.Draft{Address: kernel.MustAddress("GUSER"), Email: "nope"}, now)

		require.ErrorIs(t, err, errs.ErrValueIsInvalid)
	})
}
