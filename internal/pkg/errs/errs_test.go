package errs_test

import (
	"errors"
	"fmt"
	"testing"

	"cargotrust/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationErrors(t *testing.T) {
	cause := errors.New("contains whitespace")

	tests := []struct {
		name     string
		err      error
		sentinel error
		message  string
	}{
		{
			name:     "object not found",
			err:      errs.NewObjectNotFoundError("user", "GREQUESTER"),
			sentinel: errs.ErrObjectNotFound,
			message:  "object not found: GREQUESTER",
		},
		{
			name:     "object not found with cause",
			err:      errs.NewObjectNotFoundErrorWithCause("user", "GREQUESTER", cause),
			sentinel: errs.ErrObjectNotFound,
			message:  "object not found: param is: user, ID is: GREQUESTER (cause: contains whitespace)",
		},
		{
			name:     "invalid",
			err:      errs.NewValueIsInvalidError("carrier"),
			sentinel: errs.ErrValueIsInvalid,
			message:  "value is invalid: carrier",
		},
		{
			name:     "invalid with cause",
			err:      errs.NewValueIsInvalidErrorWithCause("carrier", cause),
			sentinel: errs.ErrValueIsInvalid,
			message:  "value is invalid: carrier (cause: contains whitespace)",
		},
		{
			name:     "out of range",
			err:      errs.NewValueIsOutOfRangeError("delivery id", int64(0), 1, "max int64"),
			sentinel: errs.ErrValueIsOutOfRange,
			message:  "value is invalid: 0 is delivery id, min value is 1, max value is max int64",
		},
		{
			name:     "out of range with cause",
			err:      errs.NewValueIsOutOfRangeErrorWithCause("address length", 200, 1, 128, cause),
			sentinel: errs.ErrValueIsOutOfRange,
			message:  "value is invalid: 200 is address length, min value is 1, max value is 128 (cause: contains whitespace)",
		},
		{
			name:     "required",
			err:      errs.NewValueIsRequiredError("origin"),
			sentinel: errs.ErrValueIsRequired,
			message:  "value is required: origin",
		},
		{
			name:     "required with cause",
			err:      errs.NewValueIsRequiredErrorWithCause("origin", cause),
			sentinel: errs.ErrValueIsRequired,
			message:  "value is required: origin (cause: contains whitespace)",
		},
		{
			name:     "version",
			err:      errs.NewVersionIsInvalidError("snapshot", errors.New("version 3 is newer than 1")),
			sentinel: errs.ErrVersionIsInvalid,
			message:  "version is invalid: snapshot (cause: version 3 is newer than 1)",
		},
		{
			name:     "version without cause",
			err:      errs.NewVersionIsInvalidErrorWithCause("snapshot"),
			sentinel: errs.ErrVersionIsInvalid,
			message:  "version is invalid: snapshot",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.message, tt.err.Error())
			require.ErrorIs(t, tt.err, tt.sentinel)
			require.ErrorIs(t, fmt.Errorf("create delivery: %w", tt.err), tt.sentinel)
		})
	}
}

func TestValueIsOutOfRangeError_Fields(t *testing.T) {
	err := errs.NewValueIsOutOfRangeError("amount", -5, 0, 100)

	assert.Equal(t, "amount", err.ParamName)
	assert.Equal(t, -5, err.Value)
	assert.Equal(t, 0, err.Min)
	assert.Equal(t, 100, err.Max)
	require.NoError(t, err.Cause)
}

func TestMessagesStayOnOneLine(t *testing.T) {
	err := errs.NewValueIsOutOfRangeError("description", "fragile\nglass", 0, 10)
	assert.Contains(t, err.Error(), "fragile glass")
	assert.NotContains(t, err.Error(), "\n")

	notFound := errs.NewObjectNotFoundError("user", "G\nX")
	assert.Equal(t, "object not found: G X", notFound.Error())
}

func TestSentinelMessages(t *testing.T) {
	assert.Equal(t, "object not found", errs.ErrObjectNotFound.Error())
	assert.Equal(t, "value is invalid", errs.ErrValueIsInvalid.Error())
	assert.Equal(t, "value is out of range", errs.ErrValueIsOutOfRange.Error())
	assert.Equal(t, "value is required", errs.ErrValueIsRequired.Error())
	assert.Equal(t, "version is invalid", errs.ErrVersionIsInvalid.Error())
}
