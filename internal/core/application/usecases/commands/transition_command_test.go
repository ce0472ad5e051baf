package commands_test

import (
	"testing"

	"cargotrust/internal/core/application/usecases/commands"
	"cargotrust/internal/core/domain/model/delivery"
	"cargotrust/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTransitionCommand(t *testing.T) {
	t.Run("accept_requires_carrier", func(t *testing.T) {
		_, err := commands.NewAcceptDeliveryCommand(1, " ")
		require.ErrorIs(t, err, errs.ErrValueIsRequired)
	})

	t.Run("accept_keeps_carrier", func(t *testing.T) {
		cmd, err := commands.NewAcceptDeliveryCommand(1, "GCARRIER")
		require.NoError(t, err)
		assert.Equal(t, delivery.EventAccept, cmd.Event())
		assert.Equal(t, carrier, cmd.Actor())
	})

	t.Run("actor_is_optional_after_accept", func(t *testing.T) {
		for _, newCmd := range []func(int64, string) (commands.TransitionCommand, error){
			commands.NewConfirmPickupCommand,
			commands.NewConfirmInTransitCommand,
			commands.NewConfirmDeliveryCommand,
			commands.NewReleasePaymentCommand,
			commands.NewCancelDeliveryCommand,
		} {
			cmd, err := newCmd(3, "")
			require.NoError(t, err)
			assert.True(t, cmd.Actor().IsZero())
			assert.Equal(t, int64(3), cmd.DeliveryID())
		}
	})

	t.Run("rejects_bad_id", func(t *testing.T) {
		_, err := commands.NewConfirmPickupCommand(0, "")
		require.ErrorIs(t, err, errs.ErrValueIsOutOfRange)
	})

	t.Run("rejects_unknown_event", func(t *testing.T) {
		_, err := commands.NewTransitionCommand(1, delivery.Event("teleport"), "")
		require.ErrorIs(t, err, errs.ErrValueIsInvalid)
	})

	t.Run("literal_is_not_constructed", func(t *testing.T) {
		assert.ErrorIs(t, commands.TransitionCommand{}.Validate(), commands.ErrTransitionCommandIsNotConstructed)
	})
}
