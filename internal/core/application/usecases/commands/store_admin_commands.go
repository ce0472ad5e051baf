package commands

import (
	"errors"

	"cargotrust/internal/pkg/errs"
	"cargotrust/internal/pkg/guard"
)

var (
	ErrImportSnapshotCommandIsNotConstructed = errors.New(
		"ImportSnapshotCommand must be created via NewImportSnapshotCommand constructor",
	)
)

// ClearAllCommand empties the store. Id counters are not reset.
type ClearAllCommand struct{}

// ImportSnapshotCommand replaces the whole store content with a snapshot
// produced by ExportSnapshot of either engine.
type ImportSnapshotCommand struct { //nolint:recvcheck //using for validation
	snapshot []byte

	guard guard.ConstructorGuard
}

func NewImportSnapshotCommand(snapshot []byte) (ImportSnapshotCommand, error) {
	if len(snapshot) == 0 {
		return ImportSnapshotCommand{}, errs.NewValueIsRequiredError("snapshot")
	}
	return ImportSnapshotCommand{snapshot: snapshot, guard: guard.NewConstructorGuard()}, nil
}

func (c ImportSnapshotCommand) Validate() error {
	return c.guard.Validate(ErrImportSnapshotCommandIsNotConstructed)
}

func (c ImportSnapshotCommand) Snapshot() []byte { return c.snapshot }
