package collaboration

import (
	"errors"
	"fmt"

	"quantum-collab/internal/models"
)

var (
	ErrMissingParameter     = errors.New("missing connection parameter")
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionEnded         = errors.New("session has ended")
	ErrUnsupportedOperation = errors.New("unsupported edit operation")
	ErrInvalidPosition      = errors.New("edit position out of range")
	ErrTransportClosed      = errors.New("transport closed")
	ErrSendBufferFull       = errors.New("send buffer full")
	ErrStorageUnavailable   = errors.New("collaboration storage unavailable")
)

// SyncRequiredError rejects an edit made against a stale version.
// It carries the state the client has to resync to.
type SyncRequiredError struct {
	CurrentVersion int
	State          models.DocumentSnapshot
}

func (e *SyncRequiredError) Error() string {
	return fmt.Sprintf("sync required: document is at version %d", e.CurrentVersion)
}
