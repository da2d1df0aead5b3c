package node

import "errors"

var (
	ErrAddressRequired      = errors.New("node address is required")
	ErrClusterIDRequired    = errors.New("cluster ID is required")
	ErrSenderRequired       = errors.New("sender is required")
	ErrInvalidRoundInterval = errors.New("round interval must be positive when no barrier is set")
	ErrAlreadyStarted       = errors.New("node already started")
	ErrUnexpectedPayload    = errors.New("unexpected message payload")
	ErrClusterMismatch      = errors.New("cluster ID mismatch")
)
