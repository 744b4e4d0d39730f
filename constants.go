package iocoro

import "time"

// Default tuning constants: every magic number used by the reactor and
// socket layers gets a name here instead of appearing inline at call sites.
const (
	// DefaultAcceptBacklog is the listen() backlog used when callers don't
	// specify one.
	DefaultAcceptBacklog = 128

	// DefaultReadBufferSize is the buffer size ReadUntil grows by when it
	// needs more room.
	DefaultReadBufferSize = 4096

	// DefaultDialTimeout bounds how long DialTCP waits for a connection
	// before returning ErrTimedOut.
	DefaultDialTimeout = 10 * time.Second
)
