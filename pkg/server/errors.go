package server

import "errors"

var (
	// ErrSendBufferFull is returned when a connection's outbound queue
	// is full and a broadcast had to be dropped.
	ErrSendBufferFull = errors.New("server: send buffer full")

	// ErrConnClosed is returned when writing to a connection that has
	// already shut down.
	ErrConnClosed = errors.New("server: connection closed")
)
