package transport

import "codeberg.org/mutker/sysfeed/internal/errors"

const (
	ErrQueueFull        = errors.ErrorCode("transport_queue_full")
	ErrClientGone       = errors.ErrorCode("transport_client_gone")
	ErrMalformedMessage = errors.ErrorCode("transport_malformed_message")
	ErrUnknownMessage   = errors.ErrorCode("transport_unknown_message")
	ErrEncodeFailed     = errors.ErrorCode("transport_encode_failed")
	ErrServerFailed     = errors.ErrorCode("transport_server_failed")
)
