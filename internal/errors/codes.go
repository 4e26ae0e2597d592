package errors

// Common error codes
const (
	// System errors
	ErrInternal        ErrorCode = "internal_error"
	ErrInvalidArgument ErrorCode = "invalid_argument"
	ErrNotImplemented  ErrorCode = "not_implemented"
	ErrUnavailable     ErrorCode = "service_unavailable"

	// Configuration errors
	ErrInvalidConfig       ErrorCode = "invalid_configuration"
	ErrMissingConfig       ErrorCode = "missing_configuration"
	ErrUnknownProviderKind ErrorCode = "unknown_provider_kind"
	ErrBindFlags           ErrorCode = "bind_flags_failed"
	ErrReadConfig          ErrorCode = "read_config_failed"
	ErrInvalidInterval     ErrorCode = "invalid_interval"
	ErrWatchConfig         ErrorCode = "watch_config_failed"

	// Logging errors
	ErrInvalidLogLevel ErrorCode = "invalid_log_level"

	// Initialization errors
	ErrInitFailed     ErrorCode = "initialization_failed"
	ErrShutdownFailed ErrorCode = "shutdown_failed"
	ErrAlreadyRunning ErrorCode = "already_running"

	// Provider runtime errors
	ErrSpawnFailed   ErrorCode = "spawn_failed"
	ErrManagerClosed ErrorCode = "manager_closed"
	ErrRefreshFailed ErrorCode = "refresh_failed"

	// Resource errors
	ErrResourceBusy      ErrorCode = "resource_busy"
	ErrResourceNotFound  ErrorCode = "resource_not_found"
	ErrResourceExhausted ErrorCode = "resource_exhausted"

	// Operation errors
	ErrOperationFailed  ErrorCode = "operation_failed"
	ErrTimeout          ErrorCode = "operation_timeout"
	ErrInvalidOperation ErrorCode = "invalid_operation"
)

// Common error messages
var errorMessages = map[ErrorCode]string{
	ErrInternal:            "Internal error occurred",
	ErrInvalidArgument:     "Invalid argument provided",
	ErrNotImplemented:      "Operation not implemented",
	ErrUnavailable:         "Service unavailable",
	ErrInvalidConfig:       "Invalid configuration",
	ErrMissingConfig:       "Missing configuration",
	ErrUnknownProviderKind: "Unknown provider kind",
	ErrBindFlags:           "Failed to bind flags",
	ErrReadConfig:          "Failed to read configuration",
	ErrInvalidInterval:     "Invalid interval value",
	ErrWatchConfig:         "Failed to watch configuration",
	ErrInvalidLogLevel:     "Invalid log level",
	ErrInitFailed:          "Initialization failed",
	ErrShutdownFailed:      "Shutdown failed",
	ErrAlreadyRunning:      "Another instance is already running",
	ErrSpawnFailed:         "Failed to start provider",
	ErrManagerClosed:       "Provider manager is closed",
	ErrRefreshFailed:       "Failed to refresh provider output",
	ErrResourceBusy:        "Resource is busy",
	ErrResourceNotFound:    "Resource not found",
	ErrResourceExhausted:   "Resource exhausted",
	ErrOperationFailed:     "Operation failed",
	ErrTimeout:             "Operation timed out",
	ErrInvalidOperation:    "Invalid operation",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}
