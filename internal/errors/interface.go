package errors

// ErrorCode represents a unique identifier for each error type
type ErrorCode string

// ErrorClass groups codes a caller reacts to the same way.
type ErrorClass string

const (
	ClassNone     ErrorClass = ""
	ClassConfig   ErrorClass = "config"
	ClassSpawn    ErrorClass = "spawn"
	ClassNotFound ErrorClass = "not_found"
	ClassRefresh  ErrorClass = "refresh"
)

// Error represents a domain-specific error with context
type Error interface {
	error
	Code() ErrorCode
	Class() ErrorClass
	WithMessage(msg string) Error
	WithData(data any) Error
	GetData() any
	Unwrap() error
}

// Factory defines methods for creating domain errors
type Factory interface {
	New(code ErrorCode) Error
	Wrap(code ErrorCode, err error) Error
	WithMessage(code ErrorCode, msg string) Error
	WithData(code ErrorCode, data any) Error
}
