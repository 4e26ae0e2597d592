package errors

// Classes crossing the provider manager boundary. RefreshError never leaves
// a provider loop.
var codeClasses = map[ErrorCode]ErrorClass{
	ErrInvalidConfig:       ClassConfig,
	ErrMissingConfig:       ClassConfig,
	ErrUnknownProviderKind: ClassConfig,
	ErrInvalidInterval:     ClassConfig,
	ErrSpawnFailed:         ClassSpawn,
	ErrManagerClosed:       ClassSpawn,
	ErrResourceNotFound:    ClassNotFound,
	ErrRefreshFailed:       ClassRefresh,
}

// ClassOf returns the class of code, or ClassNone.
func ClassOf(code ErrorCode) ErrorClass {
	return codeClasses[code]
}

// IsConfigError reports whether err rejects a configuration before spawn.
func IsConfigError(err error) bool {
	return hasClass(err, ClassConfig)
}

// IsSpawnError reports whether err means a provider loop could not start.
func IsSpawnError(err error) bool {
	return hasClass(err, ClassSpawn)
}

// IsNotFound reports whether err references an unknown fingerprint or subscriber.
func IsNotFound(err error) bool {
	return hasClass(err, ClassNotFound)
}

// IsRefreshError reports whether err is a transient refresh failure.
func IsRefreshError(err error) bool {
	return hasClass(err, ClassRefresh)
}

// hasClass walks the chain so a spawn error wrapping a config error
// belongs to both classes.
func hasClass(err error, class ErrorClass) bool {
	for err != nil {
		if appErr, ok := err.(Error); ok && appErr.Class() == class {
			return true
		}
		err = Unwrap(err)
	}

	return false
}
