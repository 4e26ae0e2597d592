package logger

// Logger is the logging dependency handed to long-lived components. Events
// from a logger returned by With carry its fields.
type Logger interface {
	Debug() *LogEvent
	Info() *LogEvent
	Warn() *LogEvent
	Error() *LogEvent
	With(key, value string) Logger
}
