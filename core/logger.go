package core

// Fields are structured values attached to a log entry.
type Fields = map[string]interface{}

// Logger is any service that can log messages.
// expected args fmt: error | Fields | any value printable with %+v
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
