// Package interfaces holds the contracts shared by orchestrators and adapters.
//
//nolint:revive // Package name 'interfaces' is intentional for domain layer
package interfaces

// Logger is the structured logger orchestrators and adapters write to.
// Messages are short sentences; everything variable goes in fields.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Field is one key/value pair of a log entry
type Field struct {
	Key   string
	Value any
}

// F creates a field
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Err creates the "error" field
func Err(err error) Field {
	return Field{Key: "error", Value: err}
}

// With returns base followed by fields, leaving base untouched
func With(base []Field, fields ...Field) []Field {
	out := make([]Field, 0, len(base)+len(fields))
	out = append(out, base...)
	return append(out, fields...)
}

type discard struct{}

func (discard) Debug(string, ...Field) {}
func (discard) Info(string, ...Field)  {}
func (discard) Warn(string, ...Field)  {}
func (discard) Error(string, ...Field) {}

// Discard drops every entry
var Discard Logger = discard{}

// OrNoOp returns l, or Discard when l is nil
func OrNoOp(l Logger) Logger {
	if l == nil {
		return Discard
	}
	return l
}
