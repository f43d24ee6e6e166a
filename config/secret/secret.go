// Package secret holds configuration values that must never reach logs or spans.
package secret

// String is a sensitive string. Every formatting and encoding path prints a placeholder
// instead of the value.
type String string

const redacted = "REDACTED"

func (s String) String() string {
	return redacted
}

func (s String) GoString() string {
	return redacted
}

// Raw returns the sensitive value, e.g. to build a connection string.
func (s String) Raw() string {
	return string(s)
}

// IsSet reports whether a value was configured.
func (s String) IsSet() bool {
	return s != ""
}

func (s String) MarshalText() ([]byte, error) {
	return []byte(redacted), nil
}

func (s String) MarshalJSON() ([]byte, error) {
	return []byte(`"` + redacted + `"`), nil
}
