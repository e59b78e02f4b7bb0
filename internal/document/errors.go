package document

import (
	"errors"
	"fmt"
)

// ErrNotEncodable is returned by Encode for nodes with no literal form.
var ErrNotEncodable = errors.New("expression has no literal form")

// DecodeError reports a malformed literal. Path locates the offending value
// using CUE path syntax (e.g. "input.binary.left", "model.body[1].where").
type DecodeError struct {
	Path    string
	Message string
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return e.Path + ": " + e.Message
}

func errorf(path, format string, args ...any) *DecodeError {
	return &DecodeError{Path: path, Message: fmt.Sprintf(format, args...)}
}

// AsDecodeError returns the *DecodeError in err's chain, if any.
func AsDecodeError(err error) (*DecodeError, bool) {
	var de *DecodeError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func index(path string, i int) string {
	return fmt.Sprintf("%s[%d]", path, i)
}
