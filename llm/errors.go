package llm

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ollama/ollama/api"
)

// ErrEmptyResponse is wrapped in a DecodeError when the server answered
// without a body.
var ErrEmptyResponse = errors.New("empty response body")

// NetworkError means the server was unreachable or answered with a non-2xx
// status. StatusCode is zero when no response arrived.
type NetworkError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("llm: %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("llm: %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// DecodeError means the response body did not have the expected shape.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("llm: %s: decode: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// classify maps an error returned by the ollama api client onto the
// NetworkError / DecodeError taxonomy.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		return &NetworkError{Op: op, StatusCode: statusErr.StatusCode, Err: err}
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return &DecodeError{Op: op, Err: err}
	}

	return &NetworkError{Op: op, Err: err}
}
