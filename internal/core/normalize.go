package core

// normalize.go implements the Call Normalizer.
//
// Every application call returns either a bare status or a tuple whose last
// element is the status; zero means success. Normalize strips the status and
// unwraps the payload. Service.call wraps Normalize with tracing, panic
// recovery and critical-level failure logging, and returns failures as
// *CallError values instead of raising them.

import (
	"context"
	"errors"
	"fmt"

	"github.com/JonMunkholm/saptables/internal/logging"
	"github.com/JonMunkholm/saptables/internal/oapi"
	"github.com/spf13/cast"
)

// ErrCallFailed is matched by every *CallError.
var ErrCallFailed = errors.New("automation call failed")

// CallError is a failed application call: a non-zero status, a native
// failure before any status was produced, or a result that could not be
// decoded.
type CallError struct {
	Method oapi.Method
	// Status is the trailing status code; zero when Err is set.
	Status int
	// Raw is the undecoded result, kept for diagnosis.
	Raw any
	Err error
}

func (e *CallError) Error() string {
	name := string(e.Method)
	if name == "" {
		name = "call"
	}
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", name, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("%s: returned status %d", name, e.Status)
	default:
		return fmt.Sprintf("%s: failed", name)
	}
}

func (e *CallError) Unwrap() error { return e.Err }

// Is reports whether target is ErrCallFailed.
func (e *CallError) Is(target error) bool {
	return target == ErrCallFailed
}

// Normalize applies the trailing-status convention to raw.
//
//   - A tuple of two elements yields its first element.
//   - A longer tuple yields every element but the last, as []any.
//   - A scalar yields itself.
//
// Any non-zero or non-integer status is a *CallError carrying raw.
func Normalize(raw any) (any, error) {
	tuple, ok := raw.([]any)
	if !ok {
		status, err := statusOf(raw)
		if err != nil {
			return nil, &CallError{Raw: raw, Err: err}
		}
		if status != 0 {
			return nil, &CallError{Status: status, Raw: raw}
		}
		return raw, nil
	}

	if len(tuple) == 0 {
		return nil, &CallError{Raw: raw, Err: errors.New("empty result")}
	}
	status, err := statusOf(tuple[len(tuple)-1])
	if err != nil {
		return nil, &CallError{Raw: raw, Err: err}
	}
	if status != 0 {
		return nil, &CallError{Status: status, Raw: raw}
	}
	if len(tuple) == 2 {
		return tuple[0], nil
	}
	return tuple[:len(tuple)-1], nil
}

func statusOf(v any) (int, error) {
	switch v.(type) {
	case nil:
		return 0, errors.New("missing status")
	case bool, string:
		return 0, fmt.Errorf("status is %T, not an integer", v)
	}
	status, err := cast.ToIntE(v)
	if err != nil {
		return 0, fmt.Errorf("status: %w", err)
	}
	return status, nil
}

// call invokes method and normalizes its result.
func (s *Service) call(ctx context.Context, method oapi.Method, args ...any) (any, error) {
	raw, err := s.invoke(ctx, method, args...)
	if err != nil {
		return nil, err
	}

	result, err := Normalize(raw)
	if err != nil {
		var ce *CallError
		if errors.As(err, &ce) {
			ce.Method = method
		}
		logging.Critical(ctx, logging.FromContext(ctx), "automation call failed",
			"method", method,
			"error", err,
			"raw", raw,
		)
		return nil, err
	}
	return result, nil
}

// query invokes method whose result is a plain value with no status.
func (s *Service) query(ctx context.Context, method oapi.Method, args ...any) (any, error) {
	return s.invoke(ctx, method, args...)
}

// invoke is the single place results leave the backend. It traces the call
// and converts native errors and panics into *CallError.
func (s *Service) invoke(ctx context.Context, method oapi.Method, args ...any) (raw any, err error) {
	logger := logging.FromContext(ctx)
	logger.Debug("automation call", "method", method, "args", args)

	defer func() {
		if r := recover(); r != nil {
			raw = nil
			err = &CallError{Method: method, Err: fmt.Errorf("panic: %v", r)}
			logging.Critical(ctx, logger, "automation call panicked",
				"method", method,
				"panic", r,
			)
		}
	}()

	raw, err = s.auto.Invoke(ctx, method, args...)
	if err != nil {
		logging.Critical(ctx, logger, "automation call failed",
			"method", method,
			"error", err,
		)
		return nil, &CallError{Method: method, Err: err}
	}

	logger.Debug("automation result", "method", method, "raw", raw)
	return raw, nil
}

// malformed reports a result that passed the status check but could not be
// decoded.
func (s *Service) malformed(ctx context.Context, method oapi.Method, payload any, err error) error {
	logging.Critical(ctx, logging.FromContext(ctx), "automation result malformed",
		"method", method,
		"error", err,
		"payload", payload,
	)
	return &CallError{Method: method, Raw: payload, Err: err}
}
