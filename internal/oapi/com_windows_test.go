//go:build windows

package oapi

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestCOMAutomation_CloseWaitsForExit(t *testing.T) {
	c := &comAutomation{
		requests: make(chan comRequest),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	var exited atomic.Bool
	go func() {
		defer close(c.stopped)
		c.serve(func(m Method, _ []any) (any, error) {
			return string(m), nil
		}, func() {
			time.Sleep(50 * time.Millisecond)
			exited.Store(true)
		})
	}()

	got, err := c.Invoke(context.Background(), GetVersion)
	if err != nil || got != string(GetVersion) {
		t.Fatalf("Invoke() = %v, %v", got, err)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !exited.Load() {
		t.Error("Close() returned before the loop shut the application down")
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if _, err := c.Invoke(context.Background(), GetVersion); !errors.Is(err, ErrClosed) {
		t.Errorf("Invoke after Close = %v, want ErrClosed", err)
	}
}
