/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package retry

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func fastConfig() Config {
	return Config{
		MaxRetries:  3,
		BaseBackoff: time.Millisecond,
		MaxBackoff:  5 * time.Millisecond,
	}
}

func TestDoSucceedsFirstTry(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), fastConfig(), "op", nil, func() (string, error) {
		calls++
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if got != "ok" {
		t.Errorf("result: got = %q, wanted = %q", got, "ok")
	}
	if calls != 1 {
		t.Errorf("calls: got = %d, wanted = 1", calls)
	}
}

func TestDoRetriesTransientErrors(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), fastConfig(), "op", nil, func() (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("rate limited")
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if got != 42 {
		t.Errorf("result: got = %d, wanted = 42", got)
	}
	if calls != 3 {
		t.Errorf("calls: got = %d, wanted = 3", calls)
	}
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	permanent := errors.New("bad request")
	calls := 0
	_, err := Do(context.Background(), fastConfig(), "op",
		func(err error) bool { return !errors.Is(err, permanent) },
		func() (int, error) {
			calls++
			return 0, permanent
		})
	if !errors.Is(err, permanent) {
		t.Errorf("error: got = %v, wanted = %v", err, permanent)
	}
	if calls != 1 {
		t.Errorf("calls: got = %d, wanted = 1", calls)
	}
}

func TestDoExhaustsBudget(t *testing.T) {
	cfg := fastConfig()
	calls := 0
	_, err := Do(context.Background(), cfg, "judge", nil, func() (int, error) {
		calls++
		return 0, errors.New("still failing")
	})
	if err == nil {
		t.Fatal("Do: got = nil, wanted an error")
	}
	if calls != cfg.MaxRetries+1 {
		t.Errorf("calls: got = %d, wanted = %d", calls, cfg.MaxRetries+1)
	}
	if !strings.Contains(err.Error(), "judge failed after 3 retries") {
		t.Errorf("error: got = %q, wanted to contain %q", err, "judge failed after 3 retries")
	}
}

func TestDoZeroRetries(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), Config{}, "op", nil, func() (int, error) {
		calls++
		return 0, errors.New("nope")
	})
	if err == nil {
		t.Fatal("Do: got = nil, wanted an error")
	}
	if calls != 1 {
		t.Errorf("calls: got = %d, wanted = 1", calls)
	}
}

func TestDoHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := Config{MaxRetries: 10, BaseBackoff: time.Hour, MaxBackoff: time.Hour}

	calls := 0
	done := make(chan error, 1)
	go func() {
		_, err := Do(ctx, cfg, "op", nil, func() (int, error) {
			calls++
			return 0, errors.New("transient")
		})
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error: got = %v, wanted = %v", err, context.Canceled)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Do did not return after cancellation")
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate(): got = %v, wanted = nil", err)
	}
	bad := Config{MaxRetries: -1}
	if err := bad.Validate(); err == nil {
		t.Error("Validate(): got = nil, wanted an error")
	}
}
