package amqp

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{10, 30 * time.Second},
	}

	for _, tt := range tests {
		if got := exponentialBackoff(tt.attempt); got != tt.want {
			t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"connection closed", errors.New("connection closed by server"), true},
		{"EOF", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"closed network connection", errors.New("use of closed network connection"), true},
		{"unrelated error", errors.New("invalid argument"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.want {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestCircuitBreakerOpensAfterMaxFailures(t *testing.T) {
	c := &Client{}

	for i := 0; i < maxFailures-1; i++ {
		c.recordFailure()
	}
	if c.isCircuitOpen() {
		t.Fatalf("circuit open after %d failures, want closed", maxFailures-1)
	}

	c.recordFailure()
	if !c.isCircuitOpen() {
		t.Fatalf("circuit closed after %d failures, want open", maxFailures)
	}
}

func TestCircuitBreakerHalfOpensAfterTimeout(t *testing.T) {
	c := &Client{}
	for i := 0; i < maxFailures; i++ {
		c.recordFailure()
	}
	if !c.isCircuitOpen() {
		t.Fatal("circuit should be open")
	}

	// Age the last failure past the open timeout.
	c.mu.Lock()
	c.lastFailure = time.Now().Add(-openTimeout - time.Second)
	c.mu.Unlock()

	if c.isCircuitOpen() {
		t.Fatal("circuit should allow a probe after the open timeout")
	}
	if got := atomic.LoadInt32(&c.state); got != StateHalfOpen {
		t.Errorf("state = %d, want StateHalfOpen", got)
	}
}

func TestCircuitBreakerClosesOnSuccess(t *testing.T) {
	c := &Client{}
	for i := 0; i < maxFailures; i++ {
		c.recordFailure()
	}

	c.recordSuccess()

	if c.isCircuitOpen() {
		t.Fatal("circuit should be closed after a success")
	}
	if got := atomic.LoadInt64(&c.failureCount); got != 0 {
		t.Errorf("failureCount = %d, want 0", got)
	}
}

func TestPublishEventRefusedWhenCircuitOpen(t *testing.T) {
	c := &Client{}
	for i := 0; i < maxFailures; i++ {
		c.recordFailure()
	}

	msg := NewRecordedEvent(1, "user", 12000, "lunch")
	err := c.PublishEvent(context.Background(), msg)
	if err == nil {
		t.Fatal("expected error when circuit is open")
	}
	if !strings.Contains(err.Error(), "circuit breaker is open") {
		t.Errorf("error = %q, want circuit breaker message", err)
	}
}

func TestPublishEventCancelledContext(t *testing.T) {
	c := &Client{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	msg := NewRecordedEvent(1, "user", 12000, "lunch")
	if err := c.PublishEvent(ctx, msg); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestLedgerEventMessageRoundTrip(t *testing.T) {
	orig := NewRecordedEvent(42, "user-9", 5000, "咖啡")

	body, err := orig.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	got, err := LedgerEventFromJSON(body)
	if err != nil {
		t.Fatalf("LedgerEventFromJSON: %v", err)
	}

	if got.Kind != EventRecorded {
		t.Errorf("Kind = %q, want %q", got.Kind, EventRecorded)
	}
	if got.RecordID != orig.RecordID || got.UserID != orig.UserID ||
		got.AmountCents != orig.AmountCents || got.Reason != orig.Reason {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, orig)
	}
}

func TestLedgerEventFromJSONInvalid(t *testing.T) {
	if _, err := LedgerEventFromJSON([]byte("not json")); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}
