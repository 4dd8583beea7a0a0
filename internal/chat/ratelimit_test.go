package chat

import (
	"testing"
	"time"
)

func TestRateLimiterBurstThenDeny(t *testing.T) {
	rl := newRateLimiter(5, time.Hour)

	for i := 0; i < 5; i++ {
		if !rl.allow() {
			t.Fatalf("request %d within burst was denied", i)
		}
	}
	if rl.allow() {
		t.Fatal("request past the burst was allowed")
	}
}

func TestRateLimiterRefills(t *testing.T) {
	// 100 tokens per second makes refill observable without a long sleep.
	rl := newRateLimiter(100, time.Second)
	for i := 0; i < 100; i++ {
		rl.allow()
	}
	if rl.allow() {
		t.Fatal("bucket should be empty")
	}

	time.Sleep(50 * time.Millisecond)
	if !rl.allow() {
		t.Fatal("bucket should have refilled at least one token")
	}
}

func TestRateLimiterSanitizesInputs(t *testing.T) {
	rl := newRateLimiter(0, 0)
	if !rl.allow() {
		t.Fatal("minimum capacity of one token expected")
	}
}
