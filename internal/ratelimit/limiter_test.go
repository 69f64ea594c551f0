package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestDomainLimiter_PerHostBuckets(t *testing.T) {
	dl := NewDomainLimiter(1, 1)

	if !dl.Allow("https://a.example.com/1") {
		t.Fatal("first request to a host should pass")
	}
	if dl.Allow("https://a.example.com/2") {
		t.Error("second request within the same second should be limited")
	}
	if !dl.Allow("https://b.example.com/1") {
		t.Error("another host has its own bucket")
	}
}

func TestDomainLimiter_WaitHonoursContext(t *testing.T) {
	dl := NewDomainLimiter(0.5, 1)
	ctx := context.Background()

	if err := dl.Wait(ctx, "https://example.com"); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := dl.Wait(ctx, "https://example.com"); err == nil {
		t.Error("expected the wait to be cut short")
	}
}

func TestDomainLimiter_InvalidURLIsNotLimited(t *testing.T) {
	dl := NewDomainLimiter(1, 1)
	for i := 0; i < 3; i++ {
		if err := dl.Wait(context.Background(), "::not a url"); err != nil {
			t.Fatal(err)
		}
	}
}
