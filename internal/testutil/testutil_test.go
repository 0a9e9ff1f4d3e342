package testutil

import (
	"testing"
	"time"
)

func TestFakeClock_Now(t *testing.T) {
	fixed := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	clock := NewFakeClock(fixed)

	if got := clock.Now(); !got.Equal(fixed) {
		t.Errorf("Now() = %v, want %v", got, fixed)
	}
}

func TestFakeClock_Advance(t *testing.T) {
	fixed := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	clock := NewFakeClock(fixed)

	clock.Advance(2 * time.Minute)
	clock.Advance(30 * time.Second)

	want := fixed.Add(2*time.Minute + 30*time.Second)
	if got := clock.Now(); !got.Equal(want) {
		t.Errorf("after advancing 2m30s, Now() = %v, want %v", got, want)
	}
}

func TestTestContext_HasDeadline(t *testing.T) {
	ctx := TestContext(t)

	deadline, ok := ctx.Deadline()
	if !ok {
		t.Fatal("TestContext should have a deadline")
	}

	remaining := time.Until(deadline)
	if remaining <= 0 || remaining > 6*time.Second {
		t.Errorf("deadline should be ~5s from now, got %v", remaining)
	}
}

func TestMustParseUUID_Valid(t *testing.T) {
	id := MustParseUUID("7b5c1f6e-9c2d-4a1b-8e3f-0123456789ab")
	if id.String() != "7b5c1f6e-9c2d-4a1b-8e3f-0123456789ab" {
		t.Errorf("unexpected UUID: %s", id)
	}
}

func TestMustParseUUID_Invalid(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("MustParseUUID should panic on invalid UUID")
		}
	}()
	MustParseUUID("not-a-uuid")
}
