package ratelimit

import (
	"testing"
	"time"
)

func newTestLimiter(rules map[string]Rule) (*Limiter, *time.Time) {
	l := New(rules)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestCheckDeniesOverCeiling(t *testing.T) {
	l, _ := newTestLimiter(map[string]Rule{
		"upload": {Window: time.Minute, MaxRequests: 3},
	})

	for i := 0; i < 3; i++ {
		res := l.Check("upload", "1.2.3.4")
		if !res.Allowed {
			t.Fatalf("request %d: Allowed = false, want true", i+1)
		}
		if res.Remaining != 3-i-1 {
			t.Errorf("request %d: Remaining = %d, want %d", i+1, res.Remaining, 3-i-1)
		}
	}

	res := l.Check("upload", "1.2.3.4")
	if res.Allowed {
		t.Fatal("4th request: Allowed = true, want false")
	}
	if res.Remaining != 0 {
		t.Errorf("4th request: Remaining = %d, want 0", res.Remaining)
	}
	if res.ResetIn <= 0 || res.ResetIn > time.Minute {
		t.Errorf("4th request: ResetIn = %v, want within (0, 1m]", res.ResetIn)
	}
}

func TestWindowReset(t *testing.T) {
	l, now := newTestLimiter(map[string]Rule{
		"download": {Window: time.Minute, MaxRequests: 1},
	})

	if res := l.Check("download", "k"); !res.Allowed {
		t.Fatal("first request denied")
	}
	if res := l.Check("download", "k"); res.Allowed {
		t.Fatal("second request in window allowed")
	}

	*now = now.Add(time.Minute + time.Second)

	res := l.Check("download", "k")
	if !res.Allowed {
		t.Fatal("request after window elapsed denied")
	}
	if res.Remaining != 0 {
		t.Errorf("Remaining = %d, want 0", res.Remaining)
	}
}

func TestKeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(map[string]Rule{
		"upload": {Window: time.Minute, MaxRequests: 1},
	})

	if res := l.Check("upload", "a"); !res.Allowed {
		t.Fatal("key a denied")
	}
	if res := l.Check("upload", "b"); !res.Allowed {
		t.Fatal("key b denied, windows must be independent")
	}
	if res := l.Check("upload", "a"); res.Allowed {
		t.Fatal("key a second request allowed")
	}
}

func TestActionsAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(map[string]Rule{
		"upload":   {Window: time.Minute, MaxRequests: 1},
		"download": {Window: time.Minute, MaxRequests: 2},
	})

	l.Check("upload", "k")
	if res := l.Check("upload", "k"); res.Allowed {
		t.Fatal("upload over ceiling allowed")
	}
	if res := l.Check("download", "k"); !res.Allowed {
		t.Fatal("download denied by upload window")
	}
}

func TestUnknownActionAlwaysAllowed(t *testing.T) {
	l, _ := newTestLimiter(map[string]Rule{})

	for i := 0; i < 100; i++ {
		if res := l.Check("status", "k"); !res.Allowed {
			t.Fatal("unconfigured action denied")
		}
	}
}

func TestGCDropsElapsedWindows(t *testing.T) {
	l, now := newTestLimiter(map[string]Rule{
		"upload": {Window: time.Minute, MaxRequests: 5},
	})

	l.Check("upload", "a")
	l.Check("upload", "b")

	if dropped := l.GC(); dropped != 0 {
		t.Fatalf("GC dropped %d live windows", dropped)
	}

	*now = now.Add(2 * time.Minute)

	if dropped := l.GC(); dropped != 2 {
		t.Fatalf("GC dropped %d windows, want 2", dropped)
	}

	// A fresh window starts after GC.
	if res := l.Check("upload", "a"); res.Remaining != 4 {
		t.Errorf("Remaining after GC = %d, want 4", res.Remaining)
	}
}
