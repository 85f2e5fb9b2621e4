package limiter

import (
	"testing"

	"golang.org/x/time/rate"
)

func TestAllowWithinBurst(t *testing.T) {
	k := NewKeyed(rate.Limit(1), 3)

	for i := 0; i < 3; i++ {
		if !k.Allow("10.0.0.1:5000") {
			t.Fatalf("request %d should be within burst", i+1)
		}
	}
	if k.Allow("10.0.0.1:5000") {
		t.Fatal("request beyond burst should be denied")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	k := NewKeyed(rate.Limit(1), 1)

	if !k.Allow("10.0.0.1:5000") {
		t.Fatal("first key should be allowed")
	}
	if k.Allow("10.0.0.1:5000") {
		t.Fatal("first key should be exhausted")
	}
	if !k.Allow("10.0.0.2:5000") {
		t.Fatal("second key must have its own bucket")
	}
}
