package memorycache

import (
	"context"
	"testing"
	"time"
)

func TestPutGet(t *testing.T) {
	c := New()
	ctx := context.Background()

	if err := c.Put(ctx, "k1", []byte("v1"), time.Minute); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := c.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "v1" {
		t.Errorf("Get = %q, want v1", got)
	}

	missing, err := c.Get(ctx, "absent")
	if err != nil || missing != nil {
		t.Errorf("Get(absent) = (%v, %v), want (nil, nil)", missing, err)
	}
}

func TestExpiry(t *testing.T) {
	c := New()
	ctx := context.Background()

	if err := c.Put(ctx, "k1", []byte("v1"), time.Millisecond); err != nil {
		t.Fatalf("Put: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	got, err := c.Get(ctx, "k1")
	if err != nil || got != nil {
		t.Errorf("Get after expiry = (%v, %v), want (nil, nil)", got, err)
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d, want expired entry dropped", c.Len())
	}
}

func TestDelete(t *testing.T) {
	c := New()
	ctx := context.Background()

	_ = c.Put(ctx, "k1", []byte("v1"), time.Minute)
	if err := c.Delete(ctx, "k1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got, _ := c.Get(ctx, "k1"); got != nil {
		t.Errorf("Get after delete = %q, want nil", got)
	}
	// Deleting an absent key is not an error.
	if err := c.Delete(ctx, "k1"); err != nil {
		t.Errorf("Delete(absent): %v", err)
	}
}

func TestValueIsolated(t *testing.T) {
	c := New()
	ctx := context.Background()

	src := []byte("v1")
	_ = c.Put(ctx, "k1", src, time.Minute)
	src[0] = 'X'

	got, _ := c.Get(ctx, "k1")
	if string(got) != "v1" {
		t.Errorf("stored value aliased caller slice: %q", got)
	}
	got[0] = 'Y'
	again, _ := c.Get(ctx, "k1")
	if string(again) != "v1" {
		t.Errorf("returned value aliased cache storage: %q", again)
	}
}

func TestPutSweepsExpired(t *testing.T) {
	c := New()
	ctx := context.Background()

	_ = c.Put(ctx, "old", []byte("v"), time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	_ = c.Put(ctx, "new", []byte("v"), time.Minute)

	if c.Len() != 1 {
		t.Errorf("Len = %d, want opportunistic sweep to drop the expired entry", c.Len())
	}
}
