// Copyright 2026 The Saigen Authors
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"errors"
	"testing"
	"time"
)

func TestTTLMemoryCache_GetSetDel(t *testing.T) {
	c := NewTTLMemoryCache(time.Minute)

	err := c.Set("key", func() (any, error) { return "value", nil })
	if err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	val, err := c.Get("key")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if val != "value" {
		t.Fatalf("Get() returned %v, want %v", val, "value")
	}
	c.Del("key")
	if _, err := c.Get("key"); err == nil {
		t.Fatalf("Get() succeeded after Del, want error")
	}
}

func TestTTLMemoryCache_GetSetErr(t *testing.T) {
	c := NewTTLMemoryCache(time.Minute)
	foo := errors.New("foo")
	err := c.Set("key", func() (any, error) { return nil, foo })
	if err != foo {
		t.Fatalf("Set() failed: %v", err)
	}
	if _, err := c.Get("key"); err != ErrNotExist {
		t.Fatalf("Get() = %v, want ErrNotExist", err)
	}
}

func TestTTLMemoryCache_GetOrSet_Coalesces(t *testing.T) {
	c := NewTTLMemoryCache(time.Minute)

	want := "value"
	count := 5
	results := make(chan any, count)
	called := 0
	for range count {
		go func() {
			val, err := c.GetOrSet("key", func() (any, error) {
				called++
				time.Sleep(50 * time.Millisecond)
				return want, nil
			})
			if err != nil {
				results <- nil
			} else {
				results <- val
			}
		}()
	}
	for range count {
		if got := <-results; got != want {
			t.Fatalf("results differed: want=%v,got=%v", want, got)
		}
	}
	if called != 1 {
		t.Fatalf("call count differed: want=1,got=%v", called)
	}
}

func TestTTLMemoryCache_Expiry(t *testing.T) {
	c := NewTTLMemoryCache(30 * time.Millisecond)
	if err := c.Set("key", func() (any, error) { return "value", nil }); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	time.Sleep(60 * time.Millisecond)
	if _, err := c.Get("key"); err != ErrNotExist {
		t.Fatalf("Get() after expiry = %v, want ErrNotExist", err)
	}
}
