package search

import (
	"testing"
	"time"

	"pricewatch/pkg/models"
)

func TestCachePutGet(t *testing.T) {
	c := NewCache(time.Minute, 0)
	in := []models.Listing{{Description: "MacBook", DisplayPrice: "3,306.00 FCFA", ProductURL: "https://amazon.com/x"}}

	id := c.Put("macbook", in)
	if id == "" {
		t.Fatal("Put returned empty id")
	}

	in[0].Description = "changed"

	q, got, ok := c.Get(id)
	if !ok {
		t.Fatalf("Get(%q) missed", id)
	}
	if q != "macbook" {
		t.Errorf("query = %q; want %q", q, "macbook")
	}
	if len(got) != 1 || got[0].Description != "MacBook" {
		t.Errorf("listings = %+v; want frozen copy", got)
	}
}

func TestCacheExpiry(t *testing.T) {
	c := NewCache(time.Minute, 0)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	id := c.Put("q", nil)
	now = now.Add(59 * time.Second)
	if _, _, ok := c.Get(id); !ok {
		t.Fatal("entry expired early")
	}
	now = now.Add(time.Second)
	if _, _, ok := c.Get(id); ok {
		t.Fatal("entry still present after TTL")
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d; want 0", c.Len())
	}
}

func TestCacheMaxEntries(t *testing.T) {
	c := NewCache(time.Hour, 2)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	first := c.Put("a", nil)
	now = now.Add(time.Second)
	c.Put("b", nil)
	now = now.Add(time.Second)
	c.Put("c", nil)

	if c.Len() != 2 {
		t.Errorf("Len = %d; want 2", c.Len())
	}
	if _, _, ok := c.Get(first); ok {
		t.Error("oldest entry should have been dropped")
	}
}
