package service

import (
	"strings"
	"testing"
	"time"
)

func TestNewOrderIDFormat(t *testing.T) {
	id := NewOrderID()

	parts := strings.Split(id, "-")
	if len(parts) != 3 || parts[0] != "PX" {
		t.Fatalf("unexpected order id %q", id)
	}
	if parts[1] != time.Now().UTC().Format("20060102") {
		t.Fatalf("unexpected date segment %q", parts[1])
	}
	if len(parts[2]) != 12 {
		t.Fatalf("unexpected random segment %q", parts[2])
	}
}

func TestNewOrderIDIsUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		id := NewOrderID()
		if seen[id] {
			t.Fatalf("duplicate order id %q", id)
		}
		seen[id] = true
	}
}
