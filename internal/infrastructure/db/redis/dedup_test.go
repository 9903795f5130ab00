package redis

import (
	"testing"
)

func TestKey(t *testing.T) {
	got := Key(5, "0b6c2f9e-6f1d-4c1a-9a43-3f0e2d7c8b11")
	want := "notify:5:0b6c2f9e-6f1d-4c1a-9a43-3f0e2d7c8b11"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestKey_DistinctChangesDoNotCollide(t *testing.T) {
	if Key(5, "a") == Key(5, "b") {
		t.Fatal("different changes to one task must map to different keys")
	}
	if Key(5, "a") == Key(6, "a") {
		t.Fatal("keys must be scoped by task")
	}
}

func TestNewDedupChecker_DefaultWindow(t *testing.T) {
	d := NewDedupChecker(nil, 0)
	if d.window != defaultDedupWindow {
		t.Fatalf("expected default window %v, got %v", defaultDedupWindow, d.window)
	}
}
