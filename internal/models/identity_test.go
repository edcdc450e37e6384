package models

import "testing"

func TestIdentityDisplayName(t *testing.T) {
	t.Parallel()

	if got := (&Identity{}).DisplayName(); got != nil {
		t.Errorf("Expected nil name for an identity without one, got %q", *got)
	}

	id := &Identity{Name: "Ada"}
	got := id.DisplayName()
	if got == nil || *got != "Ada" {
		t.Fatalf("Expected Ada, got %v", got)
	}
	*got = "changed"
	if id.Name != "Ada" {
		t.Error("Expected DisplayName to return a copy")
	}
}
