package handlers

import (
	"slices"
	"testing"
)

func TestNaturalCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"slide2", "slide10", -1},
		{"slide10", "slide2", 1},
		{"slide02", "slide2", 0},
		{"slide1", "slide1", 0},
		{"a", "b", -1},
		{"slide", "slide1", -1},
		{"img9b", "img9a", 1},
	}
	for _, tt := range tests {
		if got := NaturalCompare(tt.a, tt.b); got != tt.want {
			t.Errorf("NaturalCompare(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestNaturalSortOrder(t *testing.T) {
	fields := []string{"slide10", "slide1", "slide3", "slide2", "slide0"}
	slices.SortFunc(fields, NaturalCompare)
	want := []string{"slide0", "slide1", "slide2", "slide3", "slide10"}
	if !slices.Equal(fields, want) {
		t.Errorf("sorted = %v, want %v", fields, want)
	}
}

func TestHasExtension(t *testing.T) {
	if !hasExtension("Deck.PPTX", DocumentExtensions) {
		t.Error("extension match must ignore case")
	}
	if hasExtension("deck.ppsx", DocumentExtensions) {
		t.Error("ppsx must be rejected")
	}
	if !hasExtension("slide.tiff", SnapshotExtensions) {
		t.Error("tiff snapshots are allowed")
	}
}
