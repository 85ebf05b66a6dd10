package fonts

import (
	"testing"

	"github.com/previewforge/previewforge/pkg/typography"
)

func TestFaceFallsBackToBundled(t *testing.T) {
	lib := NewLibrary()
	choice := typography.FontChoice{
		Stack:  []string{"definitely-not-installed-anywhere.ttf"},
		Weight: 400,
	}
	face, err := lib.Face(choice, 24)
	if err != nil {
		t.Fatalf("Face: %v", err)
	}
	if face == nil {
		t.Fatal("Face returned nil face")
	}
}

func TestFaceCaching(t *testing.T) {
	lib := NewLibrary()
	choice := typography.ForPersonality("bold")
	a, err := lib.Face(choice, 32)
	if err != nil {
		t.Fatalf("Face: %v", err)
	}
	b, err := lib.Face(choice, 32)
	if err != nil {
		t.Fatalf("Face: %v", err)
	}
	if a != b {
		t.Error("same choice and size should return the cached face")
	}
}

func TestFaceDistinctSizes(t *testing.T) {
	lib := NewLibrary()
	choice := typography.ForPersonality("neutral")
	a, _ := lib.Face(choice, 16)
	b, _ := lib.Face(choice, 64)
	if a == b {
		t.Error("different sizes must produce different faces")
	}
}

func TestFaceInvalidSize(t *testing.T) {
	lib := NewLibrary()
	if _, err := lib.Face(typography.ForPersonality("neutral"), 0); err == nil {
		t.Error("zero size should error")
	}
}

func TestBundledWeights(t *testing.T) {
	tests := []struct {
		weight int
		want   string
	}{
		{800, "go-bold"},
		{700, "go-bold"},
		{500, "go-medium"},
		{400, "go-regular"},
		{0, "go-regular"},
	}
	for _, tt := range tests {
		name, data := bundledFor(tt.weight)
		if name != tt.want {
			t.Errorf("bundledFor(%d) = %q, want %q", tt.weight, name, tt.want)
		}
		if len(data) == 0 {
			t.Errorf("bundledFor(%d) returned empty font data", tt.weight)
		}
	}
}
