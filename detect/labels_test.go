package detect

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadLabels(t *testing.T) {
	file := filepath.Join(t.TempDir(), "labels.txt")

	err := os.WriteFile(file, []byte("background\nperson\nbicycle\ncar\n"), 0644)
	if err != nil {
		t.Fatalf("failed to write labels file: %v", err)
	}

	labels, err := LoadLabels(file)
	if err != nil {
		t.Fatalf("LoadLabels failed: %v", err)
	}

	if len(labels) != 4 {
		t.Fatalf("expected 4 labels, got %d", len(labels))
	}

	if labels[1] != "person" {
		t.Errorf("expected label 1 to be person, got %q", labels[1])
	}
}

func TestLoadLabelsMissingFile(t *testing.T) {
	if _, err := LoadLabels("/nonexistent/labels.txt"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFindClass(t *testing.T) {
	labels := []string{"background", "person", "car"}

	if id := FindClass(labels, "person"); id != 1 {
		t.Errorf("expected class 1, got %d", id)
	}

	// lookup is case insensitive
	if id := FindClass(labels, "Person"); id != 1 {
		t.Errorf("expected class 1 for mixed case, got %d", id)
	}

	if id := FindClass(labels, "dog"); id != -1 {
		t.Errorf("expected -1 for unknown label, got %d", id)
	}
}
