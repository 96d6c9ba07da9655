package fsutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		input  string
		suffix string
		want   string
	}{
		{"model.pmx", "_weightfix", "model_weightfix.pmx"},
		{filepath.Join("a", "b", "miku.glb"), "_weightfix", filepath.Join("a", "b", "miku_weightfix.glb")},
		{"scene.v2.gltf", "_fixed", "scene.v2_fixed.gltf"},
		{"noext", "_weightfix", "noext_weightfix"},
	}

	for _, tt := range tests {
		if got := OutputPath(tt.input, tt.suffix); got != tt.want {
			t.Errorf("OutputPath(%q, %q) = %q, want %q", tt.input, tt.suffix, got, tt.want)
		}
	}
}

func TestUnusedPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.pmx")

	got, err := UnusedPath(path)
	if err != nil || got != path {
		t.Fatalf("UnusedPath() = %q, %v; want %q", got, err, path)
	}

	touch(t, path)
	want := filepath.Join(dir, "model (1).pmx")
	if got, _ := UnusedPath(path); got != want {
		t.Errorf("UnusedPath() = %q, want %q", got, want)
	}

	touch(t, want)
	want = filepath.Join(dir, "model (2).pmx")
	if got, _ := UnusedPath(path); got != want {
		t.Errorf("UnusedPath() = %q, want %q", got, want)
	}
}

func TestFindModels(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{
		"b.pmx",
		"a.PMX",
		filepath.Join("sub", "scene.glb"),
		filepath.Join("sub", "deeper", "scene.gltf"),
		filepath.Join(".cache", "hidden.pmx"),
		"notes.txt",
		"model.pmd",
	} {
		touch(t, filepath.Join(root, name))
	}

	got, err := FindModels(root)
	if err != nil {
		t.Fatalf("FindModels() error = %v", err)
	}
	want := []string{
		filepath.Join(root, "a.PMX"),
		filepath.Join(root, "b.pmx"),
		filepath.Join(root, "sub", "deeper", "scene.gltf"),
		filepath.Join(root, "sub", "scene.glb"),
	}
	if len(got) != len(want) {
		t.Fatalf("FindModels() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("FindModels()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestFindModels_MissingRoot(t *testing.T) {
	_, err := FindModels(filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected fs.ErrNotExist, got %v", err)
	}
}
