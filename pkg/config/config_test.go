package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type sample struct {
	Name  string `yaml:"name"`
	Limit int    `yaml:"limit"`
}

func (s *sample) Validate() error {
	if s.Limit <= 0 {
		return errors.New("limit must be positive")
	}
	return nil
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "ansuz")
	path := writeFile(t, t.TempDir(), "c.yaml", "name: ${SAMPLE_NAME}\nlimit: 3\n")

	var s sample
	if err := Load(path, &s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "ansuz" || s.Limit != 3 {
		t.Errorf("got %+v", s)
	}
}

func TestLoadValidates(t *testing.T) {
	path := writeFile(t, t.TempDir(), "c.yaml", "name: x\nlimit: 0\n")
	var s sample
	if err := Load(path, &s); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadWithDefaultsFallsBackToDefaultFile(t *testing.T) {
	dir := t.TempDir()
	def := writeFile(t, dir, "default.yaml", "name: fallback\nlimit: 1\n")

	var s sample
	if err := LoadWithDefaults(filepath.Join(dir, "missing.yaml"), def, &s); err != nil {
		t.Fatalf("LoadWithDefaults: %v", err)
	}
	if s.Name != "fallback" {
		t.Errorf("name = %q, want fallback", s.Name)
	}
}

func TestLoadWithDefaultsKeepsTargetWhenNoFile(t *testing.T) {
	dir := t.TempDir()
	s := sample{Name: "preset", Limit: 5}
	if err := LoadWithDefaults(filepath.Join(dir, "missing.yaml"), "", &s); err != nil {
		t.Fatalf("LoadWithDefaults: %v", err)
	}
	if s.Name != "preset" || s.Limit != 5 {
		t.Errorf("got %+v", s)
	}

	bad := sample{}
	if err := LoadWithDefaults(filepath.Join(dir, "missing.yaml"), "", &bad); err == nil {
		t.Error("expected validation error for invalid preset")
	}
}
