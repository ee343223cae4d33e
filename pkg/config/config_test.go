package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type sample struct {
	Name  string `yaml:"name"`
	Count int    `yaml:"count"`
}

func (s *sample) Validate() error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "from-env")
	p := writeConfig(t, "name: ${SAMPLE_NAME}\ncount: 3\n")

	var s sample
	if err := Load(p, &s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "from-env" || s.Count != 3 {
		t.Errorf("loaded %+v", s)
	}
}

func TestLoadRunsValidator(t *testing.T) {
	p := writeConfig(t, "count: 1\n")
	var s sample
	if err := Load(p, &s); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadOptionalMissingFileKeepsDefaults(t *testing.T) {
	s := sample{Name: "default", Count: 7}
	if err := LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"), &s); err != nil {
		t.Fatalf("LoadOptional: %v", err)
	}
	if s.Name != "default" || s.Count != 7 {
		t.Errorf("defaults changed: %+v", s)
	}

	empty := sample{}
	if err := LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"), &empty); err == nil {
		t.Error("defaults should still be validated")
	}
}

func TestLoadOptionalOverridesDefaults(t *testing.T) {
	p := writeConfig(t, "count: 9\n")
	s := sample{Name: "default", Count: 7}
	if err := LoadOptional(p, &s); err != nil {
		t.Fatalf("LoadOptional: %v", err)
	}
	if s.Name != "default" || s.Count != 9 {
		t.Errorf("loaded %+v", s)
	}
}
