package config

import "testing"

func TestLoadEnvironMapsPrefix(t *testing.T) {
	reg := NewDefaultRegistry()
	environ := []string{
		"PGBACKREST_REPO_TYPE=s3",
		"PGBACKREST_REPO1_PATH=/unrelated", // not a registered option, ignored
		"UNRELATED=ignored",
	}
	out, _, err := LoadEnviron(reg, environ)
	if err != nil {
		t.Fatalf("LoadEnviron: %v", err)
	}
	if got := out["repo-type"].Values[0]; got != "s3" {
		t.Fatalf("repo-type = %q, want s3", got)
	}
	if _, ok := out["repo1-path"]; ok {
		t.Fatalf("unregistered option should not appear")
	}
}

func TestLoadEnvironSecureOptionWarnsAndIgnores(t *testing.T) {
	reg := NewDefaultRegistry()
	environ := []string{"PGBACKREST_REPO_CIPHER_PASS=supersecret"}

	out, warnings, err := LoadEnviron(reg, environ)
	if err != nil {
		t.Fatalf("LoadEnviron: %v", err)
	}
	if _, ok := out["repo-cipher-pass"]; ok {
		t.Fatalf("secure option should have been dropped")
	}
	if len(warnings) != 1 {
		t.Fatalf("expected one warning, got %v", warnings)
	}
}
