package config

import (
	"testing"

	"github.com/spf13/afero"
)

func TestBuild_Defaults(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := fs.MkdirAll("/srv", 0o755); err != nil {
		t.Fatal(err)
	}

	raw := DefaultRawArgs()
	raw.Root = "/srv"

	cfg, err := Build(raw, fs)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Root != "/srv" {
		t.Fatalf("expected canonicalized root /srv, got %q", cfg.Root)
	}
	if cfg.Port != 5000 {
		t.Fatalf("expected default port 5000, got %d", cfg.Port)
	}
}

func TestBuild_MissingRootFails(t *testing.T) {
	fs := afero.NewMemMapFs()
	raw := DefaultRawArgs()
	raw.Root = "/does-not-exist"

	if _, err := Build(raw, fs); err == nil {
		t.Fatal("expected error for nonexistent root")
	}
}

func TestBuild_PathPrefixNormalized(t *testing.T) {
	fs := afero.NewMemMapFs()
	fs.MkdirAll("/srv", 0o755)

	raw := DefaultRawArgs()
	raw.Root = "/srv"
	raw.PathPrefix = "docs/"

	cfg, err := Build(raw, fs)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.PathPrefix != "/docs" {
		t.Fatalf("expected normalized prefix /docs, got %q", cfg.PathPrefix)
	}
}

func TestBuild_InvalidBindAddress(t *testing.T) {
	fs := afero.NewMemMapFs()
	fs.MkdirAll("/srv", 0o755)

	raw := DefaultRawArgs()
	raw.Root = "/srv"
	raw.Bind = "not-an-ip"

	if _, err := Build(raw, fs); err == nil {
		t.Fatal("expected error for invalid bind address")
	}
}
