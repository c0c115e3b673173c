package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "token")
	if err := os.WriteFile(file, []byte("  from-file \n"), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}
	empty := filepath.Join(dir, "empty")
	if err := os.WriteFile(empty, []byte("\n"), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}

	t.Setenv("JOB_INTAKE_TEST_SECRET", " from-env ")

	tests := []struct {
		name    string
		src     Source
		expect  string
		wantErr string
	}{
		{name: "file wins over value", src: Source{Name: "token", File: file, Value: "inline"}, expect: "from-file"},
		{name: "inline value", src: Source{Value: " inline "}, expect: "inline"},
		{name: "env fallback", src: Source{Env: "JOB_INTAKE_TEST_SECRET"}, expect: "from-env"},
		{name: "empty file", src: Source{Name: "token", File: empty}, wantErr: "is empty"},
		{name: "missing file", src: Source{Name: "token", File: filepath.Join(dir, "nope")}, wantErr: "reading token"},
		{name: "nothing configured", src: Source{Name: "api key"}, wantErr: "api key is not configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.src)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}

func TestOptional(t *testing.T) {
	secret, ok, err := Optional(Source{Name: "token"})
	if err != nil || ok || secret != "" {
		t.Fatalf("expected missing secret to be reported as not ok, got %q %v %v", secret, ok, err)
	}

	secret, ok, err = Optional(Source{Name: "token", Value: "abc"})
	if err != nil || !ok || secret != "abc" {
		t.Fatalf("unexpected result: %q %v %v", secret, ok, err)
	}

	_, _, err = Optional(Source{Name: "token", File: filepath.Join(t.TempDir(), "missing")})
	if err == nil {
		t.Fatalf("expected read error for configured file")
	}
}
