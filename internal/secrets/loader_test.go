package secrets

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	keyFile := filepath.Join(dir, "gemini-api-key")
	if err := os.WriteFile(keyFile, []byte("  file-key \n"), 0o600); err != nil {
		t.Fatalf("write key file: %v", err)
	}
	emptyFile := filepath.Join(dir, "empty")
	if err := os.WriteFile(emptyFile, []byte("\n\t"), 0o600); err != nil {
		t.Fatalf("write empty file: %v", err)
	}

	tests := []struct {
		name       string
		src        Source
		want       string
		notConfig  bool
		errContain string
	}{
		{
			name: "inline value is trimmed",
			src:  Source{Name: "ai.gemini.api-key", Value: "  inline  "},
			want: "inline",
		},
		{
			name: "file takes precedence over value",
			src:  Source{Name: "ai.gemini.api-key", Value: "inline", File: keyFile},
			want: "file-key",
		},
		{
			name:       "missing value",
			src:        Source{Name: "mail.sender-password"},
			notConfig:  true,
			errContain: "mail.sender-password is not configured",
		},
		{
			name:       "empty file",
			src:        Source{Name: "mail.sender-password", File: emptyFile},
			notConfig:  true,
			errContain: "is empty",
		},
		{
			name:       "unreadable file",
			src:        Source{Name: "mail.sender-password", File: filepath.Join(dir, "missing")},
			errContain: "reading mail.sender-password",
		},
		{
			name:       "default name",
			src:        Source{},
			notConfig:  true,
			errContain: "secret is not configured",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Load(tt.src)
			if tt.errContain == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got != tt.want {
					t.Fatalf("expected %q, got %q", tt.want, got)
				}
				return
			}

			if err == nil {
				t.Fatalf("expected error containing %q", tt.errContain)
			}
			if !strings.Contains(err.Error(), tt.errContain) {
				t.Fatalf("expected error containing %q, got %v", tt.errContain, err)
			}
			if errors.Is(err, ErrNotConfigured) != tt.notConfig {
				t.Fatalf("unexpected ErrNotConfigured match for %v", err)
			}
		})
	}
}
