package main

import (
	"path/filepath"
	"strings"
	"testing"
)

// Requirement: startup failures are returned to the caller instead of exiting the process
func TestRun_StartupFailures(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing secret",
			env:     map[string]string{"JWT_SECRET": ""},
			wantErr: "load config",
		},
		{
			name:    "bad log level",
			env:     map[string]string{"LOG_LEVEL": "loud"},
			wantErr: "invalid LOG_LEVEL",
		},
		{
			name: "unreachable postgres",
			env: map[string]string{
				"DATABASE_DRIVER": "postgres",
				"DATABASE_URL":    "postgres://storefront@127.0.0.1:1/storefront?connect_timeout=1",
			},
			wantErr: "postgres ping",
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
			t.Setenv("INSECURE_DEV_MODE", "false")
			for k, v := range test.env {
				t.Setenv(k, v)
			}

			// Act
			err := run(filepath.Join(t.TempDir(), "missing.env"))

			// Assert
			if err == nil || !strings.Contains(err.Error(), test.wantErr) {
				t.Errorf("run() error = %v, want it to mention %q", err, test.wantErr)
			}
		})
	}
}
