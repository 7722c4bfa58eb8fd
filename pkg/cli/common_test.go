package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coget/coget/pkg/config"
)

func TestEnsureDestinationNotExist(t *testing.T) {
	tc := []struct {
		name        string
		createFile  bool
		force       bool
		expectError bool
	}{
		{name: "file exists", createFile: true, expectError: true},
		{name: "file exists with force", createFile: true, force: true},
		{name: "no file", createFile: false},
		{name: "no file with force", createFile: false, force: true},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			defer viper.Reset()
			viper.Set(config.OptForce, tt.force)

			dest := filepath.Join(t.TempDir(), "weights.bin")
			if tt.createFile {
				require.NoError(t, os.WriteFile(dest, []byte("present"), 0644))
			}

			err := EnsureDestinationNotExist(dest)
			if tt.expectError {
				assert.ErrorContains(t, err, "already exists")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOutputFilename(t *testing.T) {
	tc := []struct {
		name        string
		url         string
		expected    string
		expectError bool
	}{
		{name: "simple path", url: "https://example.com/files/weights.bin", expected: "weights.bin"},
		{name: "query stripped", url: "https://example.com/weights.bin?signature=abc123", expected: "weights.bin"},
		{name: "fragment stripped", url: "https://example.com/weights.bin#section", expected: "weights.bin"},
		{name: "no path", url: "https://example.com", expectError: true},
		{name: "trailing slash", url: "https://example.com/files/", expectError: true},
		{name: "root path", url: "https://example.com/", expectError: true},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			name, err := OutputFilename(tt.url)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, name)
		})
	}
}
