package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckVersionCompatibility(t *testing.T) {
	tests := []struct {
		name           string
		currentVersion string
		storedVersion  string
		expectError    bool
		errorContains  string
	}{
		{
			name:           "exact match",
			currentVersion: "1.0.0",
			storedVersion:  "1.0.0",
		},
		{
			name:           "stored patch higher",
			currentVersion: "1.0.0",
			storedVersion:  "1.0.3",
		},
		{
			name:           "current patch higher",
			currentVersion: "1.0.4",
			storedVersion:  "1.0.0",
		},
		{
			name:           "minor differs",
			currentVersion: "1.1.0",
			storedVersion:  "1.0.0",
			expectError:    true,
			errorContains:  "minor version mismatch",
		},
		{
			name:           "major differs",
			currentVersion: "2.0.0",
			storedVersion:  "1.0.0",
			expectError:    true,
			errorContains:  "major version mismatch",
		},
		{
			name:           "development build",
			currentVersion: "main",
			storedVersion:  "3.1.0",
		},
		{
			name:           "v prefix",
			currentVersion: "v1.0.0",
			storedVersion:  "1.0.2",
		},
		{
			name:           "invalid stored version",
			currentVersion: "1.0.0",
			storedVersion:  "gob",
			expectError:    true,
			errorContains:  "invalid stored version",
		},
		{
			name:           "empty stored version",
			currentVersion: "1.0.0",
			storedVersion:  "",
			expectError:    true,
			errorContains:  "invalid stored version",
		},
		{
			name:           "invalid current version",
			currentVersion: "latest",
			storedVersion:  "1.0.0",
			expectError:    true,
			errorContains:  "invalid current version",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckVersionCompatibility(tt.currentVersion, tt.storedVersion)

			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestCheckModelFormat(t *testing.T) {
	assert.NoError(t, CheckModelFormat(ModelFormatVersion))
	assert.Error(t, CheckModelFormat("0.9.0"))
}

func TestGetVersion(t *testing.T) {
	assert.Equal(t, Version, GetVersion())
}
