package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// CheckVersionCompatibility checks whether a payload written at storedVersion can be read by
// code at currentVersion. Returns nil if compatible, error with details if not.
//
// Compatibility Rules:
//   - If either version is "main" (development build), compatibility check is skipped
//   - Major versions must match exactly
//   - Minor versions must match exactly
//   - Patch versions can differ (e.g., 1.2.0 is compatible with 1.2.5)
func CheckVersionCompatibility(currentVersion, storedVersion string) error {
	currentVersion = strings.TrimPrefix(currentVersion, "v")
	storedVersion = strings.TrimPrefix(storedVersion, "v")

	if currentVersion == "main" || storedVersion == "main" {
		return nil
	}

	current, err := semver.NewVersion(currentVersion)
	if err != nil {
		return fmt.Errorf("invalid current version '%s': %w", currentVersion, err)
	}

	stored, err := semver.NewVersion(storedVersion)
	if err != nil {
		return fmt.Errorf("invalid stored version '%s': %w", storedVersion, err)
	}

	if current.Major() != stored.Major() {
		return fmt.Errorf("major version mismatch: reader is %d.x.x but payload was written by %d.x.x",
			current.Major(), stored.Major())
	}

	if current.Minor() != stored.Minor() {
		return fmt.Errorf("minor version mismatch: reader is %d.%d.x but payload was written by %d.%d.x",
			current.Major(), current.Minor(),
			stored.Major(), stored.Minor())
	}

	return nil
}

// CheckModelFormat checks a stored model payload version against ModelFormatVersion.
func CheckModelFormat(storedVersion string) error {
	return CheckVersionCompatibility(ModelFormatVersion, storedVersion)
}
