package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// CheckVersionCompatibility checks that the engine can talk to a signal
// service reporting serviceVersion. Returns nil if compatible.
//
// Rules:
//   - "main" on either side (development build) skips the check
//   - major and minor versions must match exactly
//   - patch versions can differ (1.2.0 works with 1.2.5)
func CheckVersionCompatibility(engineVersion, serviceVersion string) error {
	engineVersion = strings.TrimPrefix(strings.TrimSpace(engineVersion), "v")
	serviceVersion = strings.TrimPrefix(strings.TrimSpace(serviceVersion), "v")

	if engineVersion == "main" || serviceVersion == "main" {
		return nil
	}

	engineSemver, err := semver.NewVersion(engineVersion)
	if err != nil {
		return fmt.Errorf("invalid engine version '%s': %w", engineVersion, err)
	}

	serviceSemver, err := semver.NewVersion(serviceVersion)
	if err != nil {
		return fmt.Errorf("invalid signal service version '%s': %w", serviceVersion, err)
	}

	if engineSemver.Major() != serviceSemver.Major() {
		return fmt.Errorf("major version mismatch: engine is %d.x.x but signal service is %d.x.x",
			engineSemver.Major(), serviceSemver.Major())
	}

	if engineSemver.Minor() != serviceSemver.Minor() {
		return fmt.Errorf("minor version mismatch: engine is %d.%d.x but signal service is %d.%d.x",
			engineSemver.Major(), engineSemver.Minor(),
			serviceSemver.Major(), serviceSemver.Minor())
	}

	return nil
}
