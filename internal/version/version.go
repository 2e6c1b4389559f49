package version

// Version is the current version of argo-ml.
// This value is set at build time using ldflags:
// -ldflags "-X github.com/rxtech-lab/argo-ml/internal/version.Version=1.2.3"
// The default value "main" indicates a development build.
var Version = "main"

// ModelFormatVersion is the layout version of encoded model payloads. Bump the minor version
// when a classifier gains or loses a persisted field.
const ModelFormatVersion = "1.0.0"

// GetVersion returns the current version of the binary.
func GetVersion() string {
	return Version
}
