package version

var (
	// Version of the insulinctl binary, set with -ldflags at release time.
	Version = "dev"
	// Commit the binary was built from.
	Commit = "unknown"
	// BuildDate is stamped by the release build.
	BuildDate = "unknown"
)

// Producer is the string embedded in generated report metadata.
func Producer() string {
	return "insulinctl " + Version
}
