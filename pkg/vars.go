package herbdb

var (
	// Version is the application version. Set at build time via ldflags.
	Version = "v0.2.1"

	// Build is the build timestamp or commit. Set at build time via ldflags.
	Build = "n/a"
)
