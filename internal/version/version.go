// Package version carries build metadata, overridden via -ldflags at release
// time.
package version

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
	BuiltBy = ""
)

// Full renders the one-line version shown by --version.
func Full() string {
	s := "dumpsheet " + Version + " (commit " + Commit + ", built " + Date + ")"
	if BuiltBy != "" {
		s += " by " + BuiltBy
	}
	return s
}
