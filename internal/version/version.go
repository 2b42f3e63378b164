// Package version holds the build-time identity string threaded into
// the Server response header (spec §4.7 step 1).
package version

const (
	Version   = "0.1.0"
	BuildDate = "2026-07-30"
)

// ServerHeader formats the Server header value: "blazefs/<version>".
func ServerHeader() string {
	return "blazefs/" + Version
}
