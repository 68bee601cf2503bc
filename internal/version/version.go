// Package version holds the build version reported by the CLI and the
// User-Agent header.
package version

var Version = "0.1.0"
