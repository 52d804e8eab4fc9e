// Package version provides build and version information for the panel.
package version

import "time"

// Version is the current release version. Version and BuildDate can be
// overridden at build time using:
//
//	go build -ldflags "-X github.com/AaronLay10/verifypanel/internal/version.Version=x.y.z -X github.com/AaronLay10/verifypanel/internal/version.BuildDate=2026-01-31"
var (
	Version   = "1.0.0"
	BuildDate = ""
)

// BuildTime parses BuildDate (YYYY-MM-DD), falling back when it is unset or
// malformed.
func BuildTime(fallback time.Time) time.Time {
	if BuildDate == "" {
		return fallback
	}
	t, err := time.Parse(time.DateOnly, BuildDate)
	if err != nil {
		return fallback
	}
	return t
}
