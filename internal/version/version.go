package version

import (
	"fmt"
	"time"
)

var (
	// Version is the semantic version of the build. It can be overridden via ldflags.
	Version = "1.0.0"
	// Commit is the short git SHA embedded at build time (or "none").
	Commit = "none"
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"
)

// bootTime is when the process started.
var bootTime = time.Now()

// Short returns only the semantic version string.
func Short() string {
	return Version
}

// Full returns a human-readable version string with commit and build time.
func Full() string {
	return fmt.Sprintf("version: %s, commit: %s, built at: %s", Version, Commit, BuildTime)
}

// BootTime returns the process start time.
func BootTime() time.Time {
	return bootTime
}

// Info is the build and runtime metadata served at /info.
type Info struct {
	Commit      string `json:"commit"`
	CompileTime string `json:"compileTime"`
	LastBoot    string `json:"lastBoot"`
	SystemTime  string `json:"systemTime"`
}

// Describe returns Info with times rendered as ISO 8601 in now's location.
func Describe(now time.Time) Info {
	return Info{
		Commit:      Commit,
		CompileTime: BuildTime,
		LastBoot:    bootTime.In(now.Location()).Format(time.RFC3339),
		SystemTime:  now.Format(time.RFC3339),
	}
}
