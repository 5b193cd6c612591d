// Package version holds build metadata injected through ldflags.
//
// Short and Full format it for logs, Describe returns it as a struct for the
// JSON output of the version subcommand.
package version
