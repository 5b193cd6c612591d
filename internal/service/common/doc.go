// Package common holds helpers shared by the boiler-ctl commands.
//
// It provides a gRPC client wrapper for boiler.v1.AlarmService with call
// timeouts and detects the current system actor (hostname/username) for
// the audit trail.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
