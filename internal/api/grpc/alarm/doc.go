// Package alarm implements the boiler.v1.AlarmService gRPC transport.
//
// It adapts the controller snapshot and the history and audit stores to
// protobuf well-known types and maps domain errors to gRPC status codes.
package alarm
