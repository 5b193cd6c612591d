// Package pb defines the boiler.v1.AlarmService gRPC contract.
//
// Messages are protobuf well-known types (Empty, Struct, ListValue) so the
// service needs no generated code; field names and the conversions to and
// from domain types live in messages.go.
package pb
