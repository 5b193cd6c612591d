// Package client implements the boiler-ctl operator commands.
//
// Each command connects to the monitor over gRPC, signs state changes with
// the detected actor and prints results for humans. Stop and resume keep
// retrying until the monitor confirms the requested state.
package client
