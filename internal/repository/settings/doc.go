// Package settings implements the persisted key-value settings store.
//
// The FileRepository keeps a google.protobuf.Struct encoded as JSON (protojson)
// on disk and exposes a Store interface that the quota and the alarm
// controller depend on. Writes replace the whole file through a temporary
// file and a rename, so a reader never sees a half-written document.
package settings
