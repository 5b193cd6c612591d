// Package alarm contains core domain types for the boiler alarm.
//
// It defines State (Active, Triggered, Stopped), Thresholds with their
// validation rules, Actor (who changed the state) and Status, a snapshot of
// the controller used by transports, with Clone helpers to avoid leaking
// internal references.
package alarm
