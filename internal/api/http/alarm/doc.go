// Package alarm implements the monitor's HTTP surface: the status page,
// read-only JSON and CSV endpoints, history exports, Prometheus metrics and
// the JWT-protected operator API.
package alarm
