// Package alarm implements the hysteresis alarm controller and the worker that
// delivers its notifications.
//
// Controller consumes temperature readings and operator commands, writes audit
// records and asks the daily quota for permission before queueing a Job on
// the Dispatcher. Dispatcher delivers each Job to every recipient
// independently, retrying the whole portal handshake per recipient.
package alarm
