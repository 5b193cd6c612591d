// Package logger wraps zap for the boiler daemon and its CLI:
//   - a global sugared logger with a console encoder,
//   - context helpers (ToContext/FromContext/WithName/WithKV/WithFields),
//   - level configuration from config files and flags (Configure, ParseLogLevel),
//   - convenience functions (Infof, ErrorKV, etc.).
//
// Components take a context and extract the logger from it, so the scheduler,
// dispatcher and transports each log under their own name.
package logger
