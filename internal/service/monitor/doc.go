// Package monitor assembles and runs the boiler-monitor daemon.
//
// App owns every long-lived instance (stores, settings, quota, controller,
// dispatcher, sensor poller); scheduler tasks and transports receive it
// explicitly. Run loads configuration, takes the instance lock and serves
// HTTP and gRPC until the context is canceled.
package monitor
