// Package metrics registers the daemon's Prometheus collectors and exposes
// small helpers so callers never touch collector vectors directly. Helpers are
// no-ops until Init has run, which keeps unit tests free of registry setup.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "boiler_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	temperature     prometheus.Gauge
	sensorReadings  *prometheus.CounterVec
	alarmState      *prometheus.GaugeVec
	transitions     *prometheus.CounterVec
	storeAppends    *prometheus.CounterVec
	storeMaintain   *prometheus.CounterVec
	storeLatency    *prometheus.HistogramVec
	smsAttempts     *prometheus.CounterVec
	quotaDecisions  *prometheus.CounterVec
	schedulerTicks  *prometheus.CounterVec
	schedulerLag    *prometheus.GaugeVec
	dispatchDropped prometheus.Counter
)

// Init registers all collectors with the default registry.
func Init() {
	registerOnce.Do(func() {
		temperature = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "temperature_celsius",
			Help: "Last valid sensor reading",
		})
		sensorReadings = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "sensor_readings_total",
				Help: "Sensor polls by result",
			},
			[]string{"result"},
		)
		alarmState = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "alarm_state",
				Help: "1 for the current alarm state, 0 otherwise",
			},
			[]string{"state"},
		)
		transitions = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alarm_transitions_total",
				Help: "Alarm state transitions by target state and origin",
			},
			[]string{"to", "origin"},
		)
		storeAppends = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "store_appends_total",
				Help: "Log store appends by store and result",
			},
			[]string{"store", "result"},
		)
		storeMaintain = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "store_maintenance_total",
				Help: "Trim, compaction and rotation passes by store and kind",
			},
			[]string{"store", "kind"},
		)
		storeLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "store_append_latency_seconds",
				Help:    "Log store append latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"store"},
		)
		smsAttempts = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "sms_attempts_total",
				Help: "SMS delivery attempts by result",
			},
			[]string{"result"},
		)
		quotaDecisions = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "sms_quota_decisions_total",
				Help: "Daily SMS quota decisions",
			},
			[]string{"permitted"},
		)
		schedulerTicks = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "scheduler_runs_total",
				Help: "Scheduled task runs by task",
			},
			[]string{"task"},
		)
		schedulerLag = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "scheduler_lag_seconds",
				Help: "Delay between a task's due time and its start",
			},
			[]string{"task"},
		)
		dispatchDropped = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "dispatch_dropped_total",
			Help: "Notification jobs dropped because the queue was full",
		})

		prometheus.MustRegister(
			temperature,
			sensorReadings,
			alarmState,
			transitions,
			storeAppends,
			storeMaintain,
			storeLatency,
			smsAttempts,
			quotaDecisions,
			schedulerTicks,
			schedulerLag,
			dispatchDropped,
		)
	})
}

// ObserveReading records a sensor poll; ok is false when the sensor gave nothing.
func ObserveReading(value float64, ok bool) {
	if sensorReadings == nil {
		return
	}

	if !ok {
		sensorReadings.WithLabelValues(resultError).Inc()
		return
	}

	sensorReadings.WithLabelValues(resultSuccess).Inc()
	temperature.Set(value)
}

// SetAlarmState flips the state gauge so exactly one label is 1.
func SetAlarmState(current string, all []string) {
	if alarmState == nil {
		return
	}

	for _, s := range all {
		v := 0.0
		if s == current {
			v = 1
		}

		alarmState.WithLabelValues(s).Set(v)
	}
}

// IncTransition counts a state change.
func IncTransition(to, origin string) {
	if origin == "" {
		origin = "unknown"
	}

	if transitions != nil {
		transitions.WithLabelValues(to, origin).Inc()
	}
}

// ObserveAppend records an append result and its duration.
func ObserveAppend(store string, err error, duration time.Duration) {
	result := resultSuccess
	if err != nil {
		result = resultError
	}

	if storeAppends != nil {
		storeAppends.WithLabelValues(store, result).Inc()
	}

	if storeLatency != nil {
		storeLatency.WithLabelValues(store).Observe(duration.Seconds())
	}
}

// IncMaintenance counts a trim, compaction or rotation pass.
func IncMaintenance(store, kind string) {
	if storeMaintain != nil {
		storeMaintain.WithLabelValues(store, kind).Inc()
	}
}

// IncSMSAttempt counts one login+send attempt.
func IncSMSAttempt(err error) {
	result := resultSuccess
	if err != nil {
		result = resultError
	}

	if smsAttempts != nil {
		smsAttempts.WithLabelValues(result).Inc()
	}
}

// IncQuotaDecision counts a quota check.
func IncQuotaDecision(permitted bool) {
	label := "false"
	if permitted {
		label = "true"
	}

	if quotaDecisions != nil {
		quotaDecisions.WithLabelValues(label).Inc()
	}
}

// ObserveTask records a scheduled task run and how late it started.
func ObserveTask(task string, lag time.Duration) {
	if lag < 0 {
		lag = 0
	}

	if schedulerTicks != nil {
		schedulerTicks.WithLabelValues(task).Inc()
	}

	if schedulerLag != nil {
		schedulerLag.WithLabelValues(task).Set(lag.Seconds())
	}
}

// IncDispatchDropped counts a notification job that did not fit the queue.
func IncDispatchDropped() {
	if dispatchDropped != nil {
		dispatchDropped.Inc()
	}
}
