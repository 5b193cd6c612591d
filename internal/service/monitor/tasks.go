package monitor

import (
	"context"
	"fmt"

	"github.com/oshokin/boiler-alarm/internal/clock"
	"github.com/oshokin/boiler-alarm/internal/logger"
	"github.com/oshokin/boiler-alarm/internal/scheduler"
)

// Scheduled task names.
const (
	TaskPollSensor    = "poll-sensor"
	TaskSampleHistory = "sample-history"
)

// PollSensor reads the sensor and feeds the controller.
func PollSensor(ctx context.Context, app *App) {
	value, fresh := app.Poller.Poll(ctx)
	app.Controller.OnReading(ctx, value, fresh)
}

// SampleHistory appends "timestamp,value" with the last valid reading.
// Nothing is written before the first reading.
func SampleHistory(ctx context.Context, app *App) {
	value, ok := app.Poller.Last()
	if !ok {
		logger.Debug(ctx, "No reading yet, history sample skipped")
		return
	}

	row := fmt.Sprintf("%s,%.1f", clock.Timestamp(app.Clock), value)

	if err := app.History.Append(ctx, row); err != nil {
		logger.ErrorKV(ctx, "Failed to append history sample", "error", err)
	}
}

// NewScheduler registers the periodic tasks in their run order.
func NewScheduler(app *App) (*scheduler.Scheduler[*App], error) {
	s := scheduler.New(app)

	if err := s.Every(TaskPollSensor, app.Config.Sensor.PollInterval, PollSensor); err != nil {
		return nil, err
	}

	if err := s.Every(TaskSampleHistory, app.Config.History.Interval, SampleHistory); err != nil {
		return nil, err
	}

	return s, nil
}
