package alarm

import (
	"math"
	"time"

	domain "github.com/oshokin/boiler-alarm/internal/domain/alarm"
)

type actorResponse struct {
	Hostname string `json:"hostname"`
	Username string `json:"username"`
}

type statusResponse struct {
	State     string         `json:"state"`
	TempC     *float64       `json:"temp_c"`
	TriggerC  float64        `json:"trigger_c"`
	ResetC    float64        `json:"reset_c"`
	Phones    []string       `json:"phones"`
	Changed   string         `json:"changed,omitempty"`
	LastActor *actorResponse `json:"last_actor,omitempty"`
}

func newStatusResponse(s *domain.Status) statusResponse {
	resp := statusResponse{
		State:    s.State.String(),
		TriggerC: s.Thresholds.TriggerC,
		ResetC:   s.Thresholds.ResetC,
		Phones:   s.Phones,
	}

	if resp.Phones == nil {
		resp.Phones = []string{}
	}

	resp.TempC = roundedTemp(s)

	if !s.Changed.IsZero() {
		resp.Changed = s.Changed.Format(time.RFC3339)
	}

	if s.LastActor != nil {
		resp.LastActor = &actorResponse{
			Hostname: s.LastActor.Hostname,
			Username: s.LastActor.Username,
		}
	}

	return resp
}

// roundedTemp is the reading at one decimal, as /hist rows store it; nil
// without a reading.
func roundedTemp(s *domain.Status) *float64 {
	if !s.HasReading {
		return nil
	}

	temp := math.Round(s.Temperature*10) / 10

	return &temp
}
