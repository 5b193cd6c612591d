package pb

import (
	"errors"
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/boiler-alarm/internal/domain/alarm"
)

// Struct field names shared by client and server.
const (
	FieldState      = "state"
	FieldTempC      = "temp_c"
	FieldHasReading = "has_reading"
	FieldTriggerC   = "trigger_c"
	FieldResetC     = "reset_c"
	FieldPhones     = "phones"
	FieldChanged    = "changed"
	FieldActor      = "actor"
	FieldHostname   = "hostname"
	FieldUsername   = "username"
	FieldLimit      = "limit"
)

// ErrMalformedMessage is returned when a Struct lacks a required field or has the wrong kind.
var ErrMalformedMessage = errors.New("malformed message")

// ActorToStruct encodes an actor; nil yields nil.
func ActorToStruct(a *domain.Actor) *structpb.Struct {
	if a == nil {
		return nil
	}

	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldHostname: structpb.NewStringValue(a.Hostname),
		FieldUsername: structpb.NewStringValue(a.Username),
	}}
}

// ActorFromStruct decodes an actor; nil or empty input yields nil.
func ActorFromStruct(s *structpb.Struct) *domain.Actor {
	if s == nil || len(s.GetFields()) == 0 {
		return nil
	}

	return &domain.Actor{
		Hostname: s.GetFields()[FieldHostname].GetStringValue(),
		Username: s.GetFields()[FieldUsername].GetStringValue(),
	}
}

// NewSetStateRequest builds a SetState request.
func NewSetStateRequest(state domain.State, actor *domain.Actor) *structpb.Struct {
	fields := map[string]*structpb.Value{
		FieldState: structpb.NewStringValue(state.String()),
	}

	if a := ActorToStruct(actor); a != nil {
		fields[FieldActor] = structpb.NewStructValue(a)
	}

	return &structpb.Struct{Fields: fields}
}

// ParseSetStateRequest extracts the target state and actor.
func ParseSetStateRequest(req *structpb.Struct) (domain.State, *domain.Actor, error) {
	v, ok := req.GetFields()[FieldState]
	if !ok {
		return domain.Triggered, nil, fmt.Errorf("%w: missing %s", ErrMalformedMessage, FieldState)
	}

	state, err := domain.ParseState(v.GetStringValue())
	if err != nil {
		return domain.Triggered, nil, err
	}

	return state, ActorFromStruct(req.GetFields()[FieldActor].GetStructValue()), nil
}

// StatusToStruct encodes a status snapshot. temp_c is null without a reading.
func StatusToStruct(s *domain.Status) *structpb.Struct {
	temp := structpb.NewNullValue()
	if s.HasReading {
		temp = structpb.NewNumberValue(s.Temperature)
	}

	phones := make([]*structpb.Value, 0, len(s.Phones))
	for _, p := range s.Phones {
		phones = append(phones, structpb.NewStringValue(p))
	}

	fields := map[string]*structpb.Value{
		FieldState:      structpb.NewStringValue(s.State.String()),
		FieldTempC:      temp,
		FieldHasReading: structpb.NewBoolValue(s.HasReading),
		FieldTriggerC:   structpb.NewNumberValue(s.Thresholds.TriggerC),
		FieldResetC:     structpb.NewNumberValue(s.Thresholds.ResetC),
		FieldPhones:     structpb.NewListValue(&structpb.ListValue{Values: phones}),
	}

	if !s.Changed.IsZero() {
		fields[FieldChanged] = structpb.NewStringValue(s.Changed.Format(time.RFC3339))
	}

	if a := ActorToStruct(s.LastActor); a != nil {
		fields[FieldActor] = structpb.NewStructValue(a)
	}

	return &structpb.Struct{Fields: fields}
}

// StatusFromStruct decodes a snapshot produced by StatusToStruct.
func StatusFromStruct(s *structpb.Struct) (*domain.Status, error) {
	fields := s.GetFields()

	v, ok := fields[FieldState]
	if !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrMalformedMessage, FieldState)
	}

	state, err := domain.ParseState(v.GetStringValue())
	if err != nil {
		return nil, err
	}

	result := &domain.Status{
		State:      state,
		HasReading: fields[FieldHasReading].GetBoolValue(),
		Thresholds: domain.Thresholds{
			TriggerC: fields[FieldTriggerC].GetNumberValue(),
			ResetC:   fields[FieldResetC].GetNumberValue(),
		},
		LastActor: ActorFromStruct(fields[FieldActor].GetStructValue()),
	}

	if result.HasReading {
		result.Temperature = fields[FieldTempC].GetNumberValue()
	}

	for _, p := range fields[FieldPhones].GetListValue().GetValues() {
		result.Phones = append(result.Phones, p.GetStringValue())
	}

	if raw := fields[FieldChanged].GetStringValue(); raw != "" {
		changed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrMalformedMessage, FieldChanged, err)
		}

		result.Changed = changed
	}

	return result, nil
}

// LinesToList encodes text records.
func LinesToList(lines []string) *structpb.ListValue {
	values := make([]*structpb.Value, 0, len(lines))
	for _, l := range lines {
		values = append(values, structpb.NewStringValue(l))
	}

	return &structpb.ListValue{Values: values}
}

// LinesFromList decodes text records.
func LinesFromList(list *structpb.ListValue) []string {
	lines := make([]string, 0, len(list.GetValues()))
	for _, v := range list.GetValues() {
		lines = append(lines, v.GetStringValue())
	}

	return lines
}

// NewHistoryRequest asks for at most limit rows; zero means all.
func NewHistoryRequest(limit int) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldLimit: structpb.NewNumberValue(float64(limit)),
	}}
}

// HistoryLimit reads the requested row limit; missing or negative means all.
func HistoryLimit(req *structpb.Struct) int {
	limit := int(req.GetFields()[FieldLimit].GetNumberValue())
	if limit < 0 {
		return 0
	}

	return limit
}
