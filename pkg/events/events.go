package events

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type EventType string

const (
	EventTypeRunStarted     EventType = "run.started"
	EventTypeStageStarted   EventType = "stage.started"
	EventTypeStageCompleted EventType = "stage.completed"
	EventTypeStageFailed    EventType = "stage.failed"
	EventTypeGateDecided    EventType = "gate.decided"
	EventTypeRunCompleted   EventType = "run.completed"
	EventTypeRunFailed      EventType = "run.failed"
)

type Event interface {
	Type() EventType
	Metadata() EventMetadata
	Payload() []byte
}

// Usage is the token accounting of one agent call.
type Usage struct {
	InputTokens  int `json:"input_tokens" yaml:"input_tokens"`
	OutputTokens int `json:"output_tokens" yaml:"output_tokens"`
}

// EventMetadata identifies where in a run an event happened.
type EventMetadata struct {
	ID         uuid.UUID `json:"message_id" yaml:"message_id"`
	RunID      string    `json:"run_id" yaml:"run_id"`
	WorkflowID string    `json:"workflow_id,omitempty" yaml:"workflow_id,omitempty"`
	Stage      string    `json:"stage,omitempty" yaml:"stage,omitempty"`
	Agent      string    `json:"agent,omitempty" yaml:"agent,omitempty"`
	// State is the orchestrator state after the transition.
	State string `json:"state,omitempty" yaml:"state,omitempty"`
	// HistoryLen is the number of conversation items at the time of the event.
	HistoryLen int    `json:"history_len" yaml:"history_len"`
	DurationMs *int64 `json:"duration_ms,omitempty" yaml:"duration_ms,omitempty"`
	Usage      *Usage `json:"usage,omitempty" yaml:"usage,omitempty"`
}

func (em EventMetadata) MarshalZerologObject(e *zerolog.Event) {
	e.Str("message_id", em.ID.String())
	e.Str("run_id", em.RunID)
	if em.WorkflowID != "" {
		e.Str("workflow_id", em.WorkflowID)
	}
	if em.Stage != "" {
		e.Str("stage", em.Stage)
	}
	if em.Agent != "" {
		e.Str("agent", em.Agent)
	}
	if em.State != "" {
		e.Str("state", em.State)
	}
	e.Int("history_len", em.HistoryLen)
	if em.DurationMs != nil {
		e.Int64("duration_ms", *em.DurationMs)
	}
	if em.Usage != nil {
		e.Int("input_tokens", em.Usage.InputTokens)
		e.Int("output_tokens", em.Usage.OutputTokens)
	}
}

type EventImpl struct {
	Type_     EventType     `json:"type"`
	Error_    string        `json:"error,omitempty"`
	Metadata_ EventMetadata `json:"meta"`

	// store payload if the event was deserialized from JSON (see NewEventFromJson), not further used
	payload []byte
}

func (e *EventImpl) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("type", string(e.Type_))
	if e.Error_ != "" {
		ev.Str("error", e.Error_)
	}
	ev.Object("meta", e.Metadata_)
}

func (e *EventImpl) Type() EventType {
	return e.Type_
}

func (e *EventImpl) Error() string {
	return e.Error_
}

func (e *EventImpl) Metadata() EventMetadata {
	return e.Metadata_
}

func (e *EventImpl) Payload() []byte {
	return e.payload
}

func newImpl(t EventType, metadata EventMetadata) EventImpl {
	if metadata.ID == uuid.Nil {
		metadata.ID = uuid.New()
	}
	return EventImpl{Type_: t, Metadata_: metadata}
}

type EventRunStarted struct {
	EventImpl
	Input string `json:"input"`
}

func NewRunStartedEvent(metadata EventMetadata, input string) *EventRunStarted {
	return &EventRunStarted{EventImpl: newImpl(EventTypeRunStarted, metadata), Input: input}
}

type EventStageStarted struct {
	EventImpl
	Model string `json:"model,omitempty"`
}

func NewStageStartedEvent(metadata EventMetadata, model string) *EventStageStarted {
	return &EventStageStarted{EventImpl: newImpl(EventTypeStageStarted, metadata), Model: model}
}

type EventStageCompleted struct {
	EventImpl
	// OutputText is the stage's validated output as JSON.
	OutputText string `json:"output_text"`
	NewItems   int    `json:"new_items"`
}

func NewStageCompletedEvent(metadata EventMetadata, outputText string, newItems int) *EventStageCompleted {
	return &EventStageCompleted{
		EventImpl:  newImpl(EventTypeStageCompleted, metadata),
		OutputText: outputText,
		NewItems:   newItems,
	}
}

type EventStageFailed struct {
	EventImpl
}

func NewStageFailedEvent(metadata EventMetadata, err error) *EventStageFailed {
	ret := &EventStageFailed{EventImpl: newImpl(EventTypeStageFailed, metadata)}
	if err != nil {
		ret.Error_ = err.Error()
	}
	return ret
}

type EventGateDecided struct {
	EventImpl
	Message  string `json:"message"`
	Approved bool   `json:"approved"`
}

func NewGateDecidedEvent(metadata EventMetadata, message string, approved bool) *EventGateDecided {
	return &EventGateDecided{
		EventImpl: newImpl(EventTypeGateDecided, metadata),
		Message:   message,
		Approved:  approved,
	}
}

type EventRunCompleted struct {
	EventImpl
	Approved bool `json:"approved"`
}

func NewRunCompletedEvent(metadata EventMetadata, approved bool) *EventRunCompleted {
	return &EventRunCompleted{EventImpl: newImpl(EventTypeRunCompleted, metadata), Approved: approved}
}

type EventRunFailed struct {
	EventImpl
}

func NewRunFailedEvent(metadata EventMetadata, err error) *EventRunFailed {
	ret := &EventRunFailed{EventImpl: newImpl(EventTypeRunFailed, metadata)}
	if err != nil {
		ret.Error_ = err.Error()
	}
	return ret
}

func ToTypedEvent[T any](e Event) (*T, bool) {
	var ret *T
	err := json.Unmarshal(e.Payload(), &ret)
	if err != nil {
		return nil, false
	}

	return ret, true
}

func typed[T any](e *EventImpl, set func(*T, []byte)) (Event, error) {
	ret, ok := ToTypedEvent[T](e)
	if !ok || ret == nil {
		return nil, fmt.Errorf("could not cast event %s", e.Type_)
	}
	set(ret, e.payload)
	ev, ok := any(ret).(Event)
	if !ok {
		return nil, fmt.Errorf("%T is not an event", ret)
	}
	return ev, nil
}

// NewEventFromJson decodes a serialized event into its concrete type.
func NewEventFromJson(b []byte) (Event, error) {
	var e *EventImpl
	err := json.Unmarshal(b, &e)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("empty event")
	}
	e.payload = b

	switch e.Type_ {
	case EventTypeRunStarted:
		return typed(e, func(t *EventRunStarted, p []byte) { t.payload = p })
	case EventTypeStageStarted:
		return typed(e, func(t *EventStageStarted, p []byte) { t.payload = p })
	case EventTypeStageCompleted:
		return typed(e, func(t *EventStageCompleted, p []byte) { t.payload = p })
	case EventTypeStageFailed:
		return typed(e, func(t *EventStageFailed, p []byte) { t.payload = p })
	case EventTypeGateDecided:
		return typed(e, func(t *EventGateDecided, p []byte) { t.payload = p })
	case EventTypeRunCompleted:
		return typed(e, func(t *EventRunCompleted, p []byte) { t.payload = p })
	case EventTypeRunFailed:
		return typed(e, func(t *EventRunFailed, p []byte) { t.payload = p })
	}

	return e, nil
}
