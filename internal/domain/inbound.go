package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrMalformedFrame = errors.New("malformed frame")
	ErrUnknownEvent   = errors.New("unknown event")
	ErrMissingField   = errors.New("missing required field")
	ErrInvalidField   = errors.New("invalid field value")
)

// InboundEvent is the closed set of events a client may emit. Frames are
// decoded into one of these at the connection boundary; anything else is
// rejected before it reaches the router.
type InboundEvent interface {
	Kind() Kind
	Task() string
	inbound()
}

type StatusChangedIn struct {
	TaskID    string     `json:"taskId"`
	NewStatus TaskStatus `json:"newStatus"`
}

type PriorityChangedIn struct {
	TaskID      string       `json:"taskId"`
	NewPriority TaskPriority `json:"newPriority"`
}

type AssignedIn struct {
	TaskID       string `json:"taskId"`
	TaskTitle    string `json:"taskTitle"`
	AssignedToID string `json:"assignedToId"`
	AssignedBy   string `json:"assignedBy"`
}

// CreatedIn keeps the full creator payload so it can be echoed.
type CreatedIn struct {
	TaskID string
	Fields map[string]json.RawMessage
}

type DeletedIn struct {
	TaskID string `json:"taskId"`
}

func (StatusChangedIn) Kind() Kind   { return KindStatusChanged }
func (PriorityChangedIn) Kind() Kind { return KindPriorityChanged }
func (AssignedIn) Kind() Kind        { return KindAssigned }
func (CreatedIn) Kind() Kind         { return KindCreated }
func (DeletedIn) Kind() Kind         { return KindDeleted }

func (e StatusChangedIn) Task() string   { return e.TaskID }
func (e PriorityChangedIn) Task() string { return e.TaskID }
func (e AssignedIn) Task() string        { return e.TaskID }
func (e CreatedIn) Task() string         { return e.TaskID }
func (e DeletedIn) Task() string         { return e.TaskID }

func (StatusChangedIn) inbound()   {}
func (PriorityChangedIn) inbound() {}
func (AssignedIn) inbound()        {}
func (CreatedIn) inbound()         {}
func (DeletedIn) inbound()         {}

// DecodeInbound parses a client frame into an InboundEvent. It returns the
// event name alongside any error so callers can log what was rejected.
func DecodeInbound(frame []byte) (string, InboundEvent, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if env.Event == "" {
		return "", nil, fmt.Errorf("%w: event name is empty", ErrMalformedFrame)
	}

	ev, err := decodeData(env.Event, env.Data)
	return env.Event, ev, err
}

func decodeData(name string, data json.RawMessage) (InboundEvent, error) {
	switch name {
	case EventTaskStatusChanged:
		var e StatusChangedIn
		if err := unmarshalData(data, &e); err != nil {
			return nil, err
		}
		if err := requireField("taskId", e.TaskID); err != nil {
			return nil, err
		}
		if err := requireField("newStatus", string(e.NewStatus)); err != nil {
			return nil, err
		}
		return e, nil

	case EventTaskPriorityChanged:
		var e PriorityChangedIn
		if err := unmarshalData(data, &e); err != nil {
			return nil, err
		}
		if err := requireField("taskId", e.TaskID); err != nil {
			return nil, err
		}
		if err := requireField("newPriority", string(e.NewPriority)); err != nil {
			return nil, err
		}
		return e, nil

	case EventTaskAssigned:
		var e AssignedIn
		if err := unmarshalData(data, &e); err != nil {
			return nil, err
		}
		if err := requireField("taskId", e.TaskID); err != nil {
			return nil, err
		}
		if err := requireField("assignedToId", e.AssignedToID); err != nil {
			return nil, err
		}
		return e, nil

	case EventTaskCreated:
		var fields map[string]json.RawMessage
		if err := unmarshalData(data, &fields); err != nil {
			return nil, err
		}
		var id string
		if raw, ok := fields["taskId"]; ok {
			if err := json.Unmarshal(raw, &id); err != nil {
				return nil, fmt.Errorf("%w: taskId must be a string", ErrInvalidField)
			}
		}
		if err := requireField("taskId", id); err != nil {
			return nil, err
		}
		return CreatedIn{TaskID: id, Fields: fields}, nil

	case EventTaskDeleted:
		var e DeletedIn
		if err := unmarshalData(data, &e); err != nil {
			return nil, err
		}
		if err := requireField("taskId", e.TaskID); err != nil {
			return nil, err
		}
		return e, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, name)
}

func unmarshalData(data json.RawMessage, v any) error {
	if len(data) == 0 || string(data) == "null" {
		return fmt.Errorf("%w: data", ErrMissingField)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return nil
}

func requireField(field, value string) error {
	if value == "" {
		return fmt.Errorf("%w: %s", ErrMissingField, field)
	}
	return nil
}
