package domain

import (
	"encoding/json"
	"time"
)

// Event names carried in the "event" field of every frame.
const (
	EventTaskStatusChanged   = "task:statusChanged"
	EventTaskPriorityChanged = "task:priorityChanged"
	EventTaskAssigned        = "task:assigned"
	EventTaskCreated         = "task:created"
	EventTaskDeleted         = "task:deleted"

	EventUserOnline  = "user:online"
	EventUserOffline = "user:offline"

	EventNotificationTaskAssigned = "notification:taskAssigned"

	EventError = "error"
)

// Kind classifies a domain event independently of its wire name.
type Kind int

const (
	KindStatusChanged Kind = iota + 1
	KindPriorityChanged
	KindAssigned
	KindCreated
	KindDeleted
	KindOnline
	KindOffline
	KindNotification
)

var kindNames = map[Kind]string{
	KindStatusChanged:   EventTaskStatusChanged,
	KindPriorityChanged: EventTaskPriorityChanged,
	KindAssigned:        EventTaskAssigned,
	KindCreated:         EventTaskCreated,
	KindDeleted:         EventTaskDeleted,
	KindOnline:          EventUserOnline,
	KindOffline:         EventUserOffline,
	KindNotification:    EventNotificationTaskAssigned,
}

// String returns the wire name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Event is an enriched domain event ready for fan-out. It is never mutated
// after construction and never persisted by the gateway.
type Event struct {
	Kind      Kind
	Payload   any
	SenderID  string
	Timestamp time.Time
}

// Key returns the partitioning key used when the event is mirrored to the
// external stream: the task ID for task events, the user ID otherwise.
func (e Event) Key() string {
	switch p := e.Payload.(type) {
	case UserPresencePayload:
		return p.UserID
	case StatusChangedPayload:
		return p.TaskID
	case PriorityChangedPayload:
		return p.TaskID
	case AssignedPayload:
		return p.TaskID
	case DeletedPayload:
		return p.TaskID
	case NotificationPayload:
		return p.TaskID
	case CreatedPayload:
		return p.TaskID
	}
	return e.SenderID
}

// Envelope is the frame format in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Encode marshals an outbound frame.
func Encode(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}

// EncodeEvent marshals a domain event as an outbound frame.
func EncodeEvent(e Event) ([]byte, error) {
	return Encode(e.Kind.String(), e.Payload)
}

// Server -> Client payloads

type UserPresencePayload struct {
	UserID string `json:"userId"`
}

type StatusChangedPayload struct {
	TaskID    string     `json:"taskId"`
	NewStatus TaskStatus `json:"newStatus"`
	UpdatedBy string     `json:"updatedBy"`
	Timestamp time.Time  `json:"timestamp"`
}

type PriorityChangedPayload struct {
	TaskID      string       `json:"taskId"`
	NewPriority TaskPriority `json:"newPriority"`
	UpdatedBy   string       `json:"updatedBy"`
	Timestamp   time.Time    `json:"timestamp"`
}

type AssignedPayload struct {
	TaskID       string    `json:"taskId"`
	AssignedToID string    `json:"assignedToId"`
	UpdatedBy    string    `json:"updatedBy"`
	Timestamp    time.Time `json:"timestamp"`
}

type DeletedPayload struct {
	TaskID    string    `json:"taskId"`
	DeletedBy string    `json:"deletedBy"`
	Timestamp time.Time `json:"timestamp"`
}

type NotificationPayload struct {
	TaskID     string    `json:"taskId"`
	TaskTitle  string    `json:"taskTitle"`
	AssignedBy string    `json:"assignedBy"`
	Timestamp  time.Time `json:"timestamp"`
}

// CreatedPayload echoes every field the creator sent and adds createdBy
// and timestamp. The server-set fields win over client-supplied ones.
type CreatedPayload struct {
	TaskID    string
	Fields    map[string]json.RawMessage
	CreatedBy string
	Timestamp time.Time
}

func (p CreatedPayload) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Fields)+3)
	for k, v := range p.Fields {
		out[k] = v
	}
	out["taskId"] = p.TaskID
	out["createdBy"] = p.CreatedBy
	out["timestamp"] = p.Timestamp
	return json.Marshal(out)
}

type ErrorPayload struct {
	Message string `json:"message"`
}
