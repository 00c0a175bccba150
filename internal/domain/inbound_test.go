package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeInbound(t *testing.T) {
	tests := []struct {
		name    string
		frame   string
		want    InboundEvent
		wantErr error
	}{
		{
			name:  "status changed",
			frame: `{"event":"task:statusChanged","data":{"taskId":"t1","newStatus":"Review"}}`,
			want:  StatusChangedIn{TaskID: "t1", NewStatus: StatusReview},
		},
		{
			name:  "priority changed",
			frame: `{"event":"task:priorityChanged","data":{"taskId":"t1","newPriority":"Urgent"}}`,
			want:  PriorityChangedIn{TaskID: "t1", NewPriority: PriorityUrgent},
		},
		{
			name:  "assigned",
			frame: `{"event":"task:assigned","data":{"taskId":"t1","taskTitle":"Fix","assignedToId":"u2","assignedBy":"u1"}}`,
			want:  AssignedIn{TaskID: "t1", TaskTitle: "Fix", AssignedToID: "u2", AssignedBy: "u1"},
		},
		{
			name:  "deleted",
			frame: `{"event":"task:deleted","data":{"taskId":"t1"}}`,
			want:  DeletedIn{TaskID: "t1"},
		},
		{name: "not json", frame: `{nope`, wantErr: ErrMalformedFrame},
		{name: "no event name", frame: `{"data":{}}`, wantErr: ErrMalformedFrame},
		{name: "unknown event", frame: `{"event":"task:archived","data":{"taskId":"t1"}}`, wantErr: ErrUnknownEvent},
		{name: "missing data", frame: `{"event":"task:deleted"}`, wantErr: ErrMissingField},
		{name: "missing task id", frame: `{"event":"task:deleted","data":{}}`, wantErr: ErrMissingField},
		{
			name:  "status outside the task workflow is forwarded",
			frame: `{"event":"task:statusChanged","data":{"taskId":"t1","newStatus":"Done"}}`,
			want:  StatusChangedIn{TaskID: "t1", NewStatus: "Done"},
		},
		{name: "missing status", frame: `{"event":"task:statusChanged","data":{"taskId":"t1"}}`, wantErr: ErrMissingField},
		{name: "missing priority", frame: `{"event":"task:priorityChanged","data":{"taskId":"t1"}}`, wantErr: ErrMissingField},
		{name: "assigned without assignee", frame: `{"event":"task:assigned","data":{"taskId":"t1"}}`, wantErr: ErrMissingField},
		{name: "wrong data type", frame: `{"event":"task:deleted","data":{"taskId":42}}`, wantErr: ErrMalformedFrame},
		{name: "created without task id", frame: `{"event":"task:created","data":{"title":"x"}}`, wantErr: ErrMissingField},
		{name: "created with numeric task id", frame: `{"event":"task:created","data":{"taskId":1}}`, wantErr: ErrInvalidField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, got, err := DecodeInbound([]byte(tt.frame))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeInbound_CreatedKeepsFields(t *testing.T) {
	name, ev, err := DecodeInbound([]byte(`{"event":"task:created","data":{"taskId":"t1","title":"Write docs","priority":"High"}}`))
	require.NoError(t, err)
	assert.Equal(t, EventTaskCreated, name)

	created, ok := ev.(CreatedIn)
	require.True(t, ok)
	assert.Equal(t, "t1", created.Task())
	assert.Equal(t, KindCreated, created.Kind())
	assert.JSONEq(t, `"Write docs"`, string(created.Fields["title"]))
}

func TestCreatedPayload_ServerFieldsWin(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	p := CreatedPayload{
		TaskID: "t1",
		Fields: map[string]json.RawMessage{
			"title":     json.RawMessage(`"Write docs"`),
			"createdBy": json.RawMessage(`"spoofed"`),
		},
		CreatedBy: "u1",
		Timestamp: ts,
	}

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"taskId":"t1","title":"Write docs","createdBy":"u1","timestamp":"2026-01-02T03:04:05Z"}`, string(data))
}

func TestEncodeEvent(t *testing.T) {
	frame, err := EncodeEvent(Event{
		Kind:    KindOnline,
		Payload: UserPresencePayload{UserID: "u1"},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"user:online","data":{"userId":"u1"}}`, string(frame))
}

func TestEventKey(t *testing.T) {
	assert.Equal(t, "t1", Event{Payload: DeletedPayload{TaskID: "t1"}}.Key())
	assert.Equal(t, "u1", Event{Payload: UserPresencePayload{UserID: "u1"}}.Key())
	assert.Equal(t, "u9", Event{SenderID: "u9"}.Key())
}

func TestTaskPermissions(t *testing.T) {
	assignee := "u2"
	task := &Task{CreatorID: "u1", AssignedToID: &assignee, Status: StatusToDo, DueDate: time.Now().Add(-time.Hour)}

	assert.True(t, task.CanView("u1"))
	assert.True(t, task.CanView("u2"))
	assert.False(t, task.CanView("u3"))
	assert.True(t, task.CanModify("u1"))
	assert.False(t, task.CanModify("u2"))
}

func TestUpdateTaskRequestAssignee(t *testing.T) {
	var absent UpdateTaskRequest
	require.NoError(t, json.Unmarshal([]byte(`{"title":"x"}`), &absent))
	assert.False(t, absent.AssignedToID.Set)

	var cleared UpdateTaskRequest
	require.NoError(t, json.Unmarshal([]byte(`{"assignedToId":null}`), &cleared))
	assert.True(t, cleared.AssignedToID.Set)
	assert.Nil(t, cleared.AssignedToID.Value)

	var assigned UpdateTaskRequest
	require.NoError(t, json.Unmarshal([]byte(`{"assignedToId":"u2"}`), &assigned))
	assert.True(t, assigned.AssignedToID.Set)
	require.NotNil(t, assigned.AssignedToID.Value)
	assert.Equal(t, "u2", *assigned.AssignedToID.Value)

	var bad UpdateTaskRequest
	assert.Error(t, json.Unmarshal([]byte(`{"assignedToId":42}`), &bad))
}
