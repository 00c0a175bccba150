package gateway

import (
	"time"

	"github.com/anupk5743/Colleborative-task-manager1/internal/domain"
	"github.com/anupk5743/Colleborative-task-manager1/internal/hub"
	"github.com/anupk5743/Colleborative-task-manager1/pkg/log"
)

// Route decodes one inbound frame from client and redistributes it. The
// sender identity always comes from the connection, never from the frame.
// Frames that fail to decode are dropped and the sender receives an error
// event.
func (g *Gateway) Route(client *hub.Client, frame []byte) {
	name, in, err := domain.DecodeInbound(frame)
	if err != nil {
		client.Logger.Warn().Err(err).Str(log.FieldEvent, name).Msg("dropping invalid event")
		g.reject(client, err)
		return
	}

	now := g.now()
	sender := client.UserID

	client.Logger.Debug().
		Str(log.FieldEvent, name).
		Str(log.FieldTaskID, in.Task()).
		Msg("routing event")

	switch e := in.(type) {
	case domain.StatusChangedIn:
		g.broadcast(domain.Event{
			Kind: domain.KindStatusChanged,
			Payload: domain.StatusChangedPayload{
				TaskID:    e.TaskID,
				NewStatus: e.NewStatus,
				UpdatedBy: sender,
				Timestamp: now,
			},
			SenderID:  sender,
			Timestamp: now,
		}, "")

	case domain.PriorityChangedIn:
		g.broadcast(domain.Event{
			Kind: domain.KindPriorityChanged,
			Payload: domain.PriorityChangedPayload{
				TaskID:      e.TaskID,
				NewPriority: e.NewPriority,
				UpdatedBy:   sender,
				Timestamp:   now,
			},
			SenderID:  sender,
			Timestamp: now,
		}, "")

	case domain.AssignedIn:
		g.broadcast(domain.Event{
			Kind: domain.KindAssigned,
			Payload: domain.AssignedPayload{
				TaskID:       e.TaskID,
				AssignedToID: e.AssignedToID,
				UpdatedBy:    sender,
				Timestamp:    now,
			},
			SenderID:  sender,
			Timestamp: now,
		}, "")
		g.notifyAssignee(e, sender, now)

	case domain.CreatedIn:
		g.broadcast(domain.Event{
			Kind: domain.KindCreated,
			Payload: domain.CreatedPayload{
				TaskID:    e.TaskID,
				Fields:    e.Fields,
				CreatedBy: sender,
				Timestamp: now,
			},
			SenderID:  sender,
			Timestamp: now,
		}, "")

	case domain.DeletedIn:
		g.broadcast(domain.Event{
			Kind: domain.KindDeleted,
			Payload: domain.DeletedPayload{
				TaskID:    e.TaskID,
				DeletedBy: sender,
				Timestamp: now,
			},
			SenderID:  sender,
			Timestamp: now,
		}, "")
	}
}

// notifyAssignee sends the assignment notification to the assignee's
// current connection. An offline assignee gets nothing.
func (g *Gateway) notifyAssignee(e domain.AssignedIn, sender string, now time.Time) {
	connID, ok := g.presence.Get(e.AssignedToID)
	if !ok {
		return
	}

	assignedBy := e.AssignedBy
	if assignedBy == "" {
		assignedBy = sender
	}

	g.unicast(domain.Event{
		Kind: domain.KindNotification,
		Payload: domain.NotificationPayload{
			TaskID:     e.TaskID,
			TaskTitle:  e.TaskTitle,
			AssignedBy: assignedBy,
			Timestamp:  now,
		},
		SenderID:  sender,
		Timestamp: now,
	}, connID)
}

func (g *Gateway) reject(client *hub.Client, cause error) {
	data, err := domain.Encode(domain.EventError, domain.ErrorPayload{Message: cause.Error()})
	if err != nil {
		return
	}
	g.hub.SendTo(client.ID, data)
}
