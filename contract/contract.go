//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"chat-relay/domain"
)

// EventSink receives rendered event payloads for one live session.
// Consume must not block: implementations buffer or reject.
type EventSink interface {
	ID() string
	Consume(ctx context.Context, payload []byte) error
}

// Bus is the broadcast surface of the router. A group is a named channel
// (room:<id> or notify:<user>); payloads are wire-ready JSON. The origin
// session id, when non-empty, is excluded from delivery so typing
// indicators are never echoed to their author. In a multi-process
// deployment the Bus is backed by an external broker.
type Bus interface {
	Subscribe(group string, sink EventSink)
	Unsubscribe(group, sinkID string)
	Publish(ctx context.Context, group, origin string, payload []byte) (int, error)
}

// CredentialVerifier validates an opaque bearer credential.
type CredentialVerifier interface {
	Verify(token string) (domain.Identity, error)
}

// RoomDirectory is the authoritative source for room membership.
type RoomDirectory interface {
	IsMember(roomID, userID string) (bool, error)
	Members(roomID string) ([]string, error)
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

type WorkerName string

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
