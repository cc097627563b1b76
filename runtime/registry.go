package runtime

import (
	"chat-relay/contract"
	"context"
	"sync"
)

// Registry is the in-process broadcast router. It maps group names
// (room:<id>, notify:<user_id>) to the sinks currently subscribed to them.
type Registry struct {
	mu     sync.RWMutex
	groups map[string]map[string]contract.EventSink
}

func NewRegistry() *Registry {
	return &Registry{
		groups: make(map[string]map[string]contract.EventSink),
	}
}

// Subscribe attaches a sink to a group, creating the group on the fly.
// Subscribing the same sink ID twice replaces the previous sink.
func (r *Registry) Subscribe(group string, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.groups[group]; !ok {
		r.groups[group] = make(map[string]contract.EventSink)
	}
	r.groups[group][sink.ID()] = sink
}

// Unsubscribe detaches a sink from a group. Unknown group or sink ID is a no-op.
// It cleans up empty groups so the map does not leak over time.
func (r *Registry) Unsubscribe(group, sinkID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.groups[group]
	if !ok {
		return
	}
	delete(members, sinkID)

	// If no one is left in the group, remove the entry entirely
	if len(members) == 0 {
		delete(r.groups, group)
	}
}

// Publish delivers a payload to every sink subscribed to the group,
// except the one identified by origin. It iterates over a snapshot taken
// under the read lock, so sinks may subscribe or unsubscribe concurrently
// without blocking delivery. Returns the number of sinks that accepted
// the payload.
func (r *Registry) Publish(ctx context.Context, group, origin string, payload []byte) (int, error) {
	r.mu.RLock()
	members, ok := r.groups[group]
	if !ok {
		r.mu.RUnlock()
		return 0, nil
	}
	snapshot := make([]contract.EventSink, 0, len(members))
	for id, sink := range members {
		if id == origin {
			continue
		}
		snapshot = append(snapshot, sink)
	}
	r.mu.RUnlock()

	delivered := 0
	for _, sink := range snapshot {
		if err := sink.Consume(ctx, payload); err != nil {
			// A saturated or closing sink must not block the others.
			continue
		}
		delivered++
	}
	return delivered, nil
}

// GroupSize reports how many sinks are subscribed to a group.
func (r *Registry) GroupSize(group string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.groups[group])
}

// Stats reports the number of live groups and subscriptions.
func (r *Registry) Stats() (groups, subscriptions int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, members := range r.groups {
		subscriptions += len(members)
	}
	return len(r.groups), subscriptions
}
