package live

import "github.com/google/uuid"

// Registry owns the set of live transfers in a runtime and hands out
// stable handles for them. It replaces any notion of process-global
// transfer tables: the runtime creates one registry and threads it to
// whoever needs lookup. Like the transfers themselves it is confined to
// the event loop task.
type Registry struct {
	transfers map[uuid.UUID]*LiveTransfer
	order     []uuid.UUID
}

func NewRegistry() *Registry {
	return &Registry{transfers: map[uuid.UUID]*LiveTransfer{}}
}

// Add registers the transfer and returns its handle.
func (r *Registry) Add(t *LiveTransfer) uuid.UUID {
	id := uuid.New()
	r.transfers[id] = t
	r.order = append(r.order, id)
	return id
}

func (r *Registry) Get(id uuid.UUID) *LiveTransfer {
	return r.transfers[id]
}

// BySwarmID returns the transfer participating in the given swarm, or
// nil.
func (r *Registry) BySwarmID(swarmID SwarmID) *LiveTransfer {
	for _, id := range r.order {
		if t, ok := r.transfers[id]; ok && t.SwarmID().Equal(swarmID) {
			return t
		}
	}
	return nil
}

// List returns the registered transfers in registration order.
func (r *Registry) List() []*LiveTransfer {
	out := make([]*LiveTransfer, 0, len(r.transfers))
	for _, id := range r.order {
		if t, ok := r.transfers[id]; ok {
			out = append(out, t)
		}
	}
	return out
}

func (r *Registry) Remove(id uuid.UUID) {
	delete(r.transfers, id)
	for i, o := range r.order {
		if o == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}
