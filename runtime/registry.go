package runtime

import (
	"sort"
	"sync"

	"github.com/samber/lo"

	"chat-core/contract"
	"chat-core/domain"
)

type connSet map[domain.ConnID]struct{}

// Registry is the connection registry: the single source of truth for which
// connections are online, who they belong to, and which rooms they sit in.
//
// Lookups run both ways (connection -> identity and identity -> connections)
// so targeting a logical user across all their devices never scans the whole
// table. One RWMutex serializes every mutation; concurrent register and
// unregister calls from different connection goroutines cannot lose entries.
//
// Every mutation that can change the presence snapshot pokes the refresh
// channel; the presence worker coalesces those pokes into broadcasts.
type Registry struct {
	mu          sync.RWMutex
	identities  map[domain.ConnID]domain.Identity
	connections map[domain.Identity]connSet
	sinks       map[domain.ConnID]contract.EventSink
	roomMembers map[domain.RoomKey]connSet
	connRooms   map[domain.ConnID]map[domain.RoomKey]struct{}
	refresh     chan<- struct{}
}

// NewRegistry builds an empty registry. refresh may be nil in tests that do
// not care about presence.
func NewRegistry(refresh chan<- struct{}) *Registry {
	return &Registry{
		identities:  make(map[domain.ConnID]domain.Identity),
		connections: make(map[domain.Identity]connSet),
		sinks:       make(map[domain.ConnID]contract.EventSink),
		roomMembers: make(map[domain.RoomKey]connSet),
		connRooms:   make(map[domain.ConnID]map[domain.RoomKey]struct{}),
		refresh:     refresh,
	}
}

func (r *Registry) signalRefresh() {
	if r.refresh == nil {
		return
	}
	select {
	case r.refresh <- struct{}{}:
	default:
		// A refresh is already pending; the worker snapshots latest state.
	}
}

// Attach records a connection's delivery sink at transport-connect time,
// before any identity is known. No presence change.
func (r *Registry) Attach(conn domain.ConnID, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks[conn] = sink
}

// Register associates a connection with an identity, overwriting any prior
// identity for that connection. Idempotent per connection. Triggers a
// presence refresh.
func (r *Registry) Register(conn domain.ConnID, identity domain.Identity) {
	r.mu.Lock()
	if prior, ok := r.identities[conn]; ok && prior != identity {
		r.dropConnection(prior, conn)
	}
	r.identities[conn] = identity
	if _, ok := r.connections[identity]; !ok {
		r.connections[identity] = make(connSet)
	}
	r.connections[identity][conn] = struct{}{}
	r.mu.Unlock()

	r.signalRefresh()
}

// Unregister removes everything known about the connection: identity
// mapping, sink, and every room membership. No-op if the connection was
// never attached. Triggers a presence refresh when an identity was dropped.
func (r *Registry) Unregister(conn domain.ConnID) {
	r.mu.Lock()
	identity, hadIdentity := r.identities[conn]
	if hadIdentity {
		delete(r.identities, conn)
		r.dropConnection(identity, conn)
	}
	delete(r.sinks, conn)
	for room := range r.connRooms[conn] {
		if members, ok := r.roomMembers[room]; ok {
			delete(members, conn)
			if len(members) == 0 {
				delete(r.roomMembers, room)
			}
		}
	}
	delete(r.connRooms, conn)
	r.mu.Unlock()

	if hadIdentity {
		r.signalRefresh()
	}
}

// dropConnection removes conn from the identity's connection set and cleans
// the set up when it empties. Caller holds the lock.
func (r *Registry) dropConnection(identity domain.Identity, conn domain.ConnID) {
	if set, ok := r.connections[identity]; ok {
		delete(set, conn)
		if len(set) == 0 {
			delete(r.connections, identity)
		}
	}
}

// IdentityOf resolves a connection to its logged-in identity.
func (r *Registry) IdentityOf(conn domain.ConnID) (domain.Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	identity, ok := r.identities[conn]
	return identity, ok
}

// OnlineIdentities returns the deduplicated presence snapshot, sorted for
// stable broadcasts. An identity with several live connections appears once.
func (r *Registry) OnlineIdentities() []domain.Identity {
	r.mu.RLock()
	identities := make([]domain.Identity, 0, len(r.connections))
	for identity := range r.connections {
		identities = append(identities, identity)
	}
	r.mu.RUnlock()

	sort.Slice(identities, func(i, j int) bool { return identities[i] < identities[j] })
	return identities
}

// ConnectionsFor lists every live connection of one logical user.
func (r *Registry) ConnectionsFor(identity domain.Identity) []domain.ConnID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set, ok := r.connections[identity]
	if !ok {
		return nil
	}
	conns := make([]domain.ConnID, 0, len(set))
	for conn := range set {
		conns = append(conns, conn)
	}
	return conns
}

// JoinRoom subscribes a connection to a room. Returns false for connections
// that were never attached, so a join cannot create ghost members.
func (r *Registry) JoinRoom(conn domain.ConnID, room domain.RoomKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sinks[conn]; !ok {
		return false
	}
	if _, ok := r.roomMembers[room]; !ok {
		r.roomMembers[room] = make(connSet)
	}
	r.roomMembers[room][conn] = struct{}{}
	if _, ok := r.connRooms[conn]; !ok {
		r.connRooms[conn] = make(map[domain.RoomKey]struct{})
	}
	r.connRooms[conn][room] = struct{}{}
	return true
}

// SinkOf returns the delivery sink of one connection.
func (r *Registry) SinkOf(conn domain.ConnID) (contract.EventSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sink, ok := r.sinks[conn]
	return sink, ok
}

// SinksForRoom returns the sinks of every room member except the listed
// connections (typically the sender).
func (r *Registry) SinksForRoom(room domain.RoomKey, except ...domain.ConnID) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.roomMembers[room]
	if !ok {
		return nil
	}
	var sinks []contract.EventSink
	for conn := range members {
		if lo.Contains(except, conn) {
			continue
		}
		if sink, exists := r.sinks[conn]; exists {
			sinks = append(sinks, sink)
		}
	}
	return sinks
}

// AllSinks returns every attached connection's sink, for whole-server
// broadcasts such as the presence snapshot.
func (r *Registry) AllSinks() []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sinks := make([]contract.EventSink, 0, len(r.sinks))
	for _, sink := range r.sinks {
		sinks = append(sinks, sink)
	}
	return sinks
}
