package hub

import (
	"bytes"
	"log/slog"
	"sort"
	"sync"

	"github.com/intodakt/computer-networks-project/domain"
)

type room struct {
	members map[string]domain.Member
	history [][]byte
}

// Hub is the room registry. A single lock guards the room map together with
// every room's members and history. Connection sends only enqueue, so they
// may happen under the lock; socket writes never do.
type Hub struct {
	rooms  map[string]*room
	mu     sync.RWMutex
	logger *slog.Logger
}

func New(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		rooms:  make(map[string]*room),
		logger: logger,
	}
}

// Join adds conn to the room, creating the room if needed, and queues the
// room's history on conn before releasing the lock. Every later fanout goes
// through the same queue, so the joiner sees the replay first and no record
// twice.
func (h *Hub) Join(conn domain.Connection, username, code string) domain.JoinResult {
	h.mu.Lock()
	r, exists := h.rooms[code]
	if !exists {
		r = &room{members: make(map[string]domain.Member)}
		h.rooms[code] = r
	}
	r.members[conn.ID()] = domain.Member{Username: username, Conn: conn}
	count := len(r.members)

	var replayErr error
	if len(r.history) > 0 {
		replayErr = conn.Send(bytes.Join(r.history, nil))
	}
	replayed := len(r.history)
	h.mu.Unlock()

	// A joiner without its history would draw on a diverged canvas. Closing
	// ends its session, which leaves the room.
	if replayErr != nil {
		h.logger.Warn("history replay failed, closing", "room", code, "clientId", conn.ID(), "error", replayErr)
		conn.Close()
	}
	h.logger.Info("client joined", "room", code, "user", username, "clientId", conn.ID(),
		"clients", count, "replayed", replayed)

	return domain.JoinResult{Created: !exists, Members: count}
}

func (h *Hub) Leave(conn domain.Connection, code string) domain.LeaveResult {
	h.mu.Lock()
	r, exists := h.rooms[code]
	if !exists {
		h.mu.Unlock()
		return domain.LeaveResult{}
	}
	m, isMember := r.members[conn.ID()]
	if !isMember {
		h.mu.Unlock()
		return domain.LeaveResult{}
	}
	delete(r.members, conn.ID())
	count := len(r.members)
	if count == 0 {
		delete(h.rooms, code)
	}
	h.mu.Unlock()

	h.logger.Info("client left", "room", code, "user", m.Username, "clientId", conn.ID(), "clients", count)
	if count == 0 {
		h.logger.Info("room removed", "room", code)
	}

	return domain.LeaveResult{Removed: true, RoomDeleted: count == 0}
}

// Members returns the room's members ordered by username, then id.
func (h *Hub) Members(code string) []domain.Member {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.snapshot(code)
}

// Append adds record to the room's history and queues it on every member
// but exclude before releasing the lock. Members therefore receive drawing
// and clear records in exactly the order history stores them.
func (h *Hub) Append(code string, record []byte, exclude string) {
	h.mu.Lock()
	r, exists := h.rooms[code]
	if !exists {
		h.mu.Unlock()
		return
	}
	r.history = append(r.history, record)
	dead := h.deliver(code, r.list(), record, exclude)
	h.mu.Unlock()

	h.evict(code, dead)
}

// Clear empties the room's history and relays record like Append. The room
// itself stays.
func (h *Hub) Clear(code string, record []byte, exclude string) {
	h.mu.Lock()
	r, exists := h.rooms[code]
	if !exists {
		h.mu.Unlock()
		return
	}
	r.history = nil
	dead := h.deliver(code, r.list(), record, exclude)
	h.mu.Unlock()

	h.evict(code, dead)
	h.logger.Debug("history cleared", "room", code)
}

func (h *Hub) History(code string) [][]byte {
	h.mu.RLock()
	defer h.mu.RUnlock()

	r, exists := h.rooms[code]
	if !exists {
		return nil
	}
	out := make([][]byte, len(r.history))
	copy(out, r.history)
	return out
}

func (h *Hub) Stats() (rooms, clients int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rooms = len(h.rooms)
	for _, r := range h.rooms {
		clients += len(r.members)
	}
	return rooms, clients
}

func (h *Hub) Rooms() []domain.RoomInfo {
	h.mu.RLock()
	infos := make([]domain.RoomInfo, 0, len(h.rooms))
	for code, r := range h.rooms {
		infos = append(infos, domain.RoomInfo{
			Code:    code,
			Members: len(r.members),
			History: len(r.history),
		})
	}
	h.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].Code < infos[j].Code })
	return infos
}

// list must be called with h.mu held.
func (r *room) list() []domain.Member {
	members := make([]domain.Member, 0, len(r.members))
	for _, m := range r.members {
		members = append(members, m)
	}
	return members
}

// snapshot must be called with h.mu held.
func (h *Hub) snapshot(code string) []domain.Member {
	r, exists := h.rooms[code]
	if !exists {
		return nil
	}

	ids := make([]string, 0, len(r.members))
	for id := range r.members {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := r.members[ids[i]], r.members[ids[j]]
		if a.Username != b.Username {
			return a.Username < b.Username
		}
		return ids[i] < ids[j]
	})

	members := make([]domain.Member, len(ids))
	for i, id := range ids {
		members[i] = r.members[id]
	}
	return members
}
