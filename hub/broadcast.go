package hub

import (
	"github.com/intodakt/computer-networks-project/domain"
	"github.com/intodakt/computer-networks-project/protocol"
)

// Fanout writes data to every member except the one whose id equals
// exclude. Members whose Send fails are closed and evicted, followed by a
// single member list update.
func (h *Hub) Fanout(code string, members []domain.Member, data []byte, exclude string) {
	h.evict(code, h.deliver(code, members, data, exclude))
}

// deliver returns the members whose Send failed.
func (h *Hub) deliver(code string, members []domain.Member, data []byte, exclude string) []domain.Member {
	var dead []domain.Member
	for _, m := range members {
		if m.Conn.ID() == exclude {
			continue
		}
		if err := m.Conn.Send(data); err != nil {
			h.logger.Warn("send failed, evicting", "room", code, "user", m.Username,
				"clientId", m.Conn.ID(), "error", err)
			dead = append(dead, m)
		}
	}
	return dead
}

// evict must be called without h.mu held.
func (h *Hub) evict(code string, dead []domain.Member) {
	if len(dead) == 0 {
		return
	}

	evicted := 0
	roomGone := false
	for _, m := range dead {
		m.Conn.Close()
		res := h.Leave(m.Conn, code)
		if res.Removed {
			evicted++
		}
		roomGone = roomGone || res.RoomDeleted
	}
	if evicted > 0 && !roomGone {
		h.Announce(code)
	}
}

func (h *Hub) Broadcast(code string, data []byte, exclude string) {
	h.Fanout(code, h.Members(code), data, exclude)
}

// Announce pushes the current member list to every member of the room. A
// member that cannot take it is closed; its own session reports the leave.
func (h *Hub) Announce(code string) {
	members := h.Members(code)
	if len(members) == 0 {
		return
	}

	names := make([]string, len(members))
	for i, m := range members {
		names[i] = m.Username
	}
	data := protocol.EncodeUserList(names)

	for _, m := range members {
		if err := m.Conn.Send(data); err != nil {
			h.logger.Warn("user list send failed", "room", code, "clientId", m.Conn.ID(), "error", err)
			m.Conn.Close()
		}
	}
}
