package domain

// Connection is one participant's byte channel. Send enqueues data for
// delivery and must not block; an error means the peer is unreachable.
type Connection interface {
	ID() string
	Send(data []byte) error
	Close() error
}

type Member struct {
	Username string
	Conn     Connection
}

type RoomInfo struct {
	Code    string `json:"code"`
	Members int    `json:"members"`
	History int    `json:"history"`
}

type JoinResult struct {
	Created bool
	Members int
}

type LeaveResult struct {
	Removed     bool
	RoomDeleted bool
}

// Registry owns every room. Append and Clear change the history and relay
// record to every member but exclude in one critical section, so all members
// see drawing and clear records in history order.
type Registry interface {
	Join(conn Connection, username, room string) JoinResult
	Leave(conn Connection, room string) LeaveResult
	Members(room string) []Member
	Append(room string, record []byte, exclude string)
	Clear(room string, record []byte, exclude string)
	History(room string) [][]byte
	Stats() (rooms, clients int)
	Rooms() []RoomInfo
}

type Broadcaster interface {
	Fanout(room string, members []Member, data []byte, exclude string)
	Broadcast(room string, data []byte, exclude string)
	Announce(room string)
}

// Relay is the registry plus its broadcast side, which is what a session
// drives.
type Relay interface {
	Registry
	Broadcaster
}
