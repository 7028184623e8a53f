package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"

	"github.com/intodakt/computer-networks-project/activity"
	"github.com/intodakt/computer-networks-project/domain"
	"github.com/intodakt/computer-networks-project/protocol"
)

type State int

const (
	AwaitingHandshake State = iota
	Registered
	Streaming
	Closed
)

func (s State) String() string {
	switch s {
	case AwaitingHandshake:
		return "awaiting_handshake"
	case Registered:
		return "registered"
	case Streaming:
		return "streaming"
	case Closed:
		return "closed"
	}
	return "unknown"
}

// Conn is a participant connection: the relay writes through Send and the
// session reads the raw byte stream.
type Conn interface {
	domain.Connection
	io.Reader
}

// Handler runs one session per connection against a shared relay.
type Handler struct {
	relay     domain.Relay
	publisher activity.Publisher
	logger    *slog.Logger
	maxRecord int
}

func NewHandler(relay domain.Relay, publisher activity.Publisher, logger *slog.Logger, maxRecord int) *Handler {
	if publisher == nil {
		publisher = activity.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		relay:     relay,
		publisher: publisher,
		logger:    logger,
		maxRecord: maxRecord,
	}
}

type session struct {
	*Handler
	conn   Conn
	state  State
	user   string
	room   string
	logger *slog.Logger
}

// Serve drives conn through handshake, replay and streaming until the peer
// goes away or ctx is cancelled. The connection is always closed and, once
// registered, always removed from its room before Serve returns.
func (h *Handler) Serve(ctx context.Context, conn Conn) {
	s := &session{
		Handler: h,
		conn:    conn,
		state:   AwaitingHandshake,
		logger:  h.logger.With("clientId", conn.ID()),
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	records := protocol.NewFramer(conn, h.maxRecord)
	if err := s.handshake(ctx, records); err != nil {
		s.state = Closed
		s.logger.Debug("handshake failed", "error", err)
		return
	}
	defer s.close(ctx)

	s.state = Streaming
	s.stream(ctx, records)
}

func (s *session) handshake(ctx context.Context, records *protocol.Framer) error {
	record, err := records.Next()
	if err != nil {
		return err
	}
	user, room, err := protocol.ParseJoin(record)
	if err != nil {
		return err
	}

	s.user, s.room = user, room
	s.logger = s.logger.With("user", user, "room", room)

	// Join queues the history replay, so it reaches the joiner before the
	// member list below. Reordering them reopens the replay gap.
	res := s.relay.Join(s.conn, user, room)
	s.state = Registered
	if res.Created {
		s.publish(ctx, activity.RoomCreated)
	}
	s.publish(ctx, activity.Joined)

	s.relay.Announce(room)
	return nil
}

func (s *session) stream(ctx context.Context, records *protocol.Framer) {
	for {
		record, err := records.Next()
		if err != nil {
			if protocol.IsRecordError(err) {
				s.logger.Debug("dropping record", "error", err)
				continue
			}
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				s.logger.Debug("read error", "error", err)
			}
			return
		}
		s.dispatch(ctx, protocol.Parse(record))
	}
}

func (s *session) dispatch(ctx context.Context, msg protocol.Message) {
	if err := msg.Validate(); err != nil {
		s.logger.Debug("dropping malformed record", "error", err)
		return
	}

	switch {
	case msg.IsDrawing():
		s.relay.Append(s.room, protocol.Frame(msg.Raw), s.conn.ID())

	case msg.Command == protocol.Clear:
		s.relay.Clear(s.room, protocol.Frame(msg.Raw), s.conn.ID())
		s.publish(ctx, activity.Cleared)

	case msg.Command == protocol.Chat:
		s.relay.Broadcast(s.room, protocol.EncodeChat(s.user, msg.ChatText()), s.conn.ID())

	default:
		s.logger.Debug("ignoring command", "command", string(msg.Command))
	}
}

func (s *session) close(ctx context.Context) {
	prev := s.state
	s.state = Closed
	s.logger.Debug("session closed", "from", prev.String())

	res := s.relay.Leave(s.conn, s.room)
	if res.Removed && !res.RoomDeleted {
		s.relay.Announce(s.room)
	}

	s.publish(context.WithoutCancel(ctx), activity.Left)
	if res.RoomDeleted {
		s.publish(context.WithoutCancel(ctx), activity.RoomRemoved)
	}
}

func (s *session) publish(ctx context.Context, kind activity.Kind) {
	s.publisher.Publish(ctx, activity.Event{
		Kind:     kind,
		Room:     s.room,
		User:     s.user,
		ClientID: s.conn.ID(),
	})
}
