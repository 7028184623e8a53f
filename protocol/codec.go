package protocol

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	Join     Command = "JOIN"
	Draw     Command = "DRAW"
	Line     Command = "LINE"
	Rect     Command = "RECT"
	Circle   Command = "CIRCLE"
	Tri      Command = "TRI"
	Clear    Command = "CLEAR"
	Chat     Command = "CHAT"
	UserList Command = "USER_LIST"
	Unknown  Command = ""
)

var ErrBadHandshake = errors.New("expected JOIN,<user>,<room>")

// Field counts for commands whose arity is fixed.
var arity = map[Command]int{
	Draw:   6,
	Line:   6,
	Rect:   6,
	Circle: 6,
	Tri:    8,
	Clear:  0,
}

type Message struct {
	Command Command
	Fields  []string
	// Raw is the record as received, without its line feed.
	Raw []byte
}

// Parse classifies a record by the text before its first comma. It never
// fails; unrecognized commands come back as Unknown.
func Parse(record []byte) Message {
	text := string(record)
	name, rest, hasFields := strings.Cut(text, ",")

	msg := Message{Command: lookup(name), Raw: record}
	if hasFields {
		msg.Fields = strings.Split(rest, ",")
	}
	return msg
}

func lookup(name string) Command {
	switch c := Command(name); c {
	case Join, Draw, Line, Rect, Circle, Tri, Clear, Chat, UserList:
		return c
	}
	return Unknown
}

func (m Message) IsDrawing() bool {
	switch m.Command {
	case Draw, Line, Rect, Circle, Tri:
		return true
	}
	return false
}

// Validate checks the field count. Field contents are relayed untouched.
func (m Message) Validate() error {
	if n, ok := arity[m.Command]; ok {
		if len(m.Fields) != n {
			return fmt.Errorf("%s: want %d fields, got %d", m.Command, n, len(m.Fields))
		}
		return nil
	}
	if m.Command == Chat && len(m.Fields) == 0 {
		return fmt.Errorf("%s: missing text", m.Command)
	}
	return nil
}

// ChatText rebuilds the chat text, which may itself contain commas.
func (m Message) ChatText() string {
	return strings.Join(m.Fields, ",")
}

// ParseJoin validates a handshake record and returns the trimmed username
// and room code.
func ParseJoin(record []byte) (user, room string, err error) {
	msg := Parse(record)
	if msg.Command != Join || len(msg.Fields) < 2 {
		return "", "", ErrBadHandshake
	}

	user = strings.TrimSpace(msg.Fields[0])
	room = strings.TrimSpace(strings.Join(msg.Fields[1:], ","))
	if user == "" || room == "" {
		return "", "", ErrBadHandshake
	}
	return user, room, nil
}

// Frame terminates a record for the wire.
func Frame(record []byte) []byte {
	out := make([]byte, 0, len(record)+1)
	out = append(out, record...)
	return append(out, '\n')
}

func EncodeChat(sender, text string) []byte {
	return []byte(string(Chat) + "," + sender + "," + text + "\n")
}

func EncodeUserList(names []string) []byte {
	var b strings.Builder
	b.WriteString(string(UserList))
	for _, n := range names {
		b.WriteByte(',')
		b.WriteString(n)
	}
	b.WriteByte('\n')
	return []byte(b.String())
}
