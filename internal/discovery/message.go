package discovery

import (
	"fmt"
	"strings"
)

// PeerDelimiter separates the parts of a peer message.
const PeerDelimiter = ","

type MessageType string

const (
	MessagePing       MessageType = "ping"
	MessageDisconnect MessageType = "dc"
)

// PeerMessage is the liveness sub-protocol: type, sender address, nickname.
type PeerMessage struct {
	Type      MessageType
	IPAddress string
	NickName  string
}

func NewPing(ipAddress, nickName string) PeerMessage {
	return PeerMessage{Type: MessagePing, IPAddress: ipAddress, NickName: nickName}
}

func NewDisconnect(ipAddress, nickName string) PeerMessage {
	return PeerMessage{Type: MessageDisconnect, IPAddress: ipAddress, NickName: nickName}
}

// FormatPeerMessage renders m as type,ip,nick.
func FormatPeerMessage(m PeerMessage) string {
	return string(m.Type) + PeerDelimiter + m.IPAddress + PeerDelimiter + m.NickName
}

// ParsePeerMessage is strict: anything other than exactly three parts with
// a known type is an error.
func ParsePeerMessage(text string) (PeerMessage, error) {
	const op = "discovery.ParsePeerMessage"

	parts := strings.Split(text, PeerDelimiter)
	if len(parts) != 3 {
		return PeerMessage{}, fmt.Errorf("%s: %w: %d parts in %q", op, ErrMalformedPeerMessage, len(parts), text)
	}

	t := MessageType(parts[0])
	switch t {
	case MessagePing, MessageDisconnect:
	default:
		return PeerMessage{}, fmt.Errorf("%s: %w: %q", op, ErrUnknownPeerMessageType, parts[0])
	}

	return PeerMessage{Type: t, IPAddress: parts[1], NickName: parts[2]}, nil
}
