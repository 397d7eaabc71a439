// Package protocol defines the control messages exchanged over the
// multicast group, their text encoding and their dispatch to listeners.
//
// A message is encoded as its numeric tag followed by its fields, all
// separated by Delimiter:
//
//	0,alice,192.168.1.10
//
// Fields must not contain Delimiter; no escaping is defined.
package protocol

// Delimiter separates the tag and the fields of an encoded message.
const Delimiter = ","

// Tag identifies a message variant on the wire.
type Tag uint8

const (
	TagIDShare Tag = iota
	TagIDRequest
	TagSendRequest
	TagSendRequestAccepted
	TagSendRequestRejected

	// TagUnknown is never sent; it classifies input that did not decode.
	TagUnknown Tag = 0xFF
)

func (t Tag) String() string {
	switch t {
	case TagIDShare:
		return "ID_SHARE"
	case TagIDRequest:
		return "ID_REQUEST"
	case TagSendRequest:
		return "SEND_REQUEST"
	case TagSendRequestAccepted:
		return "SEND_REQUEST_ACCEPTED"
	case TagSendRequestRejected:
		return "SEND_REQUEST_REJECTED"
	default:
		return "UNKNOWN"
	}
}

// Message is one of IDShare, IDRequest, SendRequest, SendRequestAccepted,
// SendRequestRejected or Unknown.
type Message interface {
	Tag() Tag
	Fields() []string
}

// IDShare announces a client's nickname and address.
type IDShare struct {
	NickName  string
	IPAddress string
}

// IDRequest asks every member of the group to answer with IDShare.
type IDRequest struct{}

// SendRequest asks a peer to accept a file transfer from IPAddress.
type SendRequest struct {
	IPAddress string
}

// SendRequestAccepted answers SendRequest; the sender listens on Port.
type SendRequestAccepted struct {
	IPAddress string
	Port      int
}

// SendRequestRejected answers SendRequest negatively.
type SendRequestRejected struct {
	IPAddress string
}

// Unknown holds input that is not a recognized message.
type Unknown struct {
	Raw string
}

// MessageListener receives decoded messages. Exactly one method is called
// per dispatched message.
type MessageListener interface {
	OnIDShare(nickName, ipAddress string)
	OnIDRequest()
	OnSendRequest(ipAddress string)
	OnSendRequestAccepted(ipAddress string, port int)
	OnSendRequestRejected(ipAddress string)
	OnUnknownMessage(raw string)
}
