package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

type decoder struct {
	arity  int
	decode func(fields []string) (Message, bool)
}

// decoders maps every wire tag to its arity and constructor.
var decoders = map[Tag]decoder{
	TagIDShare: {2, func(f []string) (Message, bool) {
		return NewIDShare(f[0], f[1]), true
	}},
	TagIDRequest: {0, func([]string) (Message, bool) {
		return NewIDRequest(), true
	}},
	TagSendRequest: {1, func(f []string) (Message, bool) {
		return NewSendRequest(f[0]), true
	}},
	TagSendRequestAccepted: {2, func(f []string) (Message, bool) {
		port, err := strconv.ParseUint(f[1], 10, 16)
		if err != nil {
			return nil, false
		}
		return NewSendRequestAccepted(f[0], int(port)), true
	}},
	TagSendRequestRejected: {1, func(f []string) (Message, bool) {
		return NewSendRequestRejected(f[0]), true
	}},
}

// Encode renders m as tag + Delimiter + fields joined by Delimiter. A message
// without fields encodes to its tag alone.
func Encode(m Message) (string, error) {
	if u, ok := m.(Unknown); ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownMessage, u.Raw)
	}

	fields := m.Fields()
	for _, f := range fields {
		if strings.Contains(f, Delimiter) {
			return "", fmt.Errorf("%w: %s field %q", ErrInvalidField, m.Tag(), f)
		}
	}

	tag := strconv.Itoa(int(m.Tag()))
	if len(fields) == 0 {
		return tag, nil
	}
	return tag + Delimiter + strings.Join(fields, Delimiter), nil
}

// Decode parses text into a message. It never fails: an unknown or
// malformed tag, or a wrong number of fields, yields Unknown holding text.
func Decode(text string) Message {
	head, rest, hasFields := strings.Cut(text, Delimiter)

	tag, err := strconv.ParseUint(head, 10, 8)
	if err != nil {
		return Unknown{Raw: text}
	}

	dec, ok := decoders[Tag(tag)]
	if !ok {
		return Unknown{Raw: text}
	}

	var fields []string
	if hasFields {
		fields = strings.Split(rest, Delimiter)
	}
	if len(fields) != dec.arity {
		return Unknown{Raw: text}
	}

	m, ok := dec.decode(fields)
	if !ok {
		return Unknown{Raw: text}
	}
	return m
}

// Dispatch decodes text and hands the result to every listener.
func Dispatch(text string, listeners []MessageListener) {
	DispatchMessage(Decode(text), listeners)
}

// DispatchMessage calls the callback matching m on every listener.
func DispatchMessage(m Message, listeners []MessageListener) {
	for _, l := range listeners {
		switch v := m.(type) {
		case IDShare:
			l.OnIDShare(v.NickName, v.IPAddress)
		case IDRequest:
			l.OnIDRequest()
		case SendRequest:
			l.OnSendRequest(v.IPAddress)
		case SendRequestAccepted:
			l.OnSendRequestAccepted(v.IPAddress, v.Port)
		case SendRequestRejected:
			l.OnSendRequestRejected(v.IPAddress)
		case Unknown:
			l.OnUnknownMessage(v.Raw)
		default:
			l.OnUnknownMessage(fmt.Sprintf("%v", m))
		}
	}
}
