package peerhistory

import (
	"bytes"
	"encoding/gob"
	"time"
)

// PeerRecord is everything remembered about one peer address.
type PeerRecord struct {
	Address           string
	NickName          string
	PreviousNickNames []string
	FirstSeen         time.Time
	LastSeen          time.Time
	Online            bool
	// SessionID identifies the local run that last saw the peer.
	SessionID string
}

// Serializer предоставляет интерфейс для сериализации/десериализации записей
type Serializer interface {
	Serialize(v interface{}) ([]byte, error)
	Deserialize(data []byte, v interface{}) error
}

// GobSerializer реализует Serializer используя encoding/gob
type GobSerializer struct{}

func (s *GobSerializer) Serialize(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *GobSerializer) Deserialize(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}
