// Package peerhistory persists the peers seen by discovery in a bbolt file.
package peerhistory

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"lanshare/internal/util/logger/handlers/slogdiscard"
	"lanshare/internal/util/logger/sl"
)

const (
	PeersBucket = "peers"
)

// Store keeps one PeerRecord per address. It implements
// discovery.PeerListener so it can be subscribed to a discovery client.
type Store struct {
	db         *bbolt.DB
	mu         sync.RWMutex
	serializer Serializer
	log        *slog.Logger
	sessionID  string
	now        func() time.Time
}

// Config содержит конфигурацию для Store
type Config struct {
	Path       string
	FileMode   os.FileMode
	Options    *bbolt.Options
	Serializer Serializer
	// SessionID tags records touched by this run. Empty generates one.
	SessionID string
}

// New opens the database and marks every stored peer offline, since no
// peer is known to be present before discovery hears from it.
func New(cfg Config, log *slog.Logger) (*Store, error) {
	const op = "peerhistory.New"

	if cfg.Serializer == nil {
		cfg.Serializer = &GobSerializer{}
	}
	if cfg.FileMode == 0 {
		cfg.FileMode = 0666
	}
	if cfg.SessionID == "" {
		cfg.SessionID = uuid.NewString()
	}
	if log == nil {
		log = slogdiscard.NewDiscardLogger()
	}

	db, err := bbolt.Open(cfg.Path, cfg.FileMode, cfg.Options)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s := &Store{
		db:         db,
		serializer: cfg.Serializer,
		log:        log.With(slog.String("session_id", cfg.SessionID)),
		sessionID:  cfg.SessionID,
		now:        time.Now,
	}

	// только чтение: схему и статусы не трогаем
	if cfg.Options != nil && cfg.Options.ReadOnly {
		return s, nil
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(PeersBucket)); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: failed to initialize database: %w", op, err)
	}

	if err := s.MarkAllOffline(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s, nil
}

func (s *Store) SessionID() string {
	return s.sessionID
}

func (s *Store) Close() error {
	if s.db == nil {
		return ErrNilDB
	}
	return s.db.Close()
}

// Get загружает запись пира по адресу
func (s *Store) Get(address string) (*PeerRecord, error) {
	var rec PeerRecord

	s.mu.RLock()
	defer s.mu.RUnlock()

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(PeersBucket))
		if bucket == nil {
			return ErrBucketNotFound
		}

		data := bucket.Get([]byte(address))
		if data == nil {
			return ErrPeerNotFound
		}

		return s.serializer.Deserialize(data, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns all records, most recently seen first.
func (s *Store) List() ([]*PeerRecord, error) {
	var records []*PeerRecord

	s.mu.RLock()
	defer s.mu.RUnlock()

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(PeersBucket))
		if bucket == nil {
			return nil
		}

		return bucket.ForEach(func(_, v []byte) error {
			var rec PeerRecord
			if err := s.serializer.Deserialize(v, &rec); err != nil {
				return err
			}
			records = append(records, &rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].LastSeen.After(records[j].LastSeen)
	})
	return records, nil
}

// Delete удаляет запись пира; отсутствие записи не ошибка
func (s *Store) Delete(address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(PeersBucket))
		if bucket == nil {
			return nil
		}
		return bucket.Delete([]byte(address))
	})
}

// MarkAllOffline clears the Online flag of every record.
func (s *Store) MarkAllOffline() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(PeersBucket))
		if bucket == nil {
			return ErrBucketNotFound
		}

		updates := make(map[string][]byte)
		err := bucket.ForEach(func(k, v []byte) error {
			var rec PeerRecord
			if err := s.serializer.Deserialize(v, &rec); err != nil {
				return err
			}
			if !rec.Online {
				return nil
			}
			rec.Online = false
			data, err := s.serializer.Serialize(&rec)
			if err != nil {
				return err
			}
			updates[string(k)] = data
			return nil
		})
		if err != nil {
			return err
		}

		// запись после обхода, курсор bbolt не переживает изменения
		for k, data := range updates {
			if err := bucket.Put([]byte(k), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// update applies fn to the record at address, creating it when absent.
func (s *Store) update(address string, fn func(rec *PeerRecord)) error {
	if address == "" {
		return ErrEmptyAddress
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(PeersBucket))
		if err != nil {
			return err
		}

		rec := PeerRecord{Address: address}
		if data := bucket.Get([]byte(address)); data != nil {
			if err := s.serializer.Deserialize(data, &rec); err != nil {
				return err
			}
		}

		now := s.now()
		if rec.FirstSeen.IsZero() {
			rec.FirstSeen = now
		}
		rec.LastSeen = now
		rec.SessionID = s.sessionID
		fn(&rec)

		data, err := s.serializer.Serialize(&rec)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(address), data)
	})
}

func (s *Store) OnPeerConnected(ipAddress, nickName string) {
	const op = "peerhistory.OnPeerConnected"

	err := s.update(ipAddress, func(rec *PeerRecord) {
		if rec.NickName != "" && rec.NickName != nickName {
			rec.PreviousNickNames = appendNickName(rec.PreviousNickNames, rec.NickName)
		}
		rec.NickName = nickName
		rec.Online = true
	})
	if err != nil {
		s.log.Error("failed to record peer", slog.String("op", op), slog.String("peer", ipAddress), sl.Err(err))
	}
}

func (s *Store) OnPeerNickNameChange(ipAddress, newNickName, oldNickName string) {
	const op = "peerhistory.OnPeerNickNameChange"

	err := s.update(ipAddress, func(rec *PeerRecord) {
		rec.PreviousNickNames = appendNickName(rec.PreviousNickNames, oldNickName)
		rec.NickName = newNickName
		rec.Online = true
	})
	if err != nil {
		s.log.Error("failed to record nickname change", slog.String("op", op), slog.String("peer", ipAddress), sl.Err(err))
	}
}

func (s *Store) OnPeerDisconnected(ipAddress, nickName string) {
	const op = "peerhistory.OnPeerDisconnected"

	err := s.update(ipAddress, func(rec *PeerRecord) {
		rec.NickName = nickName
		rec.Online = false
	})
	if err != nil {
		s.log.Error("failed to record disconnect", slog.String("op", op), slog.String("peer", ipAddress), sl.Err(err))
	}
}

// appendNickName adds name unless it is empty or already the latest entry.
func appendNickName(names []string, name string) []string {
	if name == "" || (len(names) > 0 && names[len(names)-1] == name) {
		return names
	}
	return append(names, name)
}
