package peerhistory

// PeerStorage определяет интерфейс для хранения истории пиров
type PeerStorage interface {
	Get(address string) (*PeerRecord, error)
	List() ([]*PeerRecord, error)
	Delete(address string) error
	Close() error
}

var _ PeerStorage = (*Store)(nil)
