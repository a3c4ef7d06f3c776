package store

import (
	"sync"
)

// InmemStore implements the Store interface with an in-memory map. It keeps
// everything for the lifetime of the process, which makes it suitable for
// tests and short-lived read-only followers.
type InmemStore struct {
	readView

	mu   sync.RWMutex
	data map[string][]byte
}

var _ Store = (*InmemStore)(nil)

// NewInmemStore creates an empty InmemStore.
func NewInmemStore() *InmemStore {
	s := &InmemStore{
		data: make(map[string][]byte),
	}
	s.readView = readView{readTxn: s.newTxn}
	return s
}

// Begin implements the Store interface.
func (s *InmemStore) Begin() (Tx, error) {
	return &storeTx{kv: s.newTxn()}, nil
}

// Close implements the Store interface.
func (s *InmemStore) Close() error {
	return nil
}

// StorePath implements the Store interface.
func (s *InmemStore) StorePath() string {
	return ""
}

func (s *InmemStore) newTxn() kvTxn {
	return &inmemTxn{
		store:   s,
		writes:  make(map[string][]byte),
		deletes: make(map[string]struct{}),
	}
}

// inmemTxn buffers writes and deletes until commit, then applies them under
// the store lock so that readers see all or none of them.
type inmemTxn struct {
	store   *InmemStore
	writes  map[string][]byte
	deletes map[string]struct{}
}

func (t *inmemTxn) get(key []byte) ([]byte, error) {
	k := string(key)
	if _, ok := t.deletes[k]; ok {
		return nil, errKVNotFound
	}
	if v, ok := t.writes[k]; ok {
		return v, nil
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	v, ok := t.store.data[k]
	if !ok {
		return nil, errKVNotFound
	}
	return v, nil
}

func (t *inmemTxn) set(key, val []byte) error {
	k := string(key)
	delete(t.deletes, k)
	t.writes[k] = append([]byte(nil), val...)
	return nil
}

func (t *inmemTxn) delete(key []byte) error {
	k := string(key)
	delete(t.writes, k)
	t.deletes[k] = struct{}{}
	return nil
}

func (t *inmemTxn) commit() error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for k := range t.deletes {
		delete(t.store.data, k)
	}
	for k, v := range t.writes {
		t.store.data[k] = v
	}
	return nil
}

func (t *inmemTxn) discard() {
	t.writes = nil
	t.deletes = nil
}
