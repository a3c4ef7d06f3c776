package store

import (
	"errors"
	"os"

	"github.com/dgraph-io/badger"
	"github.com/sirupsen/logrus"
)

// BadgerStore implements the Store interface on a Badger database. Each Tx is
// a Badger update transaction, so commits are atomic and durable.
type BadgerStore struct {
	readView

	db   *badger.DB
	path string
}

var _ Store = (*BadgerStore)(nil)

// NewBadgerStore opens (creating if necessary) a database under path.
func NewBadgerStore(path string, logger *logrus.Entry) (*BadgerStore, error) {
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions(path).
		WithSyncWrites(true).
		WithTruncate(true)
	if logger != nil {
		opts = opts.WithLogger(logger)
	}

	handle, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	s := &BadgerStore{
		db:   handle,
		path: path,
	}
	s.readView = readView{readTxn: func() kvTxn { return s.newTxn(false) }}
	return s, nil
}

// Begin implements the Store interface.
func (s *BadgerStore) Begin() (Tx, error) {
	return &storeTx{kv: s.newTxn(true)}, nil
}

// Close implements the Store interface.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// StorePath implements the Store interface.
func (s *BadgerStore) StorePath() string {
	return s.path
}

func (s *BadgerStore) newTxn(update bool) kvTxn {
	return &badgerTxn{txn: s.db.NewTransaction(update)}
}

type badgerTxn struct {
	txn *badger.Txn
}

func (t *badgerTxn) get(key []byte) ([]byte, error) {
	item, err := t.txn.Get(key)
	if err != nil {
		if isDBKeyNotFound(err) {
			return nil, errKVNotFound
		}
		return nil, err
	}
	return item.ValueCopy(nil)
}

func (t *badgerTxn) set(key, val []byte) error {
	return t.txn.Set(key, val)
}

func (t *badgerTxn) delete(key []byte) error {
	return t.txn.Delete(key)
}

func (t *badgerTxn) commit() error {
	return t.txn.Commit()
}

func (t *badgerTxn) discard() {
	t.txn.Discard()
}

func isDBKeyNotFound(err error) bool {
	return errors.Is(err, badger.ErrKeyNotFound)
}
