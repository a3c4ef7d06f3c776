package common

import (
	"errors"
	"fmt"
)

// StoreErrType classifies store failures.
type StoreErrType uint32

const (
	// KeyNotFound is returned when a record is absent.
	KeyNotFound StoreErrType = iota
	// KeyAlreadyExists is returned when inserting over an existing record.
	KeyAlreadyExists
	// Empty is returned when the store has not been initialized with genesis.
	Empty
	// TxClosed is returned when a committed or discarded transaction is used.
	TxClosed
)

// StoreErr is a typed store error carrying the kind of record and its key.
type StoreErr struct {
	dataType string
	errType  StoreErrType
	key      string
}

// NewStoreErr ...
func NewStoreErr(dataType string, errType StoreErrType, key string) StoreErr {
	return StoreErr{
		dataType: dataType,
		errType:  errType,
		key:      key,
	}
}

// Error ...
func (e StoreErr) Error() string {
	m := ""
	switch e.errType {
	case KeyNotFound:
		m = "Not Found"
	case KeyAlreadyExists:
		m = "Key Already Exists"
	case Empty:
		m = "Empty"
	case TxClosed:
		m = "Transaction Closed"
	}

	return fmt.Sprintf("%s, %s, %s", e.dataType, e.key, m)
}

// IsStore checks that an error is, or wraps, a StoreErr whose code matches the
// provided StoreErrType.
func IsStore(err error, t StoreErrType) bool {
	var storeErr StoreErr
	return errors.As(err, &storeErr) && storeErr.errType == t
}
