package store

import (
	"bytes"
	"fmt"

	"github.com/mosaicnetworks/rollsync/src/types"
	"github.com/ugorji/go/codec"
)

const (
	numberPrefix      = "number"
	blockPrefix       = "block"
	globalStatePrefix = "gstate"
	depositsPrefix    = "deposits"
	withdrawalsPrefix = "withdrawals"
	submitTxPrefix    = "submittx"
	custodiansPrefix  = "custodians"
	scriptPrefix      = "script"
)

var (
	tipKey           = []byte("meta_tip")
	lastSubmittedKey = []byte("meta_last_submitted")
	lastConfirmedKey = []byte("meta_last_confirmed")
)

func numberKey(number uint64) []byte {
	return []byte(fmt.Sprintf("%s_%020d", numberPrefix, number))
}

func blockKey(hash types.Hash) []byte {
	return []byte(fmt.Sprintf("%s_%x", blockPrefix, hash[:]))
}

func globalStateKey(hash types.Hash) []byte {
	return []byte(fmt.Sprintf("%s_%x", globalStatePrefix, hash[:]))
}

func depositsKey(number uint64) []byte {
	return []byte(fmt.Sprintf("%s_%020d", depositsPrefix, number))
}

func withdrawalsKey(number uint64) []byte {
	return []byte(fmt.Sprintf("%s_%020d", withdrawalsPrefix, number))
}

func submitTxKey(number uint64) []byte {
	return []byte(fmt.Sprintf("%s_%020d", submitTxPrefix, number))
}

func custodiansKey(number uint64) []byte {
	return []byte(fmt.Sprintf("%s_%020d", custodiansPrefix, number))
}

func scriptKey(hash types.Hash) []byte {
	return []byte(fmt.Sprintf("%s_%x", scriptPrefix, hash[:]))
}

func newHandle() *codec.MsgpackHandle {
	mh := new(codec.MsgpackHandle)
	mh.Canonical = true
	mh.WriteExt = true
	return mh
}

// marshal encodes a stored record with canonical msgpack.
func marshal(v interface{}) ([]byte, error) {
	b := new(bytes.Buffer)
	enc := codec.NewEncoder(b, newHandle())
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func unmarshal(data []byte, v interface{}) error {
	dec := codec.NewDecoderBytes(data, newHandle())
	return dec.Decode(v)
}
