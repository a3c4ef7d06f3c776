package types

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// HashSize is the length in bytes of every digest used by the rollup.
const HashSize = 32

// Hash is a 32-byte blake2b digest.
type Hash [HashSize]byte

// Blake2b returns the blake2b-256 digest of the concatenated chunks.
func Blake2b(chunks ...[]byte) Hash {
	h, _ := blake2b.New256(nil)
	for _, c := range chunks {
		h.Write(c)
	}
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// IsZero reports whether every byte of the hash is zero.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// Hex returns the 0x-prefixed lowercase hex form of the hash.
func (h Hash) Hex() string {
	return "0x" + hex.EncodeToString(h[:])
}

func (h Hash) String() string {
	return h.Hex()
}

// HashFromHex parses a 0x-prefixed (or bare) 64-character hex string.
func HashFromHex(s string) (Hash, error) {
	var h Hash
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X"))
	if err != nil {
		return h, err
	}
	if len(raw) != HashSize {
		return h, fmt.Errorf("hash must be %d bytes, got %d", HashSize, len(raw))
	}
	copy(h[:], raw)
	return h, nil
}

// NumberHash points at a block by number and hash. It is used for the valid
// tip, the last submitted and the last confirmed block.
type NumberHash struct {
	Number uint64
	Hash   Hash
}

func (nh NumberHash) String() string {
	return fmt.Sprintf("%d:%s", nh.Number, nh.Hash.Hex())
}

// Encode writes the hash followed by the number.
func (nh *NumberHash) Encode(w *Writer) {
	w.Hash(nh.Hash)
	w.Uint64(nh.Number)
}

// Decode reads a NumberHash written by Encode.
func (nh *NumberHash) Decode(r *Reader) {
	nh.Hash = r.Hash()
	nh.Number = r.Uint64()
}
