package net

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

const (
	// DefaultProtocolID is the protocol id of the block-sync sub-protocol.
	DefaultProtocolID uint32 = 0x0B
	// DefaultProtocolName is the protocol name of the block-sync sub-protocol.
	DefaultProtocolName = "/gw/block-sync/1"
)

// ErrProtocolMismatch is returned when the peer speaks another protocol.
var ErrProtocolMismatch = errors.New("protocol mismatch")

// ProtocolHeader opens every session.
type ProtocolHeader struct {
	ID   uint32
	Name string
}

// DefaultProtocolHeader returns the block-sync protocol header.
func DefaultProtocolHeader() ProtocolHeader {
	return ProtocolHeader{ID: DefaultProtocolID, Name: DefaultProtocolName}
}

func (h ProtocolHeader) String() string {
	return fmt.Sprintf("%s (0x%x)", h.Name, h.ID)
}

func (h ProtocolHeader) writeTo(w io.Writer) error {
	if len(h.Name) > math.MaxUint16 {
		return fmt.Errorf("protocol name too long: %d", len(h.Name))
	}
	buf := make([]byte, 6+len(h.Name))
	binary.LittleEndian.PutUint32(buf[0:4], h.ID)
	binary.LittleEndian.PutUint16(buf[4:6], uint16(len(h.Name)))
	copy(buf[6:], h.Name)
	_, err := w.Write(buf)
	return err
}

func readProtocolHeader(r io.Reader) (ProtocolHeader, error) {
	var fixed [6]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		return ProtocolHeader{}, err
	}
	name := make([]byte, binary.LittleEndian.Uint16(fixed[4:6]))
	if _, err := io.ReadFull(r, name); err != nil {
		return ProtocolHeader{}, err
	}
	return ProtocolHeader{
		ID:   binary.LittleEndian.Uint32(fixed[0:4]),
		Name: string(name),
	}, nil
}

// expect reads the peer's header and checks it against h.
func (h ProtocolHeader) expect(r io.Reader) error {
	got, err := readProtocolHeader(r)
	if err != nil {
		return err
	}
	if got != h {
		return fmt.Errorf("%w: want %s, got %s", ErrProtocolMismatch, h, got)
	}
	return nil
}
