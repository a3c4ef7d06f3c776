package net

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// MaxFrameSize bounds a single frame.
	MaxFrameSize = 16 << 20

	bufSize = 64 << 10
)

// ErrFrameTooLarge is returned for frames above MaxFrameSize.
var ErrFrameTooLarge = errors.New("frame too large")

// connStream is a Stream over a net.Conn whose protocol header has already
// been exchanged.
type connStream struct {
	id      string
	conn    net.Conn
	r       *bufio.Reader
	timeout time.Duration

	sendLock sync.Mutex
	w        *bufio.Writer

	closeOnce sync.Once
	closeErr  error
}

func newConnStream(conn net.Conn, r *bufio.Reader, timeout time.Duration) *connStream {
	if r == nil {
		r = bufio.NewReaderSize(conn, bufSize)
	}
	return &connStream{
		id:      uuid.New().String(),
		conn:    conn,
		r:       r,
		w:       bufio.NewWriterSize(conn, bufSize),
		timeout: timeout,
	}
}

// NewConnStream wraps a connection whose protocol header has already been
// exchanged. A zero timeout leaves Send unbounded.
func NewConnStream(conn net.Conn, timeout time.Duration) Stream {
	return newConnStream(conn, nil, timeout)
}

func (s *connStream) ID() string {
	return s.id
}

func (s *connStream) RemoteAddr() string {
	return s.conn.RemoteAddr().String()
}

// Recv implements Stream. There is no read timeout: a streaming peer may stay
// quiet for as long as no blocks are produced.
func (s *connStream) Recv(ctx context.Context) ([]byte, error) {
	s.conn.SetReadDeadline(time.Time{})
	stop := s.watch(ctx, s.conn.SetReadDeadline)
	defer stop()

	var prefix [4]byte
	if _, err := io.ReadFull(s.r, prefix[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, s.wrap(ctx, "recv", err)
	}

	size := binary.LittleEndian.Uint32(prefix[:])
	if size > MaxFrameSize {
		return nil, NewStreamError("recv", fmt.Errorf("%w: %d", ErrFrameTooLarge, size))
	}
	frame := make([]byte, size)
	if _, err := io.ReadFull(s.r, frame); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, s.wrap(ctx, "recv", err)
	}
	return frame, nil
}

// Send implements Stream.
func (s *connStream) Send(ctx context.Context, frame []byte) error {
	if len(frame) > MaxFrameSize {
		return NewStreamError("send", fmt.Errorf("%w: %d", ErrFrameTooLarge, len(frame)))
	}

	s.sendLock.Lock()
	defer s.sendLock.Unlock()

	deadline := time.Time{}
	if s.timeout > 0 {
		deadline = time.Now().Add(s.timeout)
	}
	s.conn.SetWriteDeadline(deadline)
	stop := s.watch(ctx, s.conn.SetWriteDeadline)
	defer stop()

	var prefix [4]byte
	binary.LittleEndian.PutUint32(prefix[:], uint32(len(frame)))
	if _, err := s.w.Write(prefix[:]); err != nil {
		return s.wrap(ctx, "send", err)
	}
	if _, err := s.w.Write(frame); err != nil {
		return s.wrap(ctx, "send", err)
	}
	if err := s.w.Flush(); err != nil {
		return s.wrap(ctx, "send", err)
	}
	return nil
}

func (s *connStream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}

// watch expires the deadline set by setDeadline when ctx is done, unblocking
// pending I/O. The returned func stops watching.
func (s *connStream) watch(ctx context.Context, setDeadline func(time.Time) error) func() {
	if ctx.Done() == nil {
		return func() {}
	}
	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		select {
		case <-ctx.Done():
			setDeadline(time.Now())
		case <-done:
		}
	}()
	return func() {
		close(done)
		<-exited
	}
}

func (s *connStream) wrap(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = fmt.Errorf("%v: %w", err, ctxErr)
	}
	return NewStreamError(op, err)
}
