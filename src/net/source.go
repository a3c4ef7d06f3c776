package net

import (
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Policy decides what a full Source does with a newly offered stream.
type Policy int

const (
	// Reject closes the newcomer and keeps the queued stream.
	Reject Policy = iota
	// Replace closes the queued stream and keeps the newcomer.
	Replace
)

func (p Policy) String() string {
	switch p {
	case Reject:
		return "reject"
	case Replace:
		return "replace"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy parses "reject" or "replace".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(s) {
	case "", "reject":
		return Reject, nil
	case "replace":
		return Replace, nil
	default:
		return Reject, fmt.Errorf("unknown source policy %q", s)
	}
}

// Source is a single-slot hand-off of established streams from a Transport
// to the block-sync client. Only streams not yet taken occupy the slot.
type Source struct {
	sync.Mutex

	policy Policy
	slot   Stream
	closed bool
	logger *logrus.Entry
}

// NewSource returns an empty Source.
func NewSource(policy Policy, logger *logrus.Entry) *Source {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}
	return &Source{
		policy: policy,
		logger: logger.WithField("component", "source"),
	}
}

// Offer hands s to the Source and reports whether it was kept. A stream that
// is not kept has been closed.
func (src *Source) Offer(s Stream) bool {
	src.Lock()
	defer src.Unlock()

	if src.closed {
		s.Close()
		return false
	}

	if src.slot != nil {
		if src.policy == Reject {
			src.logger.WithFields(logrus.Fields{
				"stream": s.ID(),
				"from":   s.RemoteAddr(),
				"queued": src.slot.ID(),
			}).Debug("source full, rejecting stream")
			s.Close()
			return false
		}
		src.logger.WithFields(logrus.Fields{
			"stream":   s.ID(),
			"from":     s.RemoteAddr(),
			"replaced": src.slot.ID(),
		}).Debug("source full, replacing queued stream")
		src.slot.Close()
	}

	src.slot = s
	return true
}

// TryNext takes the queued stream, if any, without blocking.
func (src *Source) TryNext() (Stream, bool) {
	src.Lock()
	defer src.Unlock()

	s := src.slot
	src.slot = nil
	return s, s != nil
}

// Pending reports whether a stream is queued.
func (src *Source) Pending() bool {
	src.Lock()
	defer src.Unlock()

	return src.slot != nil
}

// Close closes any queued stream. Later offers are closed on arrival.
func (src *Source) Close() {
	src.Lock()
	defer src.Unlock()

	if src.slot != nil {
		src.slot.Close()
		src.slot = nil
	}
	src.closed = true
}
