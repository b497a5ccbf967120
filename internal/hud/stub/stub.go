// Package stub provides a scripted in-memory FrameSource/Reader pair for
// tests and offline replay.
package stub

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/AtsuiOcha/overheat-punisher/internal/domain"
	"github.com/AtsuiOcha/overheat-punisher/internal/hud"
)

// Reading is one scripted sensor observation.
type Reading struct {
	Snapshot domain.RoundSnapshot
	Phase    domain.RoundPhase
}

// Feed serves a fixed sequence of readings in order. It implements both
// hud.FrameSource and hud.Reader; frame payloads index into the script.
// After the script is exhausted PollFrame returns io.EOF.
type Feed struct {
	mu       sync.Mutex
	readings []Reading
	next     int
}

// NewFeed creates a Feed over the given readings.
func NewFeed(readings []Reading) *Feed {
	return &Feed{readings: readings}
}

// PollFrame returns the next scripted frame, or io.EOF past the end.
func (f *Feed) PollFrame(ctx context.Context) (*hud.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.next >= len(f.readings) {
		return nil, io.EOF
	}

	payload := make([]byte, 8)
	binary.BigEndian.PutUint64(payload, uint64(f.next))
	frame := &hud.Frame{
		CapturedAt: f.readings[f.next].Snapshot.Timestamp,
		Payload:    payload,
	}
	f.next++
	return frame, nil
}

// ReadSnapshot returns a copy of the scripted snapshot for the frame.
func (f *Feed) ReadSnapshot(frame *hud.Frame) (*domain.RoundSnapshot, error) {
	reading, err := f.lookup(frame)
	if err != nil {
		return nil, err
	}
	snapshot := reading.Snapshot
	return &snapshot, nil
}

// ReadPhase returns the scripted round phase for the frame.
func (f *Feed) ReadPhase(frame *hud.Frame) (domain.RoundPhase, error) {
	reading, err := f.lookup(frame)
	if err != nil {
		return "", err
	}
	return reading.Phase, nil
}

func (f *Feed) lookup(frame *hud.Frame) (*Reading, error) {
	if frame == nil || len(frame.Payload) != 8 {
		return nil, fmt.Errorf("%w: not a stub frame", hud.ErrMalformedReading)
	}

	idx := int(binary.BigEndian.Uint64(frame.Payload))

	f.mu.Lock()
	defer f.mu.Unlock()

	if idx < 0 || idx >= len(f.readings) {
		return nil, fmt.Errorf("%w: stub frame index %d out of range", hud.ErrMalformedReading, idx)
	}
	return &f.readings[idx], nil
}
