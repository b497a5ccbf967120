// Package hud is the boundary with the external frame source and HUD
// reader. The core never touches pixels; a FrameSource hands out opaque
// frames and a paired Reader turns them into structured round state.
// Readings are best-effort and occasionally noisy; readers normalize or
// reject malformed data before anything reaches the core.
package hud

import (
	"context"
	"errors"

	"github.com/AtsuiOcha/overheat-punisher/internal/domain"
)

// ErrMalformedReading is returned by a Reader for a frame whose payload
// cannot be turned into a valid snapshot. The monitor loop skips such
// frames and keeps polling.
var ErrMalformedReading = errors.New("malformed sensor reading")

// Frame is one sensed capture at a point in time. Payload encoding is
// private to each FrameSource/Reader pair.
type Frame struct {
	// CapturedAt is the monotonic capture time in milliseconds.
	CapturedAt int64

	// Payload is the source-specific frame encoding.
	Payload []byte
}

// FrameSource produces one frame per poll.
type FrameSource interface {
	// PollFrame returns the most recent available frame, blocking only
	// while none has been sensed yet.
	PollFrame(ctx context.Context) (*Frame, error)
}

// Reader extracts structured round state from frames produced by its
// paired FrameSource.
type Reader interface {
	// ReadSnapshot returns the structured HUD reading for the frame.
	ReadSnapshot(frame *Frame) (*domain.RoundSnapshot, error)

	// ReadPhase returns the coarse round phase for the frame.
	ReadPhase(frame *Frame) (domain.RoundPhase, error)
}
