// Package hudfeed consumes structured HUD readings streamed by the OCR
// sensor process over WebSocket. It is the normalization layer of the
// sensor boundary: malformed readings are repaired or dropped here, so the
// core only ever sees well-formed snapshots.
package hudfeed

import (
	"encoding/json"
	"fmt"

	"github.com/AtsuiOcha/overheat-punisher/internal/domain"
	"github.com/AtsuiOcha/overheat-punisher/internal/hud"
)

// WireKillFeedLine is one kill-feed line as sent by the sensor.
type WireKillFeedLine struct {
	Killer        string `json:"killer"`
	Victim        string `json:"victim"`
	VictimOwnTeam bool   `json:"victim_own_team"`
}

// WireReading is one sensor message. KillFeed is most-recent-first, the
// order the sensor reads the feed top-to-bottom off screen.
type WireReading struct {
	CapturedAt   int64              `json:"captured_at"`
	AlliesAlive  int                `json:"allies_alive"`
	EnemiesAlive int                `json:"enemies_alive"`
	KillFeed     []WireKillFeedLine `json:"kill_feed"`
	PlayerDead   bool               `json:"player_dead"`
	RoundPhase   string             `json:"round_phase"`
}

// Snapshot converts the reading into a core snapshot.
//
// Alive counts outside [0, TeamSize] reject the whole reading: a sensor
// that miscounts a roster cannot be trusted for anything else in the same
// frame. Kill-feed lines with an unreadable killer or victim are dropped
// individually; OCR losing one line does not invalidate the rest.
func (r *WireReading) Snapshot() (*domain.RoundSnapshot, error) {
	if r.AlliesAlive < 0 || r.AlliesAlive > domain.TeamSize ||
		r.EnemiesAlive < 0 || r.EnemiesAlive > domain.TeamSize {
		return nil, fmt.Errorf("%w: alive counts %d/%d out of range", hud.ErrMalformedReading, r.AlliesAlive, r.EnemiesAlive)
	}

	var feed []domain.KillFeedEntry
	for _, line := range r.KillFeed {
		if line.Killer == "" || line.Victim == "" {
			continue
		}
		feed = append(feed, domain.KillFeedEntry{
			Killer:           line.Killer,
			Victim:           line.Victim,
			VictimWasOwnTeam: line.VictimOwnTeam,
		})
	}

	return &domain.RoundSnapshot{
		AlliesAlive:     r.AlliesAlive,
		EnemiesAlive:    r.EnemiesAlive,
		KillFeedEntries: feed,
		PlayerIsDead:    r.PlayerDead,
		Timestamp:       r.CapturedAt,
	}, nil
}

// Phase maps the sensor's round phase string onto the core enumeration.
func (r *WireReading) Phase() (domain.RoundPhase, error) {
	switch domain.RoundPhase(r.RoundPhase) {
	case domain.PhasePreRound, domain.PhaseMidRound, domain.PhasePostRound:
		return domain.RoundPhase(r.RoundPhase), nil
	default:
		return "", fmt.Errorf("%w: unknown round phase %q", hud.ErrMalformedReading, r.RoundPhase)
	}
}

// Reader decodes frames whose payload is a JSON WireReading. It implements
// hud.Reader for frames produced by WSSource (and by recorded traces).
type Reader struct{}

// NewReader creates a Reader.
func NewReader() *Reader {
	return &Reader{}
}

// ReadSnapshot decodes and validates the frame payload.
func (r *Reader) ReadSnapshot(frame *hud.Frame) (*domain.RoundSnapshot, error) {
	reading, err := decode(frame)
	if err != nil {
		return nil, err
	}
	return reading.Snapshot()
}

// ReadPhase decodes the frame payload and returns its round phase.
func (r *Reader) ReadPhase(frame *hud.Frame) (domain.RoundPhase, error) {
	reading, err := decode(frame)
	if err != nil {
		return "", err
	}
	return reading.Phase()
}

func decode(frame *hud.Frame) (*WireReading, error) {
	if frame == nil || len(frame.Payload) == 0 {
		return nil, fmt.Errorf("%w: empty frame", hud.ErrMalformedReading)
	}
	var reading WireReading
	if err := json.Unmarshal(frame.Payload, &reading); err != nil {
		return nil, fmt.Errorf("%w: %v", hud.ErrMalformedReading, err)
	}
	return &reading, nil
}
