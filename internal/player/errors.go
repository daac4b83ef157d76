package player

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoMedia is wrapped by the ValidationError returned when playing without a bound media handle
	ErrNoMedia = errors.New("no media bound")
	// ErrInvalidMedia is wrapped when the bound handle has been invalidated by its owner
	ErrInvalidMedia = errors.New("media handle is no longer valid")
	// ErrNotPlaying is wrapped by the ValidationError returned when pausing outside of playback
	ErrNotPlaying = errors.New("not playing")
	// ErrInterrupted is returned by a command that was waiting on the engine when Stop, SetMedia or Close ran
	ErrInterrupted = errors.New("interrupted by stop")
	// ErrClosed is returned by every command after Close
	ErrClosed = errors.New("player closed")
)

// ValidationError rejects a value before anything is sent to the engine.  Player state is unchanged.
type ValidationError struct {
	Property string
	Value    any
	Reason   string
	Err      error // optional sentinel
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Property, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// EngineCommandError means the engine refused a command synchronously.  Player state is unchanged.
type EngineCommandError struct {
	Command string
	Err     error
}

func (e *EngineCommandError) Error() string {
	return fmt.Sprintf("engine refused %s: %v", e.Command, e.Err)
}

func (e *EngineCommandError) Unwrap() error {
	return e.Err
}

// EngineFaultError is an asynchronous fatal engine fault.  It put the player into StateError and is kept for
// LastError until the player is reset by Play or SetMedia.
type EngineFaultError struct {
	Code    string
	Message string
}

func (e *EngineFaultError) Error() string {
	if e.Message == "" {
		return "engine fault: " + e.Code
	}
	return fmt.Sprintf("engine fault: %s: %s", e.Code, e.Message)
}

// BindingTimeoutError means the engine did not confirm a stop in time, or refused it, while rebinding media.
// The player was forced to StateStopped locally and the new media was bound regardless.
type BindingTimeoutError struct {
	Timeout time.Duration
	Cause   error
}

func (e *BindingTimeoutError) Error() string {
	return fmt.Sprintf("engine did not stop within %s: %v", e.Timeout, e.Cause)
}

func (e *BindingTimeoutError) Unwrap() error {
	return e.Cause
}
