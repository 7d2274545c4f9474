// Copyright (c) 2020–2024 The switchbox developers. All rights reserved.
// Project site: https://github.com/gotmc/switchbox
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package switchbox drives the lab's 110-channel relay switchbox: an
// Arduino-class microcontroller that applies a relay pattern to a
// shift-register-driven relay bank. The host selects relays by walking a
// fixed newline-delimited ASCII handshake over USB serial at 9600 baud.
package switchbox

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"

	"github.com/gotmc/switchbox/logger"
)

// Default timing. The write delay is a firmware contract, not a tuning knob:
// the microcontroller polls its UART between loop iterations and drops lines
// written back to back without a gap.
const (
	DefaultWriteDelay     = 50 * time.Millisecond
	DefaultConnectTimeout = 10 * time.Second
	DefaultStepTimeout    = 5 * time.Second
)

// TraceFunc observes every line on the wire. send is true for host→device
// lines. Lines are passed without their newline terminator.
type TraceFunc func(send bool, line string)

// Session owns one serial channel to the switchbox and drives the relay
// selection protocol over it. A Session is not safe for interleaved protocol
// operations; Activate, Reset, and Close serialize on an internal mutex, and
// callers must let one operation complete before starting the next.
type Session struct {
	mu sync.Mutex

	rw     io.ReadWriter
	log    logger.Logger
	trace  TraceFunc
	lines  chan string
	done   chan struct{}
	closed bool

	// faulted latches after any mid-protocol failure; fault keeps the
	// timeout detail when that is what happened. Cleared only by a
	// successful Reset.
	faulted bool
	fault   *ProtocolTimeoutError

	state atomic.Uint32

	writeDelay     time.Duration
	connectTimeout time.Duration
	stepTimeout    time.Duration
}

// SessionOption applies an option to the session.
type SessionOption func(*Session)

// WithWriteDelay sets the gap between consecutive index lines during
// transmission. Lowering this below the firmware's loop period loses indices.
func WithWriteDelay(d time.Duration) SessionOption {
	return func(s *Session) { s.writeDelay = d }
}

// WithConnectTimeout sets how long Connect waits for the boot banner.
func WithConnectTimeout(d time.Duration) SessionOption {
	return func(s *Session) { s.connectTimeout = d }
}

// WithStepTimeout sets how long each protocol step waits for its
// confirmation line.
func WithStepTimeout(d time.Duration) SessionOption {
	return func(s *Session) { s.stepTimeout = d }
}

// WithLogger replaces the package default logger.
func WithLogger(l logger.Logger) SessionOption {
	return func(s *Session) { s.log = l }
}

// WithTrace installs a wire trace hook; see lib/cmdlog for a styled one.
func WithTrace(fn TraceFunc) SessionOption {
	return func(s *Session) { s.trace = fn }
}

// NewSession creates a session over the given transport, which is a serial
// port in production and may be any in-memory pipe in tests. The session
// starts Disconnected; call Connect before anything else.
func NewSession(rw io.ReadWriter, opts ...SessionOption) *Session {
	s := &Session{
		rw:             rw,
		log:            logger.GetLogger(),
		lines:          make(chan string, 16),
		done:           make(chan struct{}),
		writeDelay:     DefaultWriteDelay,
		connectTimeout: DefaultConnectTimeout,
		stepTimeout:    DefaultStepTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state.Store(uint32(Disconnected))

	return s
}

// State returns the session's current protocol state.
func (s *Session) State() State { return State(s.state.Load()) }

// Faulted reports whether the session requires a Reset before further
// Activate calls.
func (s *Session) Faulted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.faulted
}

// Connect blocks until the firmware's boot announcement is observed, then
// leaves the session Idle. The firmware does not service its UART until its
// main loop starts, so nothing may be written before the banner; writing
// earlier silently loses the command.
func (s *Session) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.State() != Disconnected {
		return fmt.Errorf("%w: connect in state %s", ErrInvalidTransition, s.State())
	}

	go s.readLoop()

	timer := time.NewTimer(s.connectTimeout)
	defer timer.Stop()
	for {
		select {
		case line, ok := <-s.lines:
			if !ok {
				s.closed = true
				return ErrClosed
			}
			if line == MsgBanner {
				s.setState(Idle)
				s.log.Info("switchbox ready")
				return nil
			}
			s.log.Debug("ignoring pre-banner line", "line", line)
		case <-timer.C:
			return ErrConnectTimeout
		}
	}
}

// Activate closes the relays identified by the given 1-based relay numbers
// and blocks until the device confirms the shift registers are latched.
// Numbers outside [1, NumChannels] are dropped with a warning; the remaining
// selection proceeds. On success the session is RelaysActive and the relays
// stay energized until Reset.
//
// A step timeout returns a *ProtocolTimeoutError and faults the session: the
// protocol has no mid-sequence cancellation, so the only ways out of a
// started exchange are completion, timeout, or Reset.
func (s *Session) Activate(relayNumbers ...int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.faulted {
		if s.fault != nil {
			return fmt.Errorf("%w (last fault: %w)", ErrSessionFaulted, s.fault)
		}
		return ErrSessionFaulted
	}
	if s.State() != Idle {
		return fmt.Errorf("%w: activate in state %s", ErrInvalidTransition, s.State())
	}

	indices := s.normalize(relayNumbers)
	s.log.Info("activating relays", "count", len(indices))

	if err := s.exchange(indices); err != nil {
		s.faulted = true
		var pte *ProtocolTimeoutError
		if errors.As(err, &pte) {
			s.fault = pte
		}
		s.log.Error("activate failed", "state", s.State().String(), "error", err)
		return err
	}

	return nil
}

// exchange runs the full activation handshake for the given 0-based indices.
func (s *Session) exchange(indices []int) error {
	s.setState(HandshakeRequested)
	if err := s.send(CmdReady); err != nil {
		return err
	}
	if err := s.waitFor(MsgGiveNum); err != nil {
		return err
	}

	s.setState(AwaitingSize)
	if err := s.send(strconv.Itoa(len(indices))); err != nil {
		return err
	}
	// The firmware echoes the count back in free-form text; the content is
	// not checked, only its arrival.
	if err := s.waitAny(); err != nil {
		return err
	}

	s.setState(AwaitingCount)
	if err := s.send(CmdStartRecv); err != nil {
		return err
	}
	if err := s.waitFor(MsgGiveRelays); err != nil {
		return err
	}

	s.setState(TransmittingIndices)
	for _, idx := range indices {
		time.Sleep(s.writeDelay)
		if err := s.send(strconv.Itoa(idx)); err != nil {
			return err
		}
	}
	if err := s.waitFor(MsgRelaysReceived); err != nil {
		return err
	}

	s.setState(AwaitingFinalize)
	if err := s.send(CmdMakeArray); err != nil {
		return err
	}
	if err := s.send(CmdStart); err != nil {
		return err
	}
	if err := s.waitFor(MsgArrayReceived); err != nil {
		return err
	}
	if err := s.send(CmdSetRegisters); err != nil {
		return err
	}
	if err := s.waitFor(MsgFinished); err != nil {
		return err
	}

	s.setState(RelaysActive)
	// Park the firmware's state machine back in its idle loop so the next
	// exchange starts clean. The relays stay latched regardless.
	return s.send(CmdIdle)
}

// Reset commands the device to clear every shift-register output (all relays
// open) and returns the session to Idle. The firmware treats RESET as
// idempotent and state-independent, so Reset is valid from any connected
// state, including a faulted one — it is the only recovery path after a
// protocol timeout.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.resetLocked()
}

func (s *Session) resetLocked() error {
	if s.closed {
		return ErrClosed
	}
	if s.State() == Disconnected {
		return fmt.Errorf("%w: reset before connect", ErrInvalidTransition)
	}

	s.setState(ResettingRegisters)
	if err := s.send(CmdReset); err != nil {
		s.faulted = true
		return err
	}
	if err := s.waitFor(MsgResetDone); err != nil {
		// A device that does not answer RESET needs a power cycle.
		s.faulted = true
		return err
	}

	s.faulted = false
	s.fault = nil
	s.setState(Idle)
	s.log.Info("relay bank cleared")

	return nil
}

// Close resets the relay bank on a best-effort basis, then releases the
// transport. Reset failures are logged, not returned; teardown errors from
// the transport itself are.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	if s.State() != Disconnected {
		if err := s.resetLocked(); err != nil {
			s.log.Warn("best-effort reset on close failed", "error", err)
		}
	}
	s.closed = true
	close(s.done)

	var err error
	if fl, ok := s.rw.(interface{ Flush() error }); ok {
		err = multierr.Append(err, fl.Flush())
	}
	if c, ok := s.rw.(io.Closer); ok {
		err = multierr.Append(err, c.Close())
	}

	return err
}

// normalize translates 1-based relay numbers to the 0-based wire indices,
// dropping out-of-range values with a warning.
func (s *Session) normalize(relayNumbers []int) []int {
	indices := make([]int, 0, len(relayNumbers))
	for _, n := range relayNumbers {
		if n < 1 || n > NumChannels {
			s.log.Warn("dropping relay number",
				"relay", n, "max", NumChannels, "error", ErrInvalidRelayIndex)
			continue
		}
		indices = append(indices, n-1)
	}

	return indices
}

// send writes one newline-terminated line to the device.
func (s *Session) send(line string) error {
	if s.trace != nil {
		s.trace(true, line)
	}
	s.log.Debug("send", "line", line)
	if _, err := fmt.Fprintf(s.rw, "%s\n", line); err != nil {
		return fmt.Errorf("writing %q: %w", line, err)
	}

	return nil
}

// waitFor blocks until the device emits exactly the expected line. Other
// lines (progress chatter, count echoes that straggle) are logged and
// skipped; only silence is an error.
func (s *Session) waitFor(expect string) error {
	timer := time.NewTimer(s.stepTimeout)
	defer timer.Stop()
	for {
		select {
		case line, ok := <-s.lines:
			if !ok {
				return ErrClosed
			}
			if line == expect {
				return nil
			}
			s.log.Debug("skipping line", "line", line, "want", expect)
		case <-timer.C:
			return &ProtocolTimeoutError{
				State:  s.State(),
				Expect: expect,
				After:  s.stepTimeout,
			}
		}
	}
}

// waitAny blocks until the device emits any line, which is discarded.
func (s *Session) waitAny() error {
	select {
	case line, ok := <-s.lines:
		if !ok {
			return ErrClosed
		}
		s.log.Debug("ack", "line", line)
		return nil
	case <-time.After(s.stepTimeout):
		return &ProtocolTimeoutError{
			State:  s.State(),
			Expect: "acknowledgment",
			After:  s.stepTimeout,
		}
	}
}

// readLoop is the sole reader of the transport. It feeds whole lines to the
// waiting protocol step and closes the channel when the link dies, which
// surfaces as ErrClosed at the next wait. Close unparks it even when the
// device keeps talking with nobody waiting and the line buffer is full.
func (s *Session) readLoop() {
	defer close(s.lines)

	scanner := bufio.NewScanner(s.rw)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if s.trace != nil {
			s.trace(false, line)
		}
		select {
		case s.lines <- line:
		case <-s.done:
			return
		}
	}
	if err := scanner.Err(); err != nil {
		s.log.Debug("read loop ended", "error", err)
	}
}

func (s *Session) setState(next State) {
	prev := State(s.state.Swap(uint32(next)))
	if prev != next {
		s.log.Debug("state transition", "from", prev.String(), "to", next.String())
	}
}
