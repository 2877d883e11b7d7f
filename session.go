package serialdiag

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Reporter receives status lines as the session produces them.
type Reporter interface {
	Report(line string)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(line string)

func (f ReporterFunc) Report(line string) { f(line) }

// Request describes one diagnostic transaction.
type Request struct {
	PortName         string
	Command          []byte
	ResponseCapacity int
}

// Session runs the fixed open, query, configure, write, read, close
// sequence. Only a failed open ends a run early.
type Session struct {
	logger   zerolog.Logger
	reporter Reporter
	opener   Opener
	state    State
	timeouts Timeouts
	newID    func() string
}

// Option customises a Session.
type Option func(*Session)

// WithLogger sets the structured logger for step events.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithReporter streams status lines to r as each step completes.
func WithReporter(r Reporter) Option {
	return func(s *Session) { s.reporter = r }
}

// WithBackend replaces the driver used to open the port.
func WithBackend(o Opener) Option {
	return func(s *Session) { s.opener = o }
}

// NewSession returns a Session that applies DiagnosticState and
// DiagnosticTimeouts.
func NewSession(opts ...Option) *Session {
	s := &Session{
		logger:   zerolog.Nop(),
		opener:   openPort,
		state:    DiagnosticState,
		timeouts: DiagnosticTimeouts,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunDiagnostic opens portName, configures it, writes command, reads up to
// responseCapacity bytes and closes the port.
func RunDiagnostic(ctx context.Context, portName string, command []byte, responseCapacity int, opts ...Option) *Outcome {
	return NewSession(opts...).Run(ctx, Request{
		PortName:         portName,
		Command:          command,
		ResponseCapacity: responseCapacity,
	})
}

// Run executes req once. The returned Outcome is never nil.
func (s *Session) Run(ctx context.Context, req Request) *Outcome {
	out := newOutcome(s.newID(), req.PortName)
	out.Command = string(req.Command)
	log := s.logger.With().Str("run_id", out.RunID).Str("port", req.PortName).Logger()
	defer out.finish()

	start := time.Now()
	port, err := Open(req.PortName, WithOpener(s.opener))
	if err != nil {
		out.fatal = err
		msg := fmt.Sprintf("Port: %s was not found", req.PortName)
		if !errors.Is(err, ErrPortNotFound) {
			msg = fmt.Sprintf("Port: %s could not be opened: %v", req.PortName, err)
		}
		s.emit(log, out, StepResult{Step: StepOpen, Message: msg, err: err, Duration: time.Since(start)})
		return out
	}
	s.emit(log, out, StepResult{
		Step:     StepOpen,
		Message:  fmt.Sprintf("Port: %s was opened", req.PortName),
		Duration: time.Since(start),
	})

	defer func() {
		start := time.Now()
		err := port.Close()
		snap := port.Metrics()
		out.Metrics = &snap
		msg := fmt.Sprintf("Port: %s was closed", req.PortName)
		if err != nil {
			msg = fmt.Sprintf("Port: %s was closed with error: %v", req.PortName, err)
		}
		s.emit(log, out, StepResult{Step: StepClose, Message: msg, err: err, Duration: time.Since(start)})
	}()

	s.queryState(log, out, port)
	s.setState(log, out, port)
	s.setTimeouts(log, out, port)
	s.write(ctx, log, out, port, req.Command)
	s.read(ctx, log, out, port, req.ResponseCapacity)

	return out
}

func (s *Session) queryState(log zerolog.Logger, out *Outcome, port *Port) {
	start := time.Now()
	st, err := port.GetState()
	if err != nil {
		s.emit(log, out, StepResult{Step: StepQueryState, Message: "Get Comm State Failed", err: err, Duration: time.Since(start)})
		return
	}
	out.QueriedState = &st
	log.Debug().Stringer("state", st).Msg("queried line state")
	s.emit(log, out, StepResult{
		Step:     StepQueryState,
		Message:  fmt.Sprintf("Get Comm State: %d", st.BaudRate),
		Duration: time.Since(start),
	})
}

func (s *Session) setState(log zerolog.Logger, out *Outcome, port *Port) {
	start := time.Now()
	if err := port.SetState(s.state); err != nil {
		s.emit(log, out, StepResult{Step: StepSetState, Message: "Set Comm State Failed", err: err, Duration: time.Since(start)})
		return
	}
	st := s.state
	out.AppliedState = &st
	s.emit(log, out, StepResult{Step: StepSetState, Message: "Set Comm State Succeeded", Duration: time.Since(start)})
}

func (s *Session) setTimeouts(log zerolog.Logger, out *Outcome, port *Port) {
	start := time.Now()
	if err := port.SetTimeouts(s.timeouts); err != nil {
		s.emit(log, out, StepResult{Step: StepSetTimeouts, Message: "Set Timeout Failed", err: err, Duration: time.Since(start)})
		return
	}
	s.emit(log, out, StepResult{Step: StepSetTimeouts, Message: "Set Timeout Succeeded", Duration: time.Since(start)})
}

func (s *Session) write(ctx context.Context, log zerolog.Logger, out *Outcome, port *Port, command []byte) {
	start := time.Now()
	n, err := port.Write(ctx, command)
	if err != nil {
		s.emit(log, out, StepResult{Step: StepWrite, Message: "Write function failed!", err: err, Duration: time.Since(start)})
		return
	}
	out.BytesWritten = n
	if n < len(command) {
		log.Warn().Int("written", n).Int("requested", len(command)).Msg("short write")
	}
	s.emit(log, out, StepResult{
		Step:     StepWrite,
		Message:  fmt.Sprintf("Bytes Sent: %d", n),
		Duration: time.Since(start),
	})
}

func (s *Session) read(ctx context.Context, log zerolog.Logger, out *Outcome, port *Port, capacity int) {
	start := time.Now()
	buf, err := NewResponseBuffer(capacity)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrReadFailed, err)
		s.emit(log, out, StepResult{Step: StepRead, Message: "Read function failed!", err: err, Duration: time.Since(start)})
		return
	}

	n, err := port.Read(ctx, buf.Space())
	buf.Advance(n)
	if err != nil {
		s.emit(log, out, StepResult{Step: StepRead, Message: "Read function failed!", err: err, Duration: time.Since(start)})
		return
	}
	out.BytesRead = buf.Len()
	out.Response = buf.String()
	s.emit(log, out, StepResult{
		Step:     StepRead,
		Message:  fmt.Sprintf("Read(%d): %s", buf.Len(), out.Response),
		Duration: time.Since(start),
	})
}

// emit records r in the outcome, logs it and forwards the status line.
func (s *Session) emit(log zerolog.Logger, out *Outcome, r StepResult) {
	r = out.record(r)

	var ev *zerolog.Event
	switch {
	case r.err == nil:
		ev = log.Debug()
	case IsFatal(r.err):
		ev = log.Error().Err(r.err)
	default:
		ev = log.Warn().Err(r.err)
	}
	ev.Str("step", string(r.Step)).Dur("took", r.Duration).Msg(r.Message)

	if s.reporter != nil {
		s.reporter.Report(r.Message)
	}
}
