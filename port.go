package serialdiag

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	gobug "go.bug.st/serial"
	"go.uber.org/atomic"
)

// Port is an exclusively owned, synchronously driven serial port handle.
// It is released exactly once by Close.
type Port struct {
	name    string
	handle  SerialPort
	metrics *Metrics

	timeouts Timeouts

	closed    atomic.Bool
	closeOnce sync.Once

	// mu guards handle: I/O holds the read lock, Close the write lock.
	mu sync.RWMutex
}

// PortOption customises Open.
type PortOption func(*portOptions)

type portOptions struct {
	opener Opener
}

// WithOpener replaces the driver used to acquire the handle.
func WithOpener(o Opener) PortOption {
	return func(opts *portOptions) {
		if o != nil {
			opts.opener = o
		}
	}
}

// Open acquires exclusive read/write access to the named port. Failures
// wrap ErrPortNotFound or ErrPortUnavailable; in both cases nothing is
// held.
func Open(name string, opts ...PortOption) (*Port, error) {
	o := portOptions{opener: openPort}
	for _, opt := range opts {
		opt(&o)
	}

	if err := validatePortName(name); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPortUnavailable, err)
	}

	h, err := o.opener(name)
	if err != nil {
		return nil, classifyOpenError(name, err)
	}
	if h == nil {
		return nil, fmt.Errorf("%w: %s: driver returned no handle", ErrPortUnavailable, name)
	}

	return &Port{
		name:    name,
		handle:  h,
		metrics: &Metrics{},
	}, nil
}

// Name is the port name given to Open.
func (p *Port) Name() string { return p.name }

// Metrics returns a snapshot of the I/O counters.
func (p *Port) Metrics() MetricsSnapshot { return p.metrics.Snapshot() }

// Timeouts returns the timeouts last applied with SetTimeouts.
func (p *Port) Timeouts() Timeouts {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.timeouts
}

// GetState reports the active line parameters.
func (p *Port) GetState() (State, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.handle == nil {
		return State{}, fmt.Errorf("%w: %w", ErrQueryStateFailed, ErrClosed)
	}
	sr, ok := p.handle.(stateReporter)
	if !ok {
		return State{}, fmt.Errorf("%w: %w", ErrQueryStateFailed, ErrStateUnsupported)
	}
	m, err := sr.Mode()
	if err != nil {
		return State{}, fmt.Errorf("%w: %w", ErrQueryStateFailed, err)
	}
	if m == nil {
		return State{}, fmt.Errorf("%w: %w", ErrQueryStateFailed, ErrStateUnsupported)
	}
	return stateFromMode(m), nil
}

// SetState applies the line parameters to the port.
func (p *Port) SetState(s State) error {
	if err := ValidateState(s); err != nil {
		p.metrics.ConfigurationErrors.Add(1)
		return fmt.Errorf("%w: %w", ErrSetStateFailed, err)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.handle == nil {
		return fmt.Errorf("%w: %w", ErrSetStateFailed, ErrClosed)
	}
	if err := p.handle.SetMode(s.mode()); err != nil {
		p.metrics.ConfigurationErrors.Add(1)
		return fmt.Errorf("%w: %w", ErrSetStateFailed, err)
	}
	return nil
}

// SetTimeouts validates and installs the timeouts used by Read and Write.
// The driver read timeout is primed with ReadTotalConstant so an
// unsupported driver fails here rather than on the first read.
func (p *Port) SetTimeouts(t Timeouts) error {
	if err := ValidateTimeouts(t); err != nil {
		p.metrics.ConfigurationErrors.Add(1)
		return fmt.Errorf("%w: %w", ErrSetTimeoutFailed, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.handle == nil {
		return fmt.Errorf("%w: %w", ErrSetTimeoutFailed, ErrClosed)
	}
	if err := p.handle.SetReadTimeout(driverTimeout(t.ReadTotalConstant)); err != nil {
		p.metrics.ConfigurationErrors.Add(1)
		return fmt.Errorf("%w: %w", ErrSetTimeoutFailed, err)
	}
	p.timeouts = t
	return nil
}

// Write issues a single write of data, bounded by WriteTotal(len(data)) and
// ctx. The returned count is whatever the driver accepted, which may be
// less than len(data) without an error.
func (p *Port) Write(ctx context.Context, data []byte) (int, error) {
	if err := validateBuffer(data); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	p.mu.RLock()
	h := p.handle
	total := p.timeouts.WriteTotal(len(data))
	p.mu.RUnlock()

	if h == nil {
		return 0, fmt.Errorf("%w: %w", ErrWriteFailed, ErrClosed)
	}

	start := time.Now()
	if total > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, total)
		defer cancel()
	}

	// The driver call cannot be interrupted; a write that outlives the
	// deadline is abandoned and unblocked by Close.
	resultCh := make(chan writeResult, 1)
	go func() {
		n, err := h.Write(data)
		resultCh <- writeResult{n, err}
	}()

	var n int
	var err error
	select {
	case r := <-resultCh:
		n, err = r.n, r.err
	case <-ctx.Done():
		err = ctx.Err()
		if errors.Is(err, context.DeadlineExceeded) {
			err = ErrWriteTimeout
		}
	}

	p.metrics.recordWrite(n, err, time.Since(start))
	if err != nil {
		return n, fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return n, nil
}

// writeResult holds the result of a write operation
type writeResult struct {
	n   int
	err error
}

// Read fills buf from the port. It blocks at most ReadTotal(len(buf)) and,
// once the first byte has arrived, returns early when the line stays idle
// for longer than ReadInterval. It never reads past len(buf). A read that
// times out with fewer bytes is not an error.
func (p *Port) Read(ctx context.Context, buf []byte) (int, error) {
	if err := validateBuffer(buf); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrReadFailed, err)
	}

	// Hold the read lock for the whole transfer so Close cannot pull the
	// handle out from under an in-flight driver call.
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.handle == nil {
		return 0, fmt.Errorf("%w: %w", ErrReadFailed, ErrClosed)
	}

	start := time.Now()
	t := p.timeouts
	var deadline time.Time
	if total := t.ReadTotal(len(buf)); total > 0 {
		deadline = start.Add(total)
	}

	var (
		read     int
		timedOut bool
		err      error
		applied  = time.Duration(-2) // no value applied yet
	)
	for read < len(buf) {
		if err = ctx.Err(); err != nil {
			break
		}

		wait := gobug.NoTimeout
		if !deadline.IsZero() {
			wait = time.Until(deadline)
			if wait <= 0 {
				timedOut = true
				break
			}
		}
		if read > 0 && t.ReadInterval > 0 && (wait == gobug.NoTimeout || t.ReadInterval < wait) {
			wait = t.ReadInterval
		}
		if wait != applied {
			if err = p.handle.SetReadTimeout(wait); err != nil {
				break
			}
			applied = wait
		}

		var n int
		n, err = p.handle.Read(buf[read:])
		if err != nil {
			break
		}
		if n == 0 {
			timedOut = true
			break
		}
		read += n
	}

	p.metrics.recordRead(read, timedOut, err, time.Since(start))
	if err != nil {
		return read, fmt.Errorf("%w: %w", ErrReadFailed, err)
	}
	return read, nil
}

// Close releases the handle. Only the first call does any work; later
// calls return nil.
func (p *Port) Close() error {
	var err error
	p.closeOnce.Do(func() {
		p.closed.Store(true)

		p.mu.Lock()
		defer p.mu.Unlock()

		h := p.handle
		p.handle = nil
		if h != nil {
			err = h.Close()
		}
	})
	return err
}

// IsClosed reports whether Close has been called.
func (p *Port) IsClosed() bool {
	return p.closed.Load()
}

// validateBuffer validates buffer parameters
func validateBuffer(b []byte) error {
	if len(b) == 0 {
		return ErrInvalidBuffer
	}
	if len(b) > MaxBufferSize {
		return ErrBufferTooLarge
	}
	return nil
}

func driverTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return gobug.NoTimeout
	}
	return d
}
