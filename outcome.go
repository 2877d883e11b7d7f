package serialdiag

import (
	"errors"
	"fmt"
	"io"
	"time"

	json "github.com/goccy/go-json"
)

// Step names one stage of the diagnostic transaction.
type Step string

const (
	StepOpen        Step = "open"
	StepQueryState  Step = "query_state"
	StepSetState    Step = "set_state"
	StepSetTimeouts Step = "set_timeouts"
	StepWrite       Step = "write"
	StepRead        Step = "read"
	StepClose       Step = "close"
)

// StepResult records what happened at one step.
type StepResult struct {
	Step     Step          `json:"step"`
	OK       bool          `json:"ok"`
	Message  string        `json:"message"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`

	err error
}

// Err is the failure of the step, or nil.
func (r StepResult) Err() error { return r.err }

// Outcome is the log of one diagnostic run.
type Outcome struct {
	RunID        string           `json:"run_id"`
	Port         string           `json:"port"`
	StartedAt    time.Time        `json:"started_at"`
	Duration     time.Duration    `json:"duration"`
	Health       HealthStatus     `json:"health"`
	Steps        []StepResult     `json:"steps"`
	QueriedState *State           `json:"queried_state,omitempty"`
	AppliedState *State           `json:"applied_state,omitempty"`
	Command      string           `json:"command"`
	BytesWritten int              `json:"bytes_written"`
	BytesRead    int              `json:"bytes_read"`
	Response     string           `json:"response"`
	Metrics      *MetricsSnapshot `json:"metrics,omitempty"`

	fatal error
}

func newOutcome(runID, port string) *Outcome {
	return &Outcome{
		RunID:     runID,
		Port:      port,
		StartedAt: time.Now(),
	}
}

func (o *Outcome) record(r StepResult) StepResult {
	if r.err != nil {
		r.OK = false
		r.Error = r.err.Error()
	} else {
		r.OK = true
	}
	o.Steps = append(o.Steps, r)
	return r
}

func (o *Outcome) finish() {
	o.Duration = time.Since(o.StartedAt)
	switch {
	case o.fatal != nil:
		o.Health = HealthStatusDown
	case len(o.Failures()) > 0:
		o.Health = HealthStatusDegraded
	default:
		o.Health = HealthStatusHealthy
	}
}

// Err returns the fatal open error, or nil if the port was opened.
func (o *Outcome) Err() error { return o.fatal }

// Opened reports whether the port handle was acquired.
func (o *Outcome) Opened() bool {
	r, ok := o.Step(StepOpen)
	return ok && r.OK
}

// Step returns the result recorded for s, if that step ran.
func (o *Outcome) Step(s Step) (StepResult, bool) {
	for _, r := range o.Steps {
		if r.Step == s {
			return r, true
		}
	}
	return StepResult{}, false
}

// Failures returns the steps that failed, in order.
func (o *Outcome) Failures() []StepResult {
	var failed []StepResult
	for _, r := range o.Steps {
		if !r.OK {
			failed = append(failed, r)
		}
	}
	return failed
}

// Errors joins every step failure.
func (o *Outcome) Errors() error {
	var errs []error
	for _, r := range o.Failures() {
		errs = append(errs, r.err)
	}
	return errors.Join(errs...)
}

// Lines returns the human-readable status lines in step order.
func (o *Outcome) Lines() []string {
	lines := make([]string, 0, len(o.Steps))
	for _, r := range o.Steps {
		lines = append(lines, r.Message)
	}
	return lines
}

// ExitCode is 1 when the port could not be opened and 0 otherwise. Step
// failures after a successful open do not change it.
func (o *Outcome) ExitCode() int {
	if o.fatal != nil {
		return 1
	}
	return 0
}

// WriteText writes the status lines, one per line.
func (o *Outcome) WriteText(w io.Writer) error {
	for _, line := range o.Lines() {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// WriteJSON writes the outcome as indented JSON.
func (o *Outcome) WriteJSON(w io.Writer) error {
	b, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding outcome: %w", err)
	}
	b = append(b, '\n')
	_, err = w.Write(b)
	return err
}
