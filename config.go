package serialdiag

import (
	"fmt"
	"time"

	gobug "go.bug.st/serial"
)

// State is the set of line parameters governing how bytes are framed on
// the wire.
type State struct {
	BaudRate BaudRate `json:"baud_rate"`
	DataBits DataBits `json:"data_bits"`
	StopBits StopBits `json:"stop_bits"`
	Parity   Parity   `json:"parity"`
}

func (s State) String() string {
	return fmt.Sprintf("%s baud, %s data bits, %s stop bits, %s parity", s.BaudRate, s.DataBits, s.StopBits, s.Parity)
}

func (s State) mode() *gobug.Mode {
	return &gobug.Mode{
		BaudRate: s.BaudRate.Int(),
		DataBits: s.DataBits.Int(),
		Parity:   s.Parity.Get(),
		StopBits: s.StopBits.Get(),
	}
}

func stateFromMode(m *gobug.Mode) State {
	return State{
		BaudRate: BaudRate(m.BaudRate),
		DataBits: DataBits(m.DataBits),
		StopBits: StopBits(m.StopBits),
		Parity:   Parity(m.Parity),
	}
}

// Timeouts bound how long Read and Write may block. Totals follow the
// constant + multiplier*bytes model; a zero total means no total bound.
type Timeouts struct {
	ReadInterval         time.Duration `json:"read_interval"`
	ReadTotalConstant    time.Duration `json:"read_total_constant"`
	ReadTotalMultiplier  time.Duration `json:"read_total_multiplier"`
	WriteTotalConstant   time.Duration `json:"write_total_constant"`
	WriteTotalMultiplier time.Duration `json:"write_total_multiplier"`
}

// ReadTotal is the maximum time a read of n bytes may block.
func (t Timeouts) ReadTotal(n int) time.Duration {
	return t.ReadTotalConstant + t.ReadTotalMultiplier*time.Duration(n)
}

// WriteTotal is the maximum time a write of n bytes may block.
func (t Timeouts) WriteTotal(n int) time.Duration {
	return t.WriteTotalConstant + t.WriteTotalMultiplier*time.Duration(n)
}

// The diagnostic transaction is fixed: these values are not configurable.
var (
	DiagnosticState = State{
		BaudRate: Baud9600,
		DataBits: DataBits8,
		StopBits: StopBits1,
		Parity:   ParityNone,
	}

	DiagnosticTimeouts = Timeouts{
		ReadInterval:         60 * time.Millisecond,
		ReadTotalConstant:    60 * time.Millisecond,
		ReadTotalMultiplier:  15 * time.Millisecond,
		WriteTotalConstant:   60 * time.Millisecond,
		WriteTotalMultiplier: 8 * time.Millisecond,
	}

	// IdentifyCommand is the instrument identification query.
	IdentifyCommand = []byte("*IDN\r\n")
)

// ResponseCapacity is the size of the receive buffer used by the diagnostic.
const ResponseCapacity = 100
