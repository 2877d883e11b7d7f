package serialdiag

import (
	"sync"
	"time"

	gobug "go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// SerialPort abstracts the subset of go.bug.st/serial.Port used by this package.
type SerialPort interface {
	SetMode(mode *gobug.Mode) error
	SetReadTimeout(t time.Duration) error
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// stateReporter is implemented by handles that can report the active line
// parameters.
type stateReporter interface {
	Mode() (*gobug.Mode, error)
}

// Opener acquires a handle for the named port.
type Opener func(name string) (SerialPort, error)

// allow tests to override external dependencies
var (
	openPort             Opener = openBugst
	getPortsList                = gobug.GetPortsList
	getDetailedPortsList        = enumerator.GetDetailedPortsList
)

// bugstPort wraps the concrete serial.Port and remembers the mode last
// applied, since the driver offers no getter.
type bugstPort struct {
	gobug.Port

	mu   sync.Mutex
	mode gobug.Mode
}

func openBugst(name string) (SerialPort, error) {
	// Open with the driver defaults; the caller applies its own mode later.
	mode := &gobug.Mode{}
	p, err := gobug.Open(name, mode)
	if err != nil {
		return nil, err
	}
	return &bugstPort{Port: p, mode: defaultMode()}, nil
}

func defaultMode() gobug.Mode {
	// go.bug.st/serial fills zero values with 9600/8/N/1 on open.
	return gobug.Mode{BaudRate: 9600, DataBits: 8, Parity: gobug.NoParity, StopBits: gobug.OneStopBit}
}

func (b *bugstPort) SetMode(mode *gobug.Mode) error {
	if err := b.Port.SetMode(mode); err != nil {
		return err
	}
	b.mu.Lock()
	b.mode = *mode
	b.mu.Unlock()
	return nil
}

func (b *bugstPort) Mode() (*gobug.Mode, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m := b.mode
	return &m, nil
}
