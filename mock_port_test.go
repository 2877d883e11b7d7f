package serialdiag

import (
	"errors"
	"sync"
	"time"

	gobug "go.bug.st/serial"
)

// mockPort is an in-memory SerialPort. Each Read hands out the next queued
// chunk (split if the caller's buffer is smaller); an empty queue behaves
// like a driver read timeout and returns 0, nil.
type mockPort struct {
	mu sync.Mutex

	chunks    [][]byte
	readErr   error
	readSizes []int

	writes     [][]byte
	writeLimit int // accept at most this many bytes per write when > 0
	writeErr   error
	writeBlock chan struct{}

	modes      []gobug.Mode
	modeErr    error
	timeouts   []time.Duration
	timeoutErr error

	closeCalls int
	closeErr   error
}

func newMockPort(chunks ...string) *mockPort {
	m := &mockPort{}
	for _, c := range chunks {
		m.chunks = append(m.chunks, []byte(c))
	}
	return m
}

func (m *mockPort) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.readSizes = append(m.readSizes, len(p))
	if m.readErr != nil {
		return 0, m.readErr
	}
	if m.closeCalls > 0 {
		return 0, errors.New("mock: read on closed port")
	}
	if len(m.chunks) == 0 {
		return 0, nil
	}
	n := copy(p, m.chunks[0])
	if n < len(m.chunks[0]) {
		m.chunks[0] = m.chunks[0][n:]
	} else {
		m.chunks = m.chunks[1:]
	}
	return n, nil
}

func (m *mockPort) Write(p []byte) (int, error) {
	m.mu.Lock()
	block := m.writeBlock
	m.mu.Unlock()
	if block != nil {
		<-block
		return 0, errors.New("mock: port closed during write")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return 0, m.writeErr
	}
	n := len(p)
	if m.writeLimit > 0 && n > m.writeLimit {
		n = m.writeLimit
	}
	cp := make([]byte, n)
	copy(cp, p[:n])
	m.writes = append(m.writes, cp)
	return n, nil
}

func (m *mockPort) SetMode(mode *gobug.Mode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.modeErr != nil {
		return m.modeErr
	}
	m.modes = append(m.modes, *mode)
	return nil
}

func (m *mockPort) SetReadTimeout(d time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timeoutErr != nil {
		return m.timeoutErr
	}
	m.timeouts = append(m.timeouts, d)
	return nil
}

func (m *mockPort) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeCalls++
	if m.writeBlock != nil {
		close(m.writeBlock)
		m.writeBlock = nil
	}
	return m.closeErr
}

func (m *mockPort) closes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeCalls
}

// statefulMockPort also reports a line state, like bugstPort does.
type statefulMockPort struct {
	*mockPort
	current gobug.Mode
	getErr  error
}

func (s *statefulMockPort) Mode() (*gobug.Mode, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	m := s.current
	return &m, nil
}

func openerFor(h SerialPort) (Opener, *int) {
	calls := 0
	return func(string) (SerialPort, error) {
		calls++
		return h, nil
	}, &calls
}

func failingOpener(err error) (Opener, *int) {
	calls := 0
	return func(string) (SerialPort, error) {
		calls++
		return nil, err
	}, &calls
}
