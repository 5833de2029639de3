package serialport

import (
	"bytes"
	"errors"
	"sync"
	"time"
)

// ErrPortClosed is returned by TestablePort once Close has been called.
var ErrPortClosed = errors.New("serial port closed")

// TestablePort implements TimeoutPorter with configurable behaviour for testing.
// Reads on an empty buffer wait up to ReadTimeout for data and then return (0, nil),
// which is how go.bug.st/serial reports a read timeout.
type TestablePort struct {
	mu sync.Mutex

	readBuf  bytes.Buffer
	writeBuf bytes.Buffer

	readTimeout time.Duration
	dataReady   chan struct{}
	done        chan struct{}
	closed      bool

	// ReadError is returned by the next Read call if set.
	ReadError error
	// WriteError is returned by the next Write call if set.
	WriteError error
	// ShortWrite makes Write report one byte fewer than it was given.
	ShortWrite bool
	// CloseError is returned by Close if set.
	CloseError error
	// OnWrite, if set, is called with each successful write outside the lock.
	OnWrite func(p []byte)

	readCalls  int
	writeCalls int
	closeCalls int
}

// NewTestablePort creates a port with a 10ms read timeout.
func NewTestablePort() *TestablePort {
	return &TestablePort{
		readTimeout: 10 * time.Millisecond,
		dataReady:   make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
}

// Read returns buffered data, or waits up to the read timeout for some.
func (t *TestablePort) Read(p []byte) (int, error) {
	t.mu.Lock()
	t.readCalls++
	if t.closed {
		t.mu.Unlock()
		return 0, ErrPortClosed
	}
	if t.ReadError != nil {
		err := t.ReadError
		t.ReadError = nil
		t.mu.Unlock()
		return 0, err
	}
	if t.readBuf.Len() > 0 {
		n, _ := t.readBuf.Read(p)
		t.mu.Unlock()
		return n, nil
	}
	timeout := t.readTimeout
	t.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-t.dataReady:
	case <-t.done:
		return 0, ErrPortClosed
	case <-timer.C:
		return 0, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.readBuf.Len() == 0 {
		return 0, nil
	}
	n, _ := t.readBuf.Read(p)
	return n, nil
}

// Write captures p, optionally simulating errors.
func (t *TestablePort) Write(p []byte) (int, error) {
	t.mu.Lock()
	t.writeCalls++
	if t.closed {
		t.mu.Unlock()
		return 0, ErrPortClosed
	}
	if t.WriteError != nil {
		err := t.WriteError
		t.WriteError = nil
		t.mu.Unlock()
		return 0, err
	}
	t.writeBuf.Write(p)
	n := len(p)
	if t.ShortWrite && n > 0 {
		n--
	}
	hook := t.OnWrite
	t.mu.Unlock()

	if hook != nil {
		hook(append([]byte(nil), p...))
	}
	return n, nil
}

// Close marks the port closed and wakes blocked readers.
func (t *TestablePort) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closeCalls++
	if !t.closed {
		t.closed = true
		close(t.done)
	}
	return t.CloseError
}

// SetReadTimeout implements TimeoutPorter.
func (t *TestablePort) SetReadTimeout(timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.readTimeout = timeout
	return nil
}

// AddReadData queues data for subsequent Read calls.
func (t *TestablePort) AddReadData(data []byte) {
	t.mu.Lock()
	t.readBuf.Write(data)
	t.mu.Unlock()

	select {
	case t.dataReady <- struct{}{}:
	default:
	}
}

// Written returns everything written to the port so far.
func (t *TestablePort) Written() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.writeBuf.String()
}

// Closed reports whether Close has been called.
func (t *TestablePort) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// ReadTimeout returns the timeout most recently set.
func (t *TestablePort) ReadTimeout() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.readTimeout
}

// Calls returns the number of Read, Write and Close calls.
func (t *TestablePort) Calls() (reads, writes, closes int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.readCalls, t.writeCalls, t.closeCalls
}

// MockFactory implements Factory for testing.
type MockFactory struct {
	mu sync.Mutex

	// NewPort builds the port for each Open call. Defaults to NewTestablePort.
	NewPort func(path string) Porter
	// Errors maps a path to the error Open should return for it.
	Errors map[string]error

	opened []MockOpenCall
	ports  []Porter
}

// MockOpenCall records details of an Open call.
type MockOpenCall struct {
	Path    string
	Options PortOptions
}

// NewMockFactory creates a MockFactory handing out fresh TestablePorts.
func NewMockFactory() *MockFactory {
	return &MockFactory{Errors: make(map[string]error)}
}

// Open returns a new port, or the error configured for path.
func (f *MockFactory) Open(path string, opts PortOptions) (Porter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.opened = append(f.opened, MockOpenCall{Path: path, Options: opts})
	if err := f.Errors[path]; err != nil {
		return nil, err
	}

	var p Porter
	if f.NewPort != nil {
		p = f.NewPort(path)
	} else {
		p = NewTestablePort()
	}
	f.ports = append(f.ports, p)
	return p, nil
}

// SetError makes subsequent opens of path fail with err. A nil err clears it.
func (f *MockFactory) SetError(path string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.Errors, path)
		return
	}
	f.Errors[path] = err
}

// OpenCalls returns a copy of every Open call made so far.
func (f *MockFactory) OpenCalls() []MockOpenCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]MockOpenCall(nil), f.opened...)
}

// Ports returns every port handed out so far, oldest first.
func (f *MockFactory) Ports() []Porter {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Porter(nil), f.ports...)
}

// LastPort returns the most recently opened port, or nil.
func (f *MockFactory) LastPort() Porter {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.ports) == 0 {
		return nil
	}
	return f.ports[len(f.ports)-1]
}
