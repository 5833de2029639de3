// Package session owns the serial line to the CNC controller. A Manager holds at
// most one open port and runs each command as an exclusive
// connect → write → read → release cycle.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/cnc-relay/internal/monitoring"
	"github.com/banshee-data/cnc-relay/internal/serialport"
	"github.com/banshee-data/cnc-relay/internal/timeutil"
)

var logf = monitoring.Prefixed("session")

// State is the lifecycle state of the serial session.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateBusy
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateBusy:
		return "busy"
	default:
		return "unknown"
	}
}

// Options configures a Manager. Zero fields take the values from DefaultOptions.
type Options struct {
	Port        serialport.PortOptions
	ReadWindow  time.Duration
	LineTimeout time.Duration
	SettleDelay time.Duration
	Codes       *ResponseTable
	Clock       timeutil.Clock
}

// DefaultOptions returns 115200 8N1 with a 2s read window, 100ms line timeout and
// 200ms settle delay.
func DefaultOptions() Options {
	return Options{
		Port:        serialport.DefaultPortOptions(),
		ReadWindow:  2 * time.Second,
		LineTimeout: 100 * time.Millisecond,
		SettleDelay: 200 * time.Millisecond,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Port == (serialport.PortOptions{}) {
		o.Port = def.Port
	}
	if o.ReadWindow <= 0 {
		o.ReadWindow = def.ReadWindow
	}
	if o.LineTimeout <= 0 {
		o.LineTimeout = def.LineTimeout
	}
	if o.SettleDelay <= 0 {
		o.SettleDelay = def.SettleDelay
	}
	if o.Codes == nil {
		o.Codes = DefaultResponseTable()
	}
	if o.Clock == nil {
		o.Clock = timeutil.RealClock{}
	}
	return o
}

// Stats counts what the Manager has done since it was created.
type Stats struct {
	CommandsSent    uint64 `json:"commands_sent"`
	Conflicts       uint64 `json:"conflicts"`
	ConnectFailures uint64 `json:"connect_failures"`
	Faults          uint64 `json:"faults"`
}

// Snapshot is a point-in-time view of the session.
type Snapshot struct {
	State       string `json:"state"`
	Port        string `json:"port,omitempty"`
	Open        bool   `json:"open"`
	BaudRate    int    `json:"baud_rate"`
	ReadWindow  string `json:"read_window"`
	LineTimeout string `json:"line_timeout"`
	Stats
}

// Manager serialises access to a single serial session.
//
// The slot channel is the exclusivity lock: whoever holds its one token owns the
// port for a complete cycle. Send only ever try-acquires it, so a second command
// fails fast with a ConflictError; Connect and Release queue for it, which keeps
// Release from closing the port under an active read. mu guards the fields below
// it and is never held across I/O.
type Manager struct {
	factory serialport.Factory
	opts    Options
	slot    chan struct{}

	mu         sync.Mutex
	state      State
	port       serialport.Porter
	portName   string
	lastClosed time.Time
	stats      Stats
}

// NewManager returns an idle Manager that opens ports through factory.
func NewManager(factory serialport.Factory, opts Options) *Manager {
	return &Manager{
		factory: factory,
		opts:    opts.withDefaults(),
		slot:    make(chan struct{}, 1),
	}
}

// Codes returns the response table used for classification.
func (m *Manager) Codes() *ResponseTable {
	return m.opts.Codes
}

func (m *Manager) acquire(ctx context.Context) error {
	select {
	case m.slot <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) tryAcquire() bool {
	select {
	case m.slot <- struct{}{}:
		return true
	default:
		return false
	}
}

func (m *Manager) releaseSlot() {
	<-m.slot
}

// Connect opens port, waiting for any in-flight command to finish first. It is a
// no-op if port is already open; a different open port is closed first.
func (m *Manager) Connect(ctx context.Context, port string) error {
	if strings.TrimSpace(port) == "" {
		return &ValidationError{Field: "port", Message: "No port input provided"}
	}
	if err := m.acquire(ctx); err != nil {
		return err
	}
	defer m.releaseSlot()
	return m.connect(port)
}

// Release closes the current port, if any. It waits for an in-flight command to
// finish rather than interrupting it, and only fails if ctx ends first.
func (m *Manager) Release(ctx context.Context) error {
	if err := m.acquire(ctx); err != nil {
		return err
	}
	defer m.releaseSlot()
	m.closeSession()
	return nil
}

// Send writes text to port and collects the controller's reply lines. Surrounding
// whitespace is stripped before the command goes on the wire; the result keeps
// text as given.
//
// Any command already in flight makes Send fail with a ConflictError, as does a
// different port held open by Connect. The session is always closed again before
// Send returns, whatever the outcome.
func (m *Manager) Send(ctx context.Context, text, port string) (*CommandResult, error) {
	command := strings.TrimSpace(text)
	port = strings.TrimSpace(port)
	if command == "" {
		return nil, &ValidationError{Field: "text", Message: "No text input provided"}
	}
	if port == "" {
		return nil, &ValidationError{Field: "port", Message: "No port input provided"}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !m.tryAcquire() {
		return nil, m.conflict(port)
	}
	defer m.releaseSlot()

	m.mu.Lock()
	bound := m.portName
	m.mu.Unlock()
	if bound != "" && bound != port {
		return nil, m.conflict(port)
	}

	defer m.closeSession()

	if err := m.connect(port); err != nil {
		return nil, err
	}

	m.mu.Lock()
	p := m.port
	m.state = StateBusy
	m.mu.Unlock()

	start := m.opts.Clock.Now()
	id := uuid.NewString()

	if err := m.write(p, port, command); err != nil {
		return nil, m.fault(err)
	}

	lines, err := m.collect(p, port)
	if err != nil {
		return nil, m.fault(err)
	}

	result := &CommandResult{
		ID:                 id,
		Port:               port,
		SentText:           text,
		ResponseLines:      lines,
		ClassifiedMessages: make([]string, len(lines)),
		Elapsed:            m.opts.Clock.Since(start),
	}
	for i, line := range lines {
		result.ClassifiedMessages[i] = m.opts.Codes.Classify(line)
	}

	m.mu.Lock()
	m.stats.CommandsSent++
	m.mu.Unlock()

	if result.NoResponse() {
		logf("%s: sent %q, no response within %v", port, command, m.opts.ReadWindow)
	} else {
		logf("%s: sent %q, got %q", port, command, lines)
	}
	return result, nil
}

func (m *Manager) conflict(requested string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Conflicts++
	return &ConflictError{Port: m.portName, Requested: requested}
}

func (m *Manager) fault(err error) error {
	m.mu.Lock()
	m.stats.Faults++
	m.mu.Unlock()
	logf("%v", err)
	return err
}

// connect must be called with the slot held.
func (m *Manager) connect(port string) error {
	m.mu.Lock()
	if m.port != nil && m.portName == port {
		m.mu.Unlock()
		return nil
	}
	m.state = StateConnecting
	m.mu.Unlock()

	// a different port may still be open from an explicit Connect
	m.closeSession()
	m.settle()

	m.mu.Lock()
	m.state = StateConnecting
	m.mu.Unlock()

	p, err := m.factory.Open(port, m.opts.Port)
	if err == nil {
		if tp, ok := p.(serialport.TimeoutPorter); ok {
			if terr := tp.SetReadTimeout(m.opts.LineTimeout); terr != nil {
				m.closePort(p, port)
				err = terr
			}
		}
	}
	if err != nil {
		m.mu.Lock()
		m.state = StateIdle
		m.stats.ConnectFailures++
		m.mu.Unlock()
		logf("failed to connect to %s: %v", port, err)
		return &UnavailableError{Port: port, Err: err}
	}

	if r, ok := p.(interface{ ResetInputBuffer() error }); ok {
		if err := r.ResetInputBuffer(); err != nil {
			logf("%s: failed to reset input buffer: %v", port, err)
		}
	}

	m.mu.Lock()
	m.port = p
	m.portName = port
	m.state = StateOpen
	m.mu.Unlock()

	logf("connected to %s at %s", port, m.opts.Port)
	return nil
}

// settle waits out the remainder of SettleDelay since the last close. Reopening a
// USB serial adapter immediately after closing it frequently fails.
func (m *Manager) settle() {
	m.mu.Lock()
	last := m.lastClosed
	m.mu.Unlock()
	if last.IsZero() {
		return
	}
	if wait := m.opts.SettleDelay - m.opts.Clock.Since(last); wait > 0 {
		m.opts.Clock.Sleep(wait)
	}
}

// closeSession closes and forgets the current port, if any.
func (m *Manager) closeSession() {
	m.mu.Lock()
	p, name := m.port, m.portName
	m.port, m.portName = nil, ""
	m.state = StateIdle
	m.mu.Unlock()

	if p != nil {
		m.closePort(p, name)
	}
}

func (m *Manager) closePort(p serialport.Porter, name string) {
	if d, ok := p.(interface{ Drain() error }); ok {
		if err := d.Drain(); err != nil {
			logf("%s: failed to drain: %v", name, err)
		}
	}
	if err := p.Close(); err != nil {
		logf("%s: failed to close: %v", name, err)
	} else {
		logf("released %s", name)
	}

	m.mu.Lock()
	m.lastClosed = m.opts.Clock.Now()
	m.mu.Unlock()
}

func (m *Manager) write(p serialport.Porter, port, text string) error {
	command := text + "\n"
	n, err := p.Write([]byte(command))
	if err != nil {
		return &CommunicationFault{Port: port, Op: "write to", Err: err}
	}
	if n != len(command) {
		return &CommunicationFault{Port: port, Op: "write to", Err: errShortWrite}
	}
	return nil
}

var errShortWrite = errors.New("short write")

// collect gathers reply lines until ReadWindow elapses, or until the line has been
// quiet for LineTimeout after at least one line arrived. The window and idle timers
// run on wall time rather than opts.Clock: they have to fire while the reader
// goroutine is blocked in Read, which a manually advanced clock cannot do.
func (m *Manager) collect(p serialport.Porter, port string) ([]string, error) {
	chunks := make(chan []byte)
	readErr := make(chan error, 1)
	stop := make(chan struct{})
	defer close(stop)

	// The reader may sit in a blocking Read after collect returns; closeSession
	// runs right after and unblocks it.
	go readChunks(p, chunks, readErr, stop)

	window := time.NewTimer(m.opts.ReadWindow)
	defer window.Stop()

	var (
		buf       lineBuffer
		idle      <-chan time.Time
		collected = []string{}
	)
	for {
		select {
		case chunk := <-chunks:
			var got []string
			if len(chunk) == 0 {
				got = buf.flush(nil)
			} else {
				got = buf.split(chunk)
			}
			if len(got) > 0 {
				collected = append(collected, got...)
				idle = time.After(m.opts.LineTimeout)
			}
		case err := <-readErr:
			return collected, &CommunicationFault{Port: port, Op: "read from", Err: err}
		case <-idle:
			return buf.flush(collected), nil
		case <-window.C:
			return buf.flush(collected), nil
		}
	}
}

// pollInterval spaces out reads on ports without a read timeout that return
// (0, nil) straight away.
const pollInterval = 5 * time.Millisecond

// readChunks forwards what p returns. An empty chunk means a read came back with
// nothing, so any unterminated text can be taken as a line.
func readChunks(p serialport.Porter, chunks chan<- []byte, readErr chan<- error, stop <-chan struct{}) {
	var backoff time.Duration
	if _, ok := p.(serialport.TimeoutPorter); !ok {
		backoff = pollInterval
	}

	buf := make([]byte, 256)
	for {
		n, err := p.Read(buf)
		if n > 0 || err == nil {
			select {
			case chunks <- append([]byte(nil), buf[:n]...):
			case <-stop:
				return
			}
		}
		if err != nil {
			select {
			case readErr <- err:
			case <-stop:
			}
			return
		}
		if n == 0 && backoff > 0 {
			t := time.NewTimer(backoff)
			select {
			case <-t.C:
			case <-stop:
				t.Stop()
				return
			}
		}
	}
}

// lineBuffer splits serial output into trimmed, non-empty lines.
type lineBuffer struct {
	pending []byte
}

// split appends b and returns every complete line.
func (b *lineBuffer) split(p []byte) []string {
	b.pending = append(b.pending, p...)
	var out []string
	for {
		i := indexNewline(b.pending)
		if i < 0 {
			return out
		}
		line := strings.TrimSpace(string(b.pending[:i]))
		b.pending = b.pending[i+1:]
		if line != "" {
			out = append(out, line)
		}
	}
}

// flush appends any unterminated text to lines as a final line.
func (b *lineBuffer) flush(lines []string) []string {
	line := strings.TrimSpace(string(b.pending))
	b.pending = nil
	if line == "" {
		return lines
	}
	return append(lines, line)
}

func indexNewline(b []byte) int {
	for i, c := range b {
		if c == '\n' || c == '\r' {
			return i
		}
	}
	return -1
}

// State returns the current session state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Snapshot returns the session state without waiting for in-flight I/O.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		State:       m.state.String(),
		Port:        m.portName,
		Open:        m.port != nil,
		BaudRate:    m.opts.Port.BaudRate,
		ReadWindow:  m.opts.ReadWindow.String(),
		LineTimeout: m.opts.LineTimeout.String(),
		Stats:       m.stats,
	}
}
