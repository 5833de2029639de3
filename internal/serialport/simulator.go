package serialport

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Responder computes the lines a simulated controller emits for one command line.
type Responder func(line string) []string

// GRBLResponder answers like a GRBL 1.1 controller in idle state: "ok" for anything
// that looks like a G-code word or a $ system command, error:1 for lines that do not
// start with a letter, and a status report for the "?" realtime query.
func GRBLResponder(line string) []string {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return []string{"ok"}
	case line == "?":
		return []string{"<Idle|MPos:0.000,0.000,0.000|FS:0,0>"}
	case line == "$X":
		return []string{"[MSG:Caution: Unlocked]", "ok"}
	case strings.HasPrefix(line, "$"):
		return []string{"ok"}
	}
	c := line[0]
	if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') {
		return []string{"ok"}
	}
	return []string{"error:1"}
}

// Simulator is an in-process stand-in for a CNC controller. It implements both
// Factory and Lister so the whole relay can run without hardware.
type Simulator struct {
	mu        sync.Mutex
	ports     map[string]bool
	respond   Responder
	latency   time.Duration
	openPorts map[string]*TestablePort
}

// NewSimulator returns a simulator exposing the given port names.
func NewSimulator(respond Responder, ports ...string) *Simulator {
	if respond == nil {
		respond = GRBLResponder
	}
	s := &Simulator{
		ports:     make(map[string]bool, len(ports)),
		respond:   respond,
		openPorts: make(map[string]*TestablePort),
	}
	for _, p := range ports {
		s.ports[p] = true
	}
	return s
}

// SetLatency delays every reply by d.
func (s *Simulator) SetLatency(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latency = d
}

// ListPorts returns the simulated port names.
func (s *Simulator) ListPorts() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.ports))
	for name := range s.ports {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// DetailedPorts returns the simulated ports flagged as non-USB.
func (s *Simulator) DetailedPorts() ([]PortDetails, error) {
	names, _ := s.ListPorts()
	details := make([]PortDetails, 0, len(names))
	for _, name := range names {
		details = append(details, PortDetails{Name: name, Product: "simulated controller"})
	}
	return details, nil
}

// Open connects to a simulated port. Unknown names fail the way a missing device
// would, and a port can only be held open once.
func (s *Simulator) Open(path string, opts PortOptions) (Porter, error) {
	if _, err := opts.Normalise(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ports[path] {
		return nil, fmt.Errorf("open %s: no such file or directory", path)
	}
	if p, ok := s.openPorts[path]; ok && !p.Closed() {
		return nil, fmt.Errorf("open %s: device or resource busy", path)
	}

	port := NewTestablePort()
	var pending strings.Builder
	port.OnWrite = func(b []byte) {
		pending.Write(b)
		buf := pending.String()
		i := strings.LastIndexByte(buf, '\n')
		if i < 0 {
			return
		}
		pending.Reset()
		pending.WriteString(buf[i+1:])

		var out []string
		for _, line := range strings.Split(buf[:i], "\n") {
			out = append(out, s.respond(strings.TrimRight(line, "\r"))...)
		}
		s.reply(port, out)
	}
	s.openPorts[path] = port
	return port, nil
}

func (s *Simulator) reply(port *TestablePort, out []string) {
	if len(out) == 0 {
		return
	}
	s.mu.Lock()
	latency := s.latency
	s.mu.Unlock()

	data := []byte(strings.Join(out, "\r\n") + "\r\n")
	if latency <= 0 {
		port.AddReadData(data)
		return
	}
	time.AfterFunc(latency, func() { port.AddReadData(data) })
}
