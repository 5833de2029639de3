package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/banshee-data/cnc-relay/internal/serialport"
	"github.com/banshee-data/cnc-relay/internal/session"
)

// newSimulatedServer wires a real Manager to a simulated controller.
func newSimulatedServer(t *testing.T, respond serialport.Responder, ports ...string) (*Server, *session.Manager, http.Handler) {
	t.Helper()
	sim := serialport.NewSimulator(respond, ports...)
	m := session.NewManager(sim, session.Options{
		ReadWindow:  200 * time.Millisecond,
		LineTimeout: 20 * time.Millisecond,
		SettleDelay: time.Millisecond,
	})
	s := NewServer(m, sim, "")
	return s, m, s.ServeMux()
}

type fakeSession struct {
	mu         sync.Mutex
	result     *session.CommandResult
	sendErr    error
	releaseErr error
	snap       session.Snapshot
	sent       [][2]string
	releases   int
}

func (f *fakeSession) Send(ctx context.Context, text, port string) (*session.CommandResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, [2]string{text, port})
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return f.result, nil
}

func (f *fakeSession) Release(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releases++
	return f.releaseErr
}

func (f *fakeSession) Snapshot() session.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

type fakeLister struct {
	ports []string
	err   error
}

func (l fakeLister) ListPorts() ([]string, error) { return l.ports, l.err }

func (l fakeLister) DetailedPorts() ([]serialport.PortDetails, error) {
	if l.err != nil {
		return nil, l.err
	}
	out := make([]serialport.PortDetails, 0, len(l.ports))
	for _, p := range l.ports {
		out = append(out, serialport.PortDetails{Name: p})
	}
	return out, nil
}

var errEnumerate = errors.New("udev unavailable")
