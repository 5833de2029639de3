package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/cnc-relay/internal/api"
	"github.com/banshee-data/cnc-relay/internal/relayclient"
	"github.com/banshee-data/cnc-relay/internal/serialport"
	"github.com/banshee-data/cnc-relay/internal/session"
)

// execute runs the command tree against a relay backed by the simulated
// controller and returns what it printed.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	sim := serialport.NewSimulator(nil, "COM3", "COM4")
	m := session.NewManager(sim, session.Options{
		ReadWindow:  200 * time.Millisecond,
		LineTimeout: 20 * time.Millisecond,
		SettleDelay: time.Millisecond,
	})
	ts := httptest.NewServer(api.NewServer(m, sim, "").ServeMux())
	t.Cleanup(ts.Close)

	var gotAddr string
	root := newRootCmd(func(addr string) *relayclient.Client {
		gotAddr = addr
		return relayclient.NewClient(ts.Client(), ts.URL)
	})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	if err == nil && gotAddr != "" {
		assert.Equal(t, "http://localhost:8080", gotAddr)
	}
	return out.String(), err
}

func TestSendCommand(t *testing.T) {
	out, err := execute(t, "send", "--port", "COM3", "G01", "X10", "Y10", "F1000")
	require.NoError(t, err)
	assert.Contains(t, out, "G01 X10 Y10 F1000\n")
	assert.Contains(t, out, "Command executed successfully.")
}

func TestSendCommand_ControllerError(t *testing.T) {
	out, err := execute(t, "send", "-p", "COM3", "#1=5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error:1")
	assert.Contains(t, out, "G-code words consist of a letter and a value. Letter was not found.")
}

func TestSendCommand_RequiresPort(t *testing.T) {
	_, err := execute(t, "send", "G0", "X1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"port" not set`)
}

func TestSendCommand_UnknownPort(t *testing.T) {
	_, err := execute(t, "send", "-p", "COM9", "G0", "X1")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "503"), err.Error())
}

func TestShapeCommand(t *testing.T) {
	out, err := execute(t, "shape", "square", "-p", "COM4", "--size", "3", "--feed", "200")
	require.NoError(t, err)
	assert.Contains(t, out, "G1 X3 Y0 F200\n")
	assert.Equal(t, 7, strings.Count(out, "Command executed successfully."))
}

func TestShapeCommand_UnknownShape(t *testing.T) {
	_, err := execute(t, "shape", "hexagon", "-p", "COM3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown shape")
}

func TestListAndReleaseCommands(t *testing.T) {
	out, err := execute(t, "list")
	require.NoError(t, err)
	assert.Equal(t, "COM3\nCOM4\n", out)

	out, err = execute(t, "release")
	require.NoError(t, err)
	assert.Equal(t, "Serial port released\n", out)
}
