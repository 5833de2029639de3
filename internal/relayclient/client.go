// Package relayclient talks to a running cnc-relay over HTTP.
package relayclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/cnc-relay/internal/gcode"
	"github.com/banshee-data/cnc-relay/internal/httputil"
	"github.com/banshee-data/cnc-relay/internal/session"
)

// StatusError is a non-200 reply from the relay.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("relay returned %d: %s", e.StatusCode, e.Message)
}

// IsConflict reports whether err is the relay refusing a command because the
// serial port is busy.
func IsConflict(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusConflict
}

// SendResult is the relay's reply to a command.
type SendResult struct {
	RequestID    string             `json:"request_id"`
	Port         string             `json:"port"`
	Message      string             `json:"message"`
	SentGCode    string             `json:"sent_gcode"`
	CNCResponses []session.Response `json:"cnc_responses"`
}

// Rejected returns the first error or alarm line in the reply, if any.
func (r *SendResult) Rejected() (session.Response, bool) {
	for _, resp := range r.CNCResponses {
		if strings.HasPrefix(resp.Code, "error:") || strings.HasPrefix(resp.Code, "ALARM:") {
			return resp, true
		}
	}
	return session.Response{}, false
}

// Client provides HTTP operations against the relay endpoints.
type Client struct {
	HTTPClient httputil.HTTPClient
	BaseURL    string
}

// NewClient creates a new relay client. A nil httpClient gets a 30s timeout.
func NewClient(httpClient httputil.HTTPClient, baseURL string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		HTTPClient: httpClient,
		BaseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Ports lists the serial ports the relay can see.
func (c *Client) Ports(ctx context.Context) ([]string, error) {
	var ports []string
	if err := c.do(ctx, http.MethodGet, "/ports", nil, &ports); err != nil {
		return nil, err
	}
	return ports, nil
}

// Send relays one command to port.
func (c *Client) Send(ctx context.Context, text, port string) (*SendResult, error) {
	payload, err := json.Marshal(map[string]string{"text": text, "port": port})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}
	var res SendResult
	if err := c.do(ctx, http.MethodPost, "/send", payload, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Release asks the relay to close its serial port and returns the relay's message.
func (c *Client) Release(ctx context.Context) (string, error) {
	var body struct {
		Message string `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, "/release", nil, &body); err != nil {
		return "", err
	}
	return body.Message, nil
}

// Shape fetches a demonstration program from the relay. Zero size or feed leaves
// the choice to the relay.
func (c *Client) Shape(ctx context.Context, name string, size, feed float64) (gcode.Program, error) {
	q := url.Values{"name": {name}}
	if size != 0 {
		q.Set("size", strconv.FormatFloat(size, 'f', -1, 64))
	}
	if feed != 0 {
		q.Set("feed", strconv.FormatFloat(feed, 'f', -1, 64))
	}
	var prog gcode.Program
	if err := c.do(ctx, http.MethodGet, "/shapes?"+q.Encode(), nil, &prog); err != nil {
		return gcode.Program{}, err
	}
	return prog, nil
}

// Run sends lines to port one at a time, calling onResult after each. It stops at
// the first transport failure or controller error or alarm.
func (c *Client) Run(ctx context.Context, lines []string, port string, onResult func(*SendResult)) error {
	for i, line := range lines {
		res, err := c.Send(ctx, line, port)
		if err != nil {
			return fmt.Errorf("line %d (%q): %w", i+1, line, err)
		}
		if onResult != nil {
			onResult(res)
		}
		if resp, bad := res.Rejected(); bad {
			return fmt.Errorf("line %d (%q): controller replied %s: %s", i+1, line, resp.Code, resp.Message)
		}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, out interface{}) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &e) == nil {
			if e.Error != "" {
				msg = e.Error
			} else if e.Message != "" {
				msg = e.Message
			}
		}
		return &StatusError{StatusCode: resp.StatusCode, Message: msg}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
