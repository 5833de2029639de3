package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/banshee-data/cnc-relay/internal/gcode"
	"github.com/banshee-data/cnc-relay/internal/httputil"
	"github.com/banshee-data/cnc-relay/internal/session"
	"github.com/banshee-data/cnc-relay/internal/version"
)

// SentMessage is the message returned with every relayed command.
const SentMessage = "GCode sent successfully"

type sendRequest struct {
	Text string `json:"text"`
	Port string `json:"port"`
}

type sendResponse struct {
	RequestID    string             `json:"request_id"`
	Port         string             `json:"port"`
	Message      string             `json:"message"`
	SentGCode    string             `json:"sent_gcode"`
	CNCResponses []session.Response `json:"cnc_responses"`
}

func newSendResponse(res *session.CommandResult) sendResponse {
	return sendResponse{
		RequestID:    res.ID,
		Port:         res.Port,
		Message:      SentMessage,
		SentGCode:    res.SentText,
		CNCResponses: res.Responses(),
	}
}

type statusResponse struct {
	session.Snapshot
	Version   string `json:"version"`
	GitSHA    string `json:"git_sha"`
	BuildTime string `json:"build_time"`
}

// writeSessionError maps a session error onto its HTTP status.
func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrValidation):
		httputil.BadRequest(w, err.Error())
	case errors.Is(err, session.ErrConflict):
		httputil.Conflict(w, err.Error())
	case errors.Is(err, session.ErrUnavailable):
		httputil.ServiceUnavailable(w, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		httputil.ServiceUnavailable(w, fmt.Sprintf("request abandoned: %v", err))
	default:
		httputil.InternalServerError(w, fmt.Sprintf("Failed to send GCode: %v", err))
	}
}

func (s *Server) listPorts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	ports, err := s.ports.ListPorts()
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to list serial ports: %v", err))
		return
	}
	if ports == nil {
		ports = []string{}
	}
	httputil.WriteJSONOK(w, ports)
}

func (s *Server) portDetails(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	details, err := s.ports.DetailedPorts()
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to list serial ports: %v", err))
		return
	}
	httputil.WriteJSONOK(w, details)
}

func (s *Server) sendHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	var req sendRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	res, err := s.sess.Send(r.Context(), req.Text, req.Port)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	httputil.WriteJSONOK(w, newSendResponse(res))
}

// releaseHandler always answers 200; the message says whether the port was
// actually released or the wait for an active command ran out.
func (s *Server) releaseHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.releaseTimeout)
	defer cancel()

	msg := "Serial port released"
	if err := s.sess.Release(ctx); err != nil {
		logf("release did not complete: %v", err)
		msg = fmt.Sprintf("Serial port still in use by an active command: %v", err)
	}
	httputil.WriteJSONOK(w, map[string]string{"message": msg})
}

func (s *Server) showStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, statusResponse{
		Snapshot:  s.sess.Snapshot(),
		Version:   version.Version,
		GitSHA:    version.GitSHA,
		BuildTime: version.BuildTime,
	})
}

func (s *Server) showShape(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	q := r.URL.Query()
	size, err := parseFloatParam(q.Get("size"))
	if err != nil {
		httputil.BadRequest(w, "Invalid 'size' parameter")
		return
	}
	feed, err := parseFloatParam(q.Get("feed"))
	if err != nil {
		httputil.BadRequest(w, "Invalid 'feed' parameter")
		return
	}

	prog, err := gcode.Shape(q.Get("name"), size, feed)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, prog)
}

// parseFloatParam returns 0 for an empty value so the shape defaults apply.
func parseFloatParam(v string) (float64, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.ParseFloat(v, 64)
}
