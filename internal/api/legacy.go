package api

import (
	"fmt"
	"net/http"
	"unicode/utf8"

	"github.com/banshee-data/cnc-relay/internal/gcode"
	"github.com/banshee-data/cnc-relay/internal/httputil"
)

func (s *Server) legacyPorts(w http.ResponseWriter, r *http.Request) {
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
	httputil.WriteJSONOK(w, map[string][]string{"available_ports": ports})
}

type queryResponse struct {
	sendResponse
	Input           string `json:"input"`
	Length          int    `json:"length"`
	MachineResponse string `json:"machine_response"`
}

// sendFromQuery sends ?input= to the default port, or the first enumerated port
// when none is configured.
func (s *Server) sendFromQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	input := r.URL.Query().Get("input")
	if err := gcode.ValidateInputLength(input); err != nil {
		ports, _ := s.ports.ListPorts()
		if ports == nil {
			ports = []string{}
		}
		httputil.WriteJSON(w, http.StatusBadRequest, map[string]interface{}{
			"message": err.Error(),
			"ports":   ports,
		})
		return
	}

	port := s.defaultPort
	if port == "" {
		if ports, err := s.ports.ListPorts(); err == nil && len(ports) > 0 {
			port = ports[0]
		}
	}
	if port == "" {
		httputil.ServiceUnavailable(w, "Could not connect to CNC machine: no serial port available")
		return
	}

	res, err := s.sess.Send(r.Context(), input, port)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	resp := queryResponse{
		sendResponse: newSendResponse(res),
		Input:        input,
		Length:       utf8.RuneCountInString(input),
	}
	if len(res.ResponseLines) > 0 {
		resp.MachineResponse = res.ResponseLines[0]
	}
	httputil.WriteJSONOK(w, resp)
}
