package session

import "time"

// CommandResult is the outcome of one Send. ClassifiedMessages is parallel to
// ResponseLines.
type CommandResult struct {
	ID                 string
	Port               string
	SentText           string
	ResponseLines      []string
	ClassifiedMessages []string
	Elapsed            time.Duration
}

// Response pairs a raw controller line with its description.
type Response struct {
	Code    string `json:"cnc_response_code"`
	Message string `json:"cnc_response_message"`
}

// NoResponse reports whether the controller stayed silent for the whole window.
func (r *CommandResult) NoResponse() bool {
	return len(r.ResponseLines) == 0
}

// Responses pairs each line with its message. A silent controller yields a single
// entry with an empty code and NoResponseMessage.
func (r *CommandResult) Responses() []Response {
	if r.NoResponse() {
		return []Response{{Code: "", Message: NoResponseMessage}}
	}
	out := make([]Response, len(r.ResponseLines))
	for i, line := range r.ResponseLines {
		out[i] = Response{Code: line, Message: r.ClassifiedMessages[i]}
	}
	return out
}
