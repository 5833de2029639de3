package session

import "maps"

const (
	// NoResponseMessage describes a command the controller never answered.
	NoResponseMessage = "No response received from CNC machine."

	unrecognizedPrefix = "Unrecognized response: "
)

// grblCodes maps GRBL 1.1 response strings to their descriptions.
var grblCodes = map[string]string{
	"ok": "Command executed successfully.",

	"error:1":  "G-code words consist of a letter and a value. Letter was not found.",
	"error:2":  "Numeric value format is not valid or missing an expected value.",
	"error:3":  "Grbl '$' system command was not recognized or supported.",
	"error:4":  "Negative value received for an expected positive value.",
	"error:5":  "Homing cycle is not enabled via settings.",
	"error:6":  "Minimum step pulse time must be greater than 3usec.",
	"error:7":  "EEPROM read failed. Reset and restored to default values.",
	"error:8":  "Grbl '$' command cannot be used unless Grbl is IDLE.",
	"error:9":  "G-code locked out during alarm or jog state.",
	"error:10": "Soft limits cannot be enabled without homing also enabled.",
	"error:11": "Max characters per line exceeded. Line was not processed and executed.",
	"error:12": "Grbl '$' setting value exceeds the maximum step rate supported.",
	"error:13": "Safety door detected as opened and door state initiated.",
	"error:14": "Build info or startup line exceeded EEPROM line length limit.",
	"error:15": "Jog target exceeds machine travel. Command ignored.",
	"error:16": "Jog command with no '=' or contains prohibited g-code.",
	"error:17": "Laser mode requires PWM output.",
	"error:20": "Unsupported or invalid g-code command found in block.",
	"error:21": "More than one g-code command from same modal group found in block.",
	"error:22": "Feed rate has not yet been set or is undefined.",
	"error:23": "G-code command in block requires an integer value.",
	"error:24": "Two G-code commands that both require the use of the XYZ axis words were detected in the block.",
	"error:25": "A G-code word was repeated in the block.",
	"error:26": "A G-code command implicitly or explicitly requires XYZ axis words in the block, but none were detected.",
	"error:27": "N line number value is not within the valid range of 1 - 9,999,999.",
	"error:28": "A G-code command was sent, but is missing some required P or L value words in the line.",
	"error:29": "Grbl supports six work coordinate systems G54-G59. G59.1, G59.2, and G59.3 are not supported.",
	"error:30": "The G53 G-code command requires either a G0 seek or G1 feed motion mode to be active.",
	"error:31": "There are unused axis words in the block and G80 motion mode cancel is active.",
	"error:32": "A G2 or G3 arc was commanded but there are no XYZ axis words in the selected plane to trace the arc.",
	"error:33": "The motion command has an invalid target.",
	"error:34": "A G2 or G3 arc, traced with the radius definition, had a mathematical error when computing the arc geometry.",
	"error:35": "A G2 or G3 arc, traced with the offset definition, is missing the IJK offset word in the selected plane.",
	"error:36": "There are unused, leftover G-code words that aren't used by any command in the block.",
	"error:37": "The G43.1 dynamic tool length offset command cannot apply an offset to an axis other than its configured axis.",
	"error:38": "Tool number greater than max supported value.",

	"ALARM:1": "Hard limit triggered. Machine position is likely lost. Re-homing is highly recommended.",
	"ALARM:2": "G-code motion target exceeds machine travel. Machine position safely retained.",
	"ALARM:3": "Reset while in motion. Lost steps are likely. Re-homing is highly recommended.",
	"ALARM:4": "Probe fail. The probe is not in the expected initial state before starting probe cycle.",
	"ALARM:5": "Probe fail. Probe did not contact the workpiece within the programmed travel.",
	"ALARM:6": "Homing fail. Reset during active homing cycle.",
	"ALARM:7": "Homing fail. Safety door was opened during active homing cycle.",
	"ALARM:8": "Homing fail. Cycle failed to clear limit switch when pulling off.",
	"ALARM:9": "Homing fail. Could not find limit switch within search distance.",
}

// ResponseTable classifies raw controller lines. It is immutable once built and
// safe for concurrent use.
type ResponseTable struct {
	codes map[string]string
}

// NewResponseTable builds a table from the GRBL defaults with overrides layered on
// top. The overrides map is copied.
func NewResponseTable(overrides map[string]string) *ResponseTable {
	codes := maps.Clone(grblCodes)
	for k, v := range overrides {
		if k == "" || v == "" {
			continue
		}
		codes[k] = v
	}
	return &ResponseTable{codes: codes}
}

// DefaultResponseTable returns the GRBL table without overrides.
func DefaultResponseTable() *ResponseTable {
	return NewResponseTable(nil)
}

// Lookup returns the description for raw if the table knows it.
func (t *ResponseTable) Lookup(raw string) (string, bool) {
	msg, ok := t.codes[raw]
	return msg, ok
}

// Classify returns the description for raw, or "Unrecognized response: <raw>".
func (t *ResponseTable) Classify(raw string) string {
	if msg, ok := t.codes[raw]; ok {
		return msg
	}
	return unrecognizedPrefix + raw
}

// Len returns the number of known codes.
func (t *ResponseTable) Len() int {
	return len(t.codes)
}
