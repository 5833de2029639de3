package serialport

import (
	"testing"

	"go.bug.st/serial"
)

func TestPortOptions_Normalise_Defaults(t *testing.T) {
	got, err := PortOptions{}.Normalise()
	if err != nil {
		t.Fatalf("Normalise() error = %v", err)
	}
	if got != DefaultPortOptions() {
		t.Errorf("Normalise() = %+v, want %+v", got, DefaultPortOptions())
	}
}

func TestPortOptions_Normalise_ParityAliases(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "N"},
		{"none", "N"},
		{" e ", "E"},
		{"EVEN", "E"},
		{"o", "O"},
		{"Odd", "O"},
	}
	for _, tt := range tests {
		got, err := PortOptions{Parity: tt.in}.Normalise()
		if err != nil {
			t.Fatalf("Normalise(%q) error = %v", tt.in, err)
		}
		if got.Parity != tt.want {
			t.Errorf("Normalise(%q).Parity = %q, want %q", tt.in, got.Parity, tt.want)
		}
	}
}

func TestPortOptions_Normalise_Invalid(t *testing.T) {
	tests := []struct {
		name string
		opts PortOptions
	}{
		{"negative baud", PortOptions{BaudRate: -1}},
		{"data bits too low", PortOptions{DataBits: 4}},
		{"data bits too high", PortOptions{DataBits: 9}},
		{"stop bits", PortOptions{StopBits: 3}},
		{"parity", PortOptions{Parity: "mark"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.opts.Normalise(); err == nil {
				t.Errorf("Normalise(%+v) expected error", tt.opts)
			}
		})
	}
}

func TestPortOptions_SerialMode(t *testing.T) {
	mode, err := PortOptions{BaudRate: 9600, DataBits: 7, StopBits: 2, Parity: "E"}.SerialMode()
	if err != nil {
		t.Fatalf("SerialMode() error = %v", err)
	}
	if mode.BaudRate != 9600 || mode.DataBits != 7 {
		t.Errorf("mode = %+v", mode)
	}
	if mode.StopBits != serial.TwoStopBits {
		t.Errorf("StopBits = %v, want TwoStopBits", mode.StopBits)
	}
	if mode.Parity != serial.EvenParity {
		t.Errorf("Parity = %v, want EvenParity", mode.Parity)
	}

	mode, err = DefaultPortOptions().SerialMode()
	if err != nil {
		t.Fatalf("SerialMode() error = %v", err)
	}
	if mode.BaudRate != 115200 || mode.StopBits != serial.OneStopBit || mode.Parity != serial.NoParity {
		t.Errorf("default mode = %+v", mode)
	}
}

func TestPortOptions_String(t *testing.T) {
	if got := DefaultPortOptions().String(); got != "115200 8N1" {
		t.Errorf("String() = %q, want %q", got, "115200 8N1")
	}
}

func TestRealFactory_Open_InvalidPath(t *testing.T) {
	_, err := NewRealFactory().Open("/dev/nonexistent-serial-port-12345", DefaultPortOptions())
	if err == nil {
		t.Error("expected error when opening non-existent serial port")
	}
}

func TestRealFactory_Open_InvalidOptions(t *testing.T) {
	_, err := NewRealFactory().Open("/dev/null", PortOptions{DataBits: 12})
	if err == nil {
		t.Error("expected error for invalid options")
	}
}
