package serialport

import (
	"fmt"
	"sort"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// PortDetails is what the OS enumerator knows about a device.
type PortDetails struct {
	Name         string `json:"name"`
	IsUSB        bool   `json:"is_usb"`
	VID          string `json:"vid,omitempty"`
	PID          string `json:"pid,omitempty"`
	SerialNumber string `json:"serial_number,omitempty"`
	Product      string `json:"product,omitempty"`
}

// Lister enumerates serial devices. Implementations hold no session state and are
// safe for concurrent use.
type Lister interface {
	ListPorts() ([]string, error)
	DetailedPorts() ([]PortDetails, error)
}

// SystemLister queries the operating system's device registry.
type SystemLister struct{}

// ListPorts returns the sorted names of the serial devices currently present. An
// empty, non-nil slice means no devices.
func (SystemLister) ListPorts() ([]string, error) {
	names, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	ports := make([]string, 0, len(names))
	ports = append(ports, names...)
	sort.Strings(ports)
	return ports, nil
}

// DetailedPorts returns USB metadata alongside each device name.
func (SystemLister) DetailedPorts() ([]PortDetails, error) {
	list, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("enumerate serial ports: %w", err)
	}
	details := make([]PortDetails, 0, len(list))
	for _, p := range list {
		details = append(details, PortDetails{
			Name:         p.Name,
			IsUSB:        p.IsUSB,
			VID:          p.VID,
			PID:          p.PID,
			SerialNumber: p.SerialNumber,
			Product:      p.Product,
		})
	}
	sort.Slice(details, func(i, j int) bool { return details[i].Name < details[j].Name })
	return details, nil
}
