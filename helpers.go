package serialdiag

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	gobug "go.bug.st/serial"
)

// PortInfo describes a serial port found on the host.
type PortInfo struct {
	Name         string `json:"name"`
	IsUSB        bool   `json:"is_usb"`
	VID          string `json:"vid,omitempty"`
	PID          string `json:"pid,omitempty"`
	SerialNumber string `json:"serial_number,omitempty"`
	Product      string `json:"product,omitempty"`
}

// AvailablePorts lists the names of the serial ports present on the host.
func AvailablePorts() ([]string, error) {
	ports, err := getPortsList()
	if err != nil {
		return nil, err
	}
	return ports, nil
}

// DetailedPorts lists the serial ports present on the host along with any
// USB identification the OS exposes.
func DetailedPorts() ([]PortInfo, error) {
	details, err := getDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("enumerating ports: %w", err)
	}
	ports := make([]PortInfo, 0, len(details))
	for _, d := range details {
		if d == nil {
			continue
		}
		ports = append(ports, PortInfo{
			Name:         d.Name,
			IsUSB:        d.IsUSB,
			VID:          d.VID,
			PID:          d.PID,
			SerialNumber: d.SerialNumber,
			Product:      d.Product,
		})
	}
	return ports, nil
}

func validatePortName(portName string) error {
	if strings.TrimSpace(portName) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidPortName)
	}
	// Security: Prevent path traversal attacks
	if strings.Contains(portName, "..") {
		return fmt.Errorf("%w: contains path traversal", ErrInvalidPortName)
	}
	return nil
}

// classifyOpenError maps a driver open failure onto ErrPortNotFound or
// ErrPortUnavailable, keeping the cause in the chain.
func classifyOpenError(portName string, err error) error {
	if isNotFound(err) {
		return fmt.Errorf("%w: %s: %w", ErrPortNotFound, portName, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrPortUnavailable, portName, err)
}

func isNotFound(err error) bool {
	var pe *gobug.PortError
	if errors.As(err, &pe) {
		return pe.Code() == gobug.PortNotFound
	}
	return errors.Is(err, fs.ErrNotExist)
}
