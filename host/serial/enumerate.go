//go:build !wasm

package serial

import (
	"errors"
	"fmt"
	"strings"

	"go.bug.st/serial/enumerator"
)

// USB ids of the lamp controller. The firmware's CDC port uses TinyGo's
// pico descriptors, so these are the Raspberry Pi vendor id and TinyGo's
// pico product id.
const (
	DefaultVendorID  uint16 = 0x2E8A
	DefaultProductID uint16 = 0x000A
)

// ErrNotFound is returned by FindDevice when no port matches.
var ErrNotFound = errors.New("serial: lamp controller not found")

// PortInfo describes one serial port on the host.
type PortInfo struct {
	Name      string
	IsUSB     bool
	VendorID  string
	ProductID string
	Serial    string
	Product   string
}

// Matches reports whether p is a USB port with the given ids.
func (p PortInfo) Matches(vid, pid uint16) bool {
	return p.IsUSB &&
		strings.EqualFold(p.VendorID, fmt.Sprintf("%04x", vid)) &&
		strings.EqualFold(p.ProductID, fmt.Sprintf("%04x", pid))
}

// ListPorts returns every serial port the OS reports.
func ListPorts() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("enumerate serial ports: %w", err)
	}
	ports := make([]PortInfo, 0, len(details))
	for _, d := range details {
		ports = append(ports, PortInfo{
			Name:      d.Name,
			IsUSB:     d.IsUSB,
			VendorID:  d.VID,
			ProductID: d.PID,
			Serial:    d.SerialNumber,
			Product:   d.Product,
		})
	}
	return ports, nil
}

// FindDevice returns the path of the first port with the given USB ids.
func FindDevice(vid, pid uint16) (string, error) {
	ports, err := ListPorts()
	if err != nil {
		return "", err
	}
	return matchPort(ports, vid, pid)
}

func matchPort(ports []PortInfo, vid, pid uint16) (string, error) {
	for _, p := range ports {
		if p.Matches(vid, pid) {
			return p.Name, nil
		}
	}
	return "", fmt.Errorf("%w (usb %04x:%04x)", ErrNotFound, vid, pid)
}
