package serial

import (
	"errors"
	"testing"
)

func TestMatchPort(t *testing.T) {
	ports := []PortInfo{
		{Name: "/dev/ttyS0"},
		{Name: "/dev/ttyACM0", IsUSB: true, VendorID: "CAFE", ProductID: "4100"},
		{Name: "/dev/ttyACM1", IsUSB: true, VendorID: "2E8A", ProductID: "000A"},
		{Name: "/dev/ttyACM2", IsUSB: true, VendorID: "2e8a", ProductID: "000a"},
	}

	got, err := matchPort(ports, DefaultVendorID, DefaultProductID)
	if err != nil {
		t.Fatalf("matchPort failed: %v", err)
	}
	if got != "/dev/ttyACM1" {
		t.Errorf("Expected first matching port, got %s", got)
	}

	if _, err := matchPort(ports[:2], DefaultVendorID, DefaultProductID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

// The firmware enumerates with TinyGo's pico descriptors; discovery with the
// default ids has to find exactly that pair.
func TestDefaultIDsMatchFirmwareDescriptors(t *testing.T) {
	board := PortInfo{Name: "/dev/ttyACM0", IsUSB: true, VendorID: "2E8A", ProductID: "000A"}
	got, err := matchPort([]PortInfo{board}, DefaultVendorID, DefaultProductID)
	if err != nil {
		t.Fatalf("Expected the firmware's port to be found: %v", err)
	}
	if got != board.Name {
		t.Errorf("Expected %s, got %s", board.Name, got)
	}

	// Same vendor, different product: a stock pico running something else.
	other := PortInfo{Name: "/dev/ttyACM1", IsUSB: true, VendorID: "2E8A", ProductID: "0005"}
	if other.Matches(DefaultVendorID, DefaultProductID) {
		t.Error("Expected a different product id not to match")
	}
}

func TestPortInfoMatchesIgnoresNonUSB(t *testing.T) {
	p := PortInfo{Name: "COM3", VendorID: "2E8A", ProductID: "000A"}
	if p.Matches(DefaultVendorID, DefaultProductID) {
		t.Error("Expected non-USB port not to match")
	}
}
