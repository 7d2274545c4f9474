package find

import (
	"fmt"
	"strings"

	"go.bug.st/serial/enumerator"

	"github.com/gotmc/switchbox"
)

// FilterFn narrows the enumerated serial ports down to the device wanted.
type FilterFn func(*enumerator.PortDetails) bool

// SwitchboxFilter matches the relay switchbox microcontroller, an
// Arduino-class board enumerating as USB VID:PID 2341:0042.
func SwitchboxFilter(p *enumerator.PortDetails) bool {
	return VIDPIDFilter("2341", "0042")(p)
}

// VIDPIDFilter matches any USB serial device with the given hex vendor and
// product IDs. Comparison is case-insensitive.
func VIDPIDFilter(vid, pid string) FilterFn {
	return func(p *enumerator.PortDetails) bool {
		return p.IsUSB &&
			strings.EqualFold(p.VID, vid) &&
			strings.EqualFold(p.PID, pid)
	}
}

// SerialNumberFilter matches a specific board when more than one switchbox
// is plugged in.
func SerialNumberFilter(sn string) FilterFn {
	return func(p *enumerator.PortDetails) bool {
		return p.IsUSB && p.SerialNumber == sn
	}
}

// Find searches the system's serial ports for a device. If filter is not
// nil, the first port for which it returns true (if any) is chosen;
// otherwise the first enumerated port wins. Returns the port name, or an
// error wrapping switchbox.ErrDeviceNotFound when nothing matches.
func Find(filter FilterFn) (string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return "", fmt.Errorf("enumerating serial ports: %w", err)
	}
	for _, p := range ports {
		if filter == nil || filter(p) {
			return p.Name, nil
		}
	}

	return "", fmt.Errorf("scanned %d serial ports: %w",
		len(ports), switchbox.ErrDeviceNotFound)
}
