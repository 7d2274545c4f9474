package cmdlog

import (
	"log"

	"github.com/charmbracelet/lipgloss"

	"github.com/gotmc/switchbox"
)

var (
	HostStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	DeviceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("35"))
)

// Tracer returns a trace hook that renders the wire exchange with host and
// device lines in distinct colors. Install with switchbox.WithTrace.
func Tracer() switchbox.TraceFunc {
	return func(send bool, line string) {
		if send {
			log.Printf("-> %s", HostStyle.Render(line))
		} else {
			log.Printf("<- %s", DeviceStyle.Render(line))
		}
	}
}
