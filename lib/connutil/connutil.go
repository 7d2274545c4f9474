package connutil

import (
	"flag"
	"log"
	"time"

	"github.com/soypat/cereal"

	"github.com/gotmc/switchbox"
	"github.com/gotmc/switchbox/lib/cmdlog"
	"github.com/gotmc/switchbox/lib/find"
)

// Conn bundles the flags and setup shared by the switchbox example programs.
type Conn struct {
	SerialPort  string
	WriteDelay  time.Duration
	StepTimeout time.Duration
	Trace       bool

	tty     string
	finderr error
}

// AddFlags is to be called before [flag.Parse].
func (c *Conn) AddFlags() {
	c.tty, c.finderr = find.Find(find.SwitchboxFilter)
	if c.finderr != nil {
		c.tty = "/dev/ttyACM0"
	}

	flag.StringVar(&c.SerialPort, "port", c.tty, "serial port for the relay switchbox")

	if c.WriteDelay == 0 {
		c.WriteDelay = switchbox.DefaultWriteDelay
	}
	if c.StepTimeout == 0 {
		c.StepTimeout = switchbox.DefaultStepTimeout
	}

	flag.DurationVar(&c.WriteDelay, "delay", c.WriteDelay, "gap between relay index writes")
	flag.DurationVar(&c.StepTimeout, "timeout", c.StepTimeout, "per-step confirmation timeout")
	flag.BoolVar(&c.Trace, "trace", c.Trace, "log every wire line")
}

// Setup is to be called after [flag.Parse]. It opens the serial port at the
// switchbox's fixed 9600 baud, connects a session, and returns it along with
// a cleanup func that clears the relay bank and releases the port.
func (c *Conn) Setup(opts []switchbox.SessionOption) (sess *switchbox.Session, cleanup func(), err error) {
	nocleanup := func() {}

	if c.finderr != nil && c.SerialPort == "/dev/ttyACM0" {
		// only print this if the port isn't overridden via flag
		log.Printf("locating switchbox failed, guessing %s: %s", c.SerialPort, c.finderr)
	}

	log.SetFlags(log.Lmicroseconds)
	log.Printf("Serial port = %s", c.SerialPort)

	cimpl := cereal.Tarm{}
	// No port read timeout: the session owns per-step timeouts and a
	// timed-out port read would starve its line reader.
	port, err := cimpl.OpenPort(c.SerialPort, cereal.Mode{
		BaudRate: 9600,
	})
	if err != nil {
		return nil, nocleanup, err
	}

	opts = append(opts,
		switchbox.WithWriteDelay(c.WriteDelay),
		switchbox.WithStepTimeout(c.StepTimeout),
	)
	if c.Trace {
		opts = append(opts, switchbox.WithTrace(cmdlog.Tracer()))
	}

	sess = switchbox.NewSession(port, opts...)
	if err := sess.Connect(); err != nil {
		port.Close()
		return nil, nocleanup, err
	}

	cleanup = func() {
		// Close resets the relay bank best-effort before releasing the
		// port, so a crashed sweep never leaves relays energized.
		if err := sess.Close(); err != nil {
			log.Printf("error closing switchbox session: %s", err)
		}
	}

	return sess, cleanup, nil
}
