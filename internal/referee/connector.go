package referee

import (
	"context"
	"time"

	"go.bug.st/serial"

	"github.com/rm-radar/radarstation/internal/monitoring"
	"github.com/rm-radar/radarstation/internal/serialmux"
	"github.com/rm-radar/radarstation/internal/timeutil"
)

// DefaultBaudRate is the referee system's standard link speed.
const DefaultBaudRate = 115200

// OpenPort opens the referee serial device, grounded on the same
// go.bug.st/serial.Open call the teacher's internal/serialmux/factory.go
// and radar/serial.go both use for their own framed link.
func OpenPort(path string) (serialmux.SerialPorter, error) {
	mode := &serial.Mode{BaudRate: DefaultBaudRate, DataBits: 8, Parity: serial.NoParity, StopBits: serial.OneStopBit}
	return serial.Open(path, mode)
}

// Connector owns a Communicator plus the path used to (re)open it,
// implementing §4.4.4's construction/reconnect lifecycle in terms of
// OpenPort.
type Connector struct {
	Path string
	*Communicator
}

// Connect opens the referee serial device at path, returning a Connector
// whose Communicator reports connected=false (but is still usable) if the
// open fails.
func Connect(path string) *Connector {
	port, err := OpenPort(path)
	if err != nil {
		monitoring.Logf("referee: failed to open %s: %v", path, err)
		c := New(nil)
		return &Connector{Path: path, Communicator: c}
	}
	return &Connector{Path: path, Communicator: New(port)}
}

// Reconnect attempts to reopen the device at c.Path.
func (c *Connector) Reconnect() bool {
	return c.Communicator.Reconnect(func() (serialmux.SerialPorter, error) {
		return OpenPort(c.Path)
	})
}

// Monitor runs Update on a fixed interval until ctx is canceled, matching
// the teacher's internal/serialmux.Monitor goroutine+channel decoupling
// idiom generalized to a polling read instead of a line scanner: the
// referee link isn't line-oriented, so there's no bufio.Scanner to
// decouple, just a read call that can block for the interval's duration.
// It ticks via timeutil.Clock rather than the time package directly, so a
// test can inject a fake clock instead of sleeping in real time.
func (c *Connector) Monitor(ctx context.Context, interval time.Duration) {
	c.MonitorWithClock(ctx, timeutil.RealClock{}, interval)
}

// MonitorWithClock is Monitor with an injectable clock, for tests.
func (c *Connector) MonitorWithClock(ctx context.Context, clock timeutil.Clock, interval time.Duration) {
	ticker := clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			c.Update()
		}
	}
}
