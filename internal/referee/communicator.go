package referee

import (
	"encoding/binary"
	"sync"

	"github.com/rm-radar/radarstation/internal/monitoring"
	"github.com/rm-radar/radarstation/internal/robot"
	"github.com/rm-radar/radarstation/internal/serialmux"
)

// MapRobot is the minimal view SendMapRobot needs of a tracked robot: its
// wire target id, color, and field-frame location.
type MapRobot struct {
	TargetRobotID uint16
	IsRed         bool
	Location      struct{ X, Y float64 } // meters, field frame
}

// Communicator is the RefereeCommunicator: it owns the serial handle and
// the decoded Records, guarded by a single RWMutex per §5 ("a
// shared-exclusive mutex protects decoded records and the receive
// buffer"). Writes (send, decode-dispatch) take the mutex exclusively;
// reads of cached records take it shared.
type Communicator struct {
	mu sync.RWMutex

	port      serialmux.SerialPorter
	connected bool

	seq     byte
	decoder *decoder
	records Records
}

// New constructs a Communicator. If port is nil (the device failed to
// open), construction still succeeds with connected=false, matching
// §4.4.4: "on failure, is_connected = false and construction still
// succeeds."
func New(port serialmux.SerialPorter) *Communicator {
	c := &Communicator{port: port, connected: port != nil}
	c.decoder = newDecoder(c.fetchData)
	return c
}

// IsConnected reports the current connection status.
func (c *Communicator) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Reconnect attempts to reopen the serial device using opener and returns
// the new status.
func (c *Communicator) Reconnect(opener func() (serialmux.SerialPorter, error)) bool {
	port, err := opener()
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		monitoring.Logf("referee: reconnect failed: %v", err)
		c.connected = false
		return false
	}
	c.port = port
	c.connected = true
	return true
}

// Update reads any pending bytes from the serial port and feeds them
// through the decode state machine. A no-op when disconnected (§4.4.4).
func (c *Communicator) Update() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return
	}
	buf := make([]byte, 4096)
	n, err := c.port.Read(buf)
	if err != nil {
		monitoring.Logf("referee: read failed, marking disconnected: %v", err)
		c.connected = false
		return
	}
	if n == 0 {
		return
	}
	c.decoder.feed(buf[:n])
}

// fetchData replaces the referee record matching cmd with a freshly parsed
// value (§4.4.3's "fetchData(data, cmd) replaces the pointed-to referee
// record"). Called only from within decode, which is only ever driven from
// Update under the exclusive lock, so no additional locking is needed here.
func (c *Communicator) fetchData(f Frame) {
	switch f.CmdID {
	case CmdGameStatus:
		if len(f.Data) >= 1 {
			c.records.GameStatus = &GameStatus{Stage: f.Data[0]}
		}
	case CmdRobotHP:
		if len(f.Data) >= 32 {
			var hp RobotHP
			for i := 0; i < 8; i++ {
				hp.Red[i] = binary.LittleEndian.Uint16(f.Data[i*2:])
				hp.Blue[i] = binary.LittleEndian.Uint16(f.Data[16+i*2:])
			}
			c.records.RobotHP = &hp
		}
	case CmdRobotStatus:
		if len(f.Data) >= 1 {
			id := f.Data[0]
			c.records.RobotStatus = &RobotStatus{RobotID: id, IsRed: id < 100}
		}
	case CmdEventData:
		c.records.EventData = &EventData{Raw: append([]byte(nil), f.Data...)}
	case CmdRadarWarning:
		c.records.RadarWarning = &RadarWarning{Raw: append([]byte(nil), f.Data...)}
	case CmdRadarStatus:
		c.records.RadarStatus = &RadarStatus{Raw: append([]byte(nil), f.Data...)}
	case CmdRadarMarkProgress:
		c.records.RadarMarkProgress = &RadarMarkProgress{Raw: append([]byte(nil), f.Data...)}
	case CmdRadarDecision:
		c.records.RadarDecision = &RadarDecision{Raw: append([]byte(nil), f.Data...)}
	case CmdIDInteraction:
		if sub, sender, receiver, payload, ok := ParseInteractionPayload(f.Data); ok {
			c.records.SentryInteraction = &SentryInteraction{
				SubCmdID: sub, SenderID: sender, ReceiverID: receiver, Payload: payload,
			}
		}
	default:
		monitoring.Logf("referee: unrecognized cmd id 0x%04x, dropped", f.CmdID)
	}
}

// Records returns a shallow copy of the current decoded records snapshot,
// safe to read without holding any lock afterward.
func (c *Communicator) Records() Records {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.records
}

// OwnColor implements §4.4.2's "own color is derived from the latest
// robot_status record": it returns that record's color once one has
// arrived, and fallback (the station's configured/assumed alliance) until
// then.
func (c *Communicator) OwnColor(fallback bool) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.records.RobotStatus != nil {
		return c.records.RobotStatus.IsRed
	}
	return fallback
}

// clampCentimeters converts meters to the wire's uint16 centimeter field,
// clamped to [0, 65535] per §4.4.2.
func clampCentimeters(meters float64) uint16 {
	cm := meters * 100
	if cm < 0 {
		return 0
	}
	if cm > 65535 {
		return 65535
	}
	return uint16(cm)
}

// SendMapRobot implements §4.4.2: for each opposing robot with a known
// location, emits a map-position packet. "Enemy" is any robot whose color
// differs from ownColor, derived by the caller from the latest
// robot_status record (Records().RobotStatus).
func (c *Communicator) SendMapRobot(robots []MapRobot, ownIsRed bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return nil
	}
	for _, r := range robots {
		if r.IsRed == ownIsRed {
			continue // not an enemy
		}
		data := make([]byte, 6)
		binary.LittleEndian.PutUint16(data[0:2], r.TargetRobotID)
		binary.LittleEndian.PutUint16(data[2:4], clampCentimeters(r.Location.X))
		binary.LittleEndian.PutUint16(data[4:6], clampCentimeters(r.Location.Y))

		frame := Encode(Frame{Seq: c.seq, CmdID: 0x0305, Data: data})
		c.seq++
		if _, err := c.port.Write(frame); err != nil {
			monitoring.Logf("referee: send failed, marking disconnected: %v", err)
			c.connected = false
			return err
		}
	}
	return nil
}

// canonicalRobotIDs is the referee-system's fixed per-alliance robot_id
// sequence: hero, engineer, infantry x3, sentry.
var canonicalRobotIDs = [...]uint16{1, 2, 3, 4, 5, 7}

// RobotColor reports the alliance color §4.4.2 assigns to a detection label:
// the class_num-wide armor classifier lays out the red alliance's robot
// types first and the blue alliance's second, each half sized class_num/2.
func RobotColor(label, classNum int) bool {
	return label < classNum/2
}

// RobotWireID derives the referee-system robot_id for a label, following the
// same red-half/blue-half layout RobotColor uses: a blue robot's id is its
// red counterpart's id plus 100, per the referee system's published
// numbering.
func RobotWireID(label, classNum int) uint16 {
	half := classNum / 2
	idx := label
	isRed := true
	if idx >= half {
		idx -= half
		isRed = false
	}
	id := canonicalRobotIDs[idx%len(canonicalRobotIDs)]
	if !isRed {
		id += 100
	}
	return id
}

// RobotToMapRobot is the perception core's robot.Robot -> wire-facing
// MapRobot adapter, used by cmd/radarstation's main loop to build the slice
// passed to SendMapRobot. Target id and color are both derived from the
// robot's label under classNum, per §4.4.2's "robot identity-to-id mapping
// is by label and current color" — callers never set these by hand.
func RobotToMapRobot(r *robot.Robot, classNum int) MapRobot {
	mr := MapRobot{TargetRobotID: RobotWireID(r.Label, classNum), IsRed: RobotColor(r.Label, classNum)}
	mr.Location.X = r.Location.X
	mr.Location.Y = r.Location.Y
	return mr
}
