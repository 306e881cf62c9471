package referee

// Command ids for the referee records this core tracks, fixed by the
// referee-system wire specification.
const (
	CmdGameStatus        uint16 = 0x0001
	CmdRobotHP           uint16 = 0x0003
	CmdRobotStatus       uint16 = 0x0201
	CmdEventData         uint16 = 0x0101
	CmdRadarWarning      uint16 = 0x0109
	CmdRadarStatus       uint16 = 0x020E
	CmdRadarMarkProgress uint16 = 0x020C
	CmdRadarDecision     uint16 = 0x020F
	// CmdIDInteraction (sentry interaction) is defined in frame.go.
)

// GameStatus is a minimal decode of the 0x0001 game status record: only the
// first data byte, kept as Stage. Own color comes from RobotStatus instead.
type GameStatus struct {
	Stage byte
}

// RobotHP holds the latest robot HP snapshot (0x0003); Red/Blue indexed by
// robot number, raw from the wire.
type RobotHP struct {
	Red  [8]uint16
	Blue [8]uint16
}

// RobotStatus is a minimal decode of the 0x0201 robot status record: just
// enough of the wire robot_id field to derive this station's own alliance
// color, from which §4.4.2's "enemy" is derived. The referee system assigns
// red robots ids in [1, 100) and blue robots ids in [100, 200).
type RobotStatus struct {
	RobotID byte
	IsRed   bool
}

// EventData is an opaque decode of 0x0101: field events, not further
// interpreted by this core.
type EventData struct {
	Raw []byte
}

// RadarWarning is an opaque decode of 0x0109.
type RadarWarning struct {
	Raw []byte
}

// RadarStatus is an opaque decode of 0x020E: double-vulnerability-chance
// counters on the wire referee spec, not interpreted further here.
type RadarStatus struct {
	Raw []byte
}

// RadarMarkProgress is an opaque decode of 0x020C.
type RadarMarkProgress struct {
	Raw []byte
}

// RadarDecision is an opaque decode of 0x020F.
type RadarDecision struct {
	Raw []byte
}

// SentryInteraction is the decoded payload of an inbound interaction frame
// (CmdID 0x0301) addressed to the radar/sentry.
type SentryInteraction struct {
	SubCmdID   uint16
	SenderID   uint16
	ReceiverID uint16
	Payload    []byte
}

// Records is the referee state (§3): a collection of decoded protocol
// snapshots, each replaced in place (pointer swap) when a matching packet
// arrives. Readers see the latest value under a shared lock; see
// Communicator for the owning mutex.
type Records struct {
	GameStatus        *GameStatus
	RobotHP           *RobotHP
	RobotStatus       *RobotStatus
	EventData         *EventData
	RadarWarning      *RadarWarning
	RadarStatus       *RadarStatus
	RadarMarkProgress *RadarMarkProgress
	RadarDecision     *RadarDecision
	SentryInteraction *SentryInteraction
}
