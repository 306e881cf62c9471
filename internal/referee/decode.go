package referee

import "encoding/binary"

// decodeState is the receive-side state machine from §4.4.3.
type decodeState int

const (
	stateFree decodeState = iota
	stateLength
	stateCRC16
)

// decoder drives the Free/Length/CRC16 state machine over a rolling byte
// buffer, dispatching complete, CRC-verified frames to a callback. It is
// not safe for concurrent use; RefereeCommunicator serializes all access to
// it under its own mutex (§5: "within decode, the state machine is
// single-threaded").
type decoder struct {
	state      decodeState
	buf        []byte
	expectLen  int
	onFrame    func(Frame)
}

func newDecoder(onFrame func(Frame)) *decoder {
	return &decoder{onFrame: onFrame}
}

// feed appends newly read bytes and runs the state machine until it can
// make no further progress, matching §4.4.3's drop-a-byte-and-resume
// failure handling: a bad header or packet CRC never wedges the machine.
func (d *decoder) feed(data []byte) {
	d.buf = append(d.buf, data...)
	for d.step() {
	}
}

// step attempts one state transition, returning true if it consumed or
// dropped bytes (so the caller should try again) and false if it is
// blocked waiting for more input.
func (d *decoder) step() bool {
	switch d.state {
	case stateFree:
		for i, b := range d.buf {
			if b == SOF {
				d.buf = d.buf[i:]
				d.state = stateLength
				return true
			}
		}
		d.buf = d.buf[:0]
		return false

	case stateLength:
		if len(d.buf) < headerLen {
			return false
		}
		if !VerifyCRC8(d.buf[:headerLen]) {
			d.buf = d.buf[1:]
			d.state = stateFree
			return true
		}
		dataLen := binary.LittleEndian.Uint16(d.buf[1:3])
		d.expectLen = headerLen + 2 + int(dataLen) + 2
		d.state = stateCRC16
		return true

	case stateCRC16:
		if len(d.buf) < d.expectLen {
			return false
		}
		packet := d.buf[:d.expectLen]
		if !VerifyCRC16(packet) {
			d.buf = d.buf[1:]
			d.state = stateFree
			return true
		}
		cmdID := binary.LittleEndian.Uint16(packet[5:7])
		dataLen := int(binary.LittleEndian.Uint16(packet[1:3]))
		data := make([]byte, dataLen)
		copy(data, packet[7:7+dataLen])
		if d.onFrame != nil {
			d.onFrame(Frame{Seq: packet[3], CmdID: cmdID, Data: data})
		}
		d.buf = d.buf[d.expectLen:]
		d.state = stateFree
		return true
	}
	return false
}
