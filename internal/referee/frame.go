package referee

import "encoding/binary"

// SOF is the fixed start-of-frame byte.
const SOF byte = 0xA5

// headerLen is the SOF+DataLen+Seq+CRC8 header, the span CRC8 covers.
const headerLen = 5

// CmdIDInteraction is the interaction subcommand wrapper command id
// (§4.4.1): its Data further wraps SubCmdID/SenderID/ReceiverID/Payload.
const CmdIDInteraction uint16 = 0x0301

// Frame is a decoded packet: SOF | DataLen | Seq | CRC8 | CmdID | Data | CRC16.
type Frame struct {
	Seq   byte
	CmdID uint16
	Data  []byte
}

// Encode serializes f into the wire format, computing both CRCs.
func Encode(f Frame) []byte {
	total := headerLen + 2 + len(f.Data) + 2
	buf := make([]byte, total)
	buf[0] = SOF
	binary.LittleEndian.PutUint16(buf[1:3], uint16(len(f.Data)))
	buf[3] = f.Seq
	buf[4] = CRC8(buf[:4])
	binary.LittleEndian.PutUint16(buf[5:7], f.CmdID)
	copy(buf[7:7+len(f.Data)], f.Data)
	crc16 := CRC16(buf[:total-2])
	binary.LittleEndian.PutUint16(buf[total-2:], crc16)
	return buf
}

// InteractionPayload builds the Data for the interaction subcommand
// (CmdID 0x0301): SubCmdID | SenderID | ReceiverID | Payload.
func InteractionPayload(subCmdID, senderID, receiverID uint16, payload []byte) []byte {
	buf := make([]byte, 6+len(payload))
	binary.LittleEndian.PutUint16(buf[0:2], subCmdID)
	binary.LittleEndian.PutUint16(buf[2:4], senderID)
	binary.LittleEndian.PutUint16(buf[4:6], receiverID)
	copy(buf[6:], payload)
	return buf
}

// ParseInteractionPayload splits an interaction Data blob back into its
// fields. ok is false if data is shorter than the 6-byte wrapper.
func ParseInteractionPayload(data []byte) (subCmdID, senderID, receiverID uint16, payload []byte, ok bool) {
	if len(data) < 6 {
		return 0, 0, 0, nil, false
	}
	subCmdID = binary.LittleEndian.Uint16(data[0:2])
	senderID = binary.LittleEndian.Uint16(data[2:4])
	receiverID = binary.LittleEndian.Uint16(data[4:6])
	return subCmdID, senderID, receiverID, data[6:], true
}
