package referee

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/rm-radar/radarstation/internal/geometry"
	"github.com/rm-radar/radarstation/internal/robot"
	"github.com/rm-radar/radarstation/internal/serialmux"
	"github.com/rm-radar/radarstation/internal/timeutil"
)

func TestCRC8RoundTrip(t *testing.T) {
	data := []byte{0xA5, 0x04, 0x00, 0x07}
	crc := CRC8(data)
	packet := append(append([]byte{}, data...), crc)
	require.True(t, VerifyCRC8(packet))

	packet[0] ^= 0xFF
	require.False(t, VerifyCRC8(packet))
}

func TestCRC16RoundTrip(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	crc := CRC16(data)
	packet := append(append([]byte{}, data...), byte(crc), byte(crc>>8))
	require.True(t, VerifyCRC16(packet))

	packet[3] ^= 0x01
	require.False(t, VerifyCRC16(packet))
}

func TestVerifyCRC8EmptyIsFalse(t *testing.T) {
	require.False(t, VerifyCRC8(nil))
}

func TestVerifyCRC16TooShortIsFalse(t *testing.T) {
	require.False(t, VerifyCRC16([]byte{1}))
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	f := Frame{Seq: 42, CmdID: CmdRobotHP, Data: []byte{1, 2, 3, 4}}
	wire := Encode(f)

	var got Frame
	d := newDecoder(func(frame Frame) { got = frame })
	d.feed(wire)

	require.Equal(t, f.Seq, got.Seq)
	require.Equal(t, f.CmdID, got.CmdID)
	if diff := cmp.Diff(f.Data, got.Data); diff != "" {
		t.Errorf("decoded data mismatch (-want +got):\n%s", diff)
	}
}

func TestInteractionPayloadRoundTrip(t *testing.T) {
	payload := []byte{9, 9, 9}
	data := InteractionPayload(0x0200, 101, 102, payload)
	sub, sender, receiver, got, ok := ParseInteractionPayload(data)
	require.True(t, ok)
	require.Equal(t, uint16(0x0200), sub)
	require.Equal(t, uint16(101), sender)
	require.Equal(t, uint16(102), receiver)
	require.Equal(t, payload, got)
}

func TestParseInteractionPayloadTooShort(t *testing.T) {
	_, _, _, _, ok := ParseInteractionPayload([]byte{1, 2, 3})
	require.False(t, ok)
}

func TestDecoderRecoversFromGarbageAndBadCRC(t *testing.T) {
	good := Encode(Frame{Seq: 1, CmdID: CmdGameStatus, Data: []byte{2}})

	bad := append([]byte{}, good...)
	bad[len(bad)-1] ^= 0xFF // corrupt the CRC16

	var frames []Frame
	d := newDecoder(func(f Frame) { frames = append(frames, f) })

	stream := append([]byte{0xFF, 0xFF, 0x00}, bad...)
	stream = append(stream, good...)

	d.feed(stream)
	require.Len(t, frames, 1)
	require.Equal(t, CmdGameStatus, frames[0].CmdID)
}

func TestDecoderHandlesSplitFeeds(t *testing.T) {
	wire := Encode(Frame{Seq: 3, CmdID: CmdRadarStatus, Data: []byte{1, 2, 3}})

	var got Frame
	d := newDecoder(func(f Frame) { got = f })
	mid := len(wire) / 2
	d.feed(wire[:mid])
	d.feed(wire[mid:])

	require.Equal(t, CmdRadarStatus, got.CmdID)
	require.Equal(t, []byte{1, 2, 3}, got.Data)
}

func TestCommunicatorDisconnectedWhenPortNil(t *testing.T) {
	c := New(nil)
	require.False(t, c.IsConnected())
	c.Update() // must be a no-op, not panic
}

func TestCommunicatorFetchDataDispatchesRobotHP(t *testing.T) {
	c := New(nil)
	data := make([]byte, 32)
	data[0], data[1] = 100, 0 // red[0] = 100 little-endian
	c.fetchData(Frame{CmdID: CmdRobotHP, Data: data})
	require.NotNil(t, c.Records().RobotHP)
	require.Equal(t, uint16(100), c.Records().RobotHP.Red[0])
}

func TestCommunicatorFetchDataDispatchesRobotStatus(t *testing.T) {
	c := New(nil)
	c.fetchData(Frame{CmdID: CmdRobotStatus, Data: []byte{3}})
	require.NotNil(t, c.Records().RobotStatus)
	require.Equal(t, byte(3), c.Records().RobotStatus.RobotID)
	require.True(t, c.Records().RobotStatus.IsRed)

	c.fetchData(Frame{CmdID: CmdRobotStatus, Data: []byte{3 + 100}})
	require.False(t, c.Records().RobotStatus.IsRed)
}

func TestCommunicatorOwnColorFallsBackUntilRobotStatusArrives(t *testing.T) {
	c := New(nil)
	require.True(t, c.OwnColor(true))
	require.False(t, c.OwnColor(false))

	c.fetchData(Frame{CmdID: CmdRobotStatus, Data: []byte{101}})
	require.False(t, c.OwnColor(true), "a decoded robot_status record must override the fallback")
}

func TestRobotColorSplitsLabelsIntoRedThenBlueHalves(t *testing.T) {
	const classNum = 12
	for label := 0; label < classNum/2; label++ {
		require.True(t, RobotColor(label, classNum), "label %d should be red", label)
	}
	for label := classNum / 2; label < classNum; label++ {
		require.False(t, RobotColor(label, classNum), "label %d should be blue", label)
	}
}

func TestRobotWireIDMirrorsRedAndBlueHalves(t *testing.T) {
	const classNum = 12
	require.Equal(t, uint16(1), RobotWireID(0, classNum))
	require.Equal(t, uint16(7), RobotWireID(5, classNum))
	require.Equal(t, uint16(101), RobotWireID(6, classNum))
	require.Equal(t, uint16(107), RobotWireID(11, classNum))
}

func TestRobotToMapRobotDerivesTargetAndColorFromLabel(t *testing.T) {
	r := &robot.Robot{}
	r.SetLabel(6) // first blue-half label under classNum=12
	r.SetLocation(geometry.Vec3{X: 1, Y: 2})

	mr := RobotToMapRobot(r, 12)
	require.Equal(t, uint16(101), mr.TargetRobotID)
	require.False(t, mr.IsRed)
	require.Equal(t, 1.0, mr.Location.X)
	require.Equal(t, 2.0, mr.Location.Y)
}

func TestCommunicatorSendMapRobotSkipsOwnColor(t *testing.T) {
	port := serialmux.NewTestableSerialPort()
	c := New(port)
	err := c.SendMapRobot([]MapRobot{{TargetRobotID: 1, IsRed: true}}, true)
	require.NoError(t, err)
	require.Empty(t, port.GetWrittenData())
}

func TestCommunicatorSendMapRobotSendsEnemies(t *testing.T) {
	port := serialmux.NewTestableSerialPort()
	c := New(port)
	err := c.SendMapRobot([]MapRobot{{TargetRobotID: 1, IsRed: false}}, true)
	require.NoError(t, err)
	require.NotEmpty(t, port.GetWrittenData())
}

func TestCommunicatorUpdateMarksDisconnectedOnReadError(t *testing.T) {
	port := serialmux.NewTestableSerialPort()
	port.ReadError = errors.New("simulated read failure")
	c := New(port)
	require.True(t, c.IsConnected())
	c.Update()
	require.False(t, c.IsConnected())
}

func TestConnectorMonitorTicksOnMockClock(t *testing.T) {
	port := serialmux.NewTestableSerialPort()
	conn := &Connector{Path: "/dev/mock", Communicator: New(port)}

	clock := timeutil.NewMockClock(time.Unix(0, 0))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		conn.MonitorWithClock(ctx, clock, 10*time.Millisecond)
		close(done)
	}()

	clock.Advance(10 * time.Millisecond)
	require.Eventually(t, func() bool { return port.ReadCalls > 0 }, time.Second, time.Millisecond)

	cancel()
	<-done
}

func TestCommunicatorReconnectUsesMockFactory(t *testing.T) {
	c := New(nil)
	require.False(t, c.IsConnected())

	replacement := serialmux.NewTestableSerialPort()
	factory := serialmux.NewMockSerialPortFactory(replacement)
	ok := c.Reconnect(func() (serialmux.SerialPorter, error) {
		return factory.Open("/dev/ttyUSB0", serialmux.DefaultSerialPortMode())
	})
	require.True(t, ok)
	require.True(t, c.IsConnected())
	require.NotNil(t, factory.LastCall())
}
