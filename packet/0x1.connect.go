package packet

import (
	"bytes"
	"io"
)

// protoName is the fixed six-byte MQTT protocol name field (§3.1.2.1).
var protoName = []byte{0x00, 0x04, 'M', 'Q', 'T', 'T'}

// Will is the payload-carried last-will-and-testament of a CONNECT.
type Will struct {
	Topic      string
	Payload    []byte
	QoS        uint8
	Retain     bool
	Properties *Properties // v5.0 only
}

// CONNECT is the first packet a client sends on a fresh network
// connection (§3.1). A client may send it exactly once per connection;
// the state machine enforces that (the endpoint's sendConnect rejects a
// second CONNECT with a ProtocolError; the codec cannot, since it needs
// connection phase).
type CONNECT struct {
	*FixedHeader

	ProtocolLevel byte
	CleanStart    bool // CleanSession in v3.1.1
	KeepAlive     uint16

	ClientID string
	Will     *Will
	Username string
	Password []byte

	Props *Properties // v5.0 only
}

func (pkt *CONNECT) Kind() byte { return 0x1 }

func (pkt *CONNECT) Pack(w io.Writer) error {
	var buf bytes.Buffer
	buf.Write(protoName)
	buf.WriteByte(pkt.Version)

	var flags byte
	if pkt.Username != "" {
		flags |= 1 << 7
	}
	if pkt.Password != nil {
		flags |= 1 << 6
	}
	if pkt.Will != nil {
		flags |= 1 << 2
		flags |= pkt.Will.QoS << 3
		if pkt.Will.Retain {
			flags |= 1 << 5
		}
	}
	if pkt.CleanStart {
		flags |= 1 << 1
	}
	buf.WriteByte(flags)
	buf.Write(i2b(pkt.KeepAlive))

	if pkt.Version == VERSION500 {
		props, err := PackProperties(0x1, pkt.Props)
		if err != nil {
			return err
		}
		buf.Write(props)
	}

	buf.Write(encodeUTF8(pkt.ClientID))

	if pkt.Will != nil {
		if pkt.Version == VERSION500 {
			wp, err := PackWillProperties(pkt.Will.Properties)
			if err != nil {
				return err
			}
			buf.Write(wp)
		}
		buf.Write(encodeUTF8(pkt.Will.Topic))
		buf.Write(s2b(pkt.Will.Payload))
	}
	if pkt.Username != "" {
		buf.Write(encodeUTF8(pkt.Username))
	}
	if pkt.Password != nil {
		buf.Write(s2b(pkt.Password))
	}

	pkt.RemainingLength = uint32(buf.Len())
	if err := pkt.FixedHeader.Pack(w); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

func (pkt *CONNECT) Unpack(buf *bytes.Buffer) error {
	name, err := decodeUTF8[[]byte](buf)
	if err != nil {
		return err
	}
	if !bytes.Equal(name, protoName[2:]) {
		return ErrMalformedPacket
	}
	level, err := decodeByte(buf)
	if err != nil {
		return err
	}
	pkt.ProtocolLevel = level

	flags, err := decodeByte(buf)
	if err != nil {
		return err
	}
	if flags&0x1 != 0 {
		return ErrMalformedFlags // reserved bit must be 0
	}
	usernameFlag := flags&(1<<7) != 0
	passwordFlag := flags&(1<<6) != 0
	willRetain := flags&(1<<5) != 0
	willQoS := (flags >> 3) & 0x3
	willFlag := flags&(1<<2) != 0
	pkt.CleanStart = flags&(1<<1) != 0

	if !willFlag && (willQoS != 0 || willRetain) {
		return ErrMalformedFlags
	}
	if willQoS > 2 {
		return ErrProtocolViolationQosOutOfRange
	}

	keepAlive, err := decodeUint16(buf)
	if err != nil {
		return err
	}
	pkt.KeepAlive = keepAlive

	if pkt.Version == VERSION500 {
		props, err := UnpackProperties(0x1, buf)
		if err != nil {
			return err
		}
		pkt.Props = props
	}

	clientID, err := decodeUTF8[string](buf)
	if err != nil {
		return err
	}
	pkt.ClientID = clientID

	if willFlag {
		pkt.Will = &Will{QoS: willQoS, Retain: willRetain}
		if pkt.Version == VERSION500 {
			wp, err := UnpackWillProperties(buf)
			if err != nil {
				return err
			}
			pkt.Will.Properties = wp
		}
		topic, err := decodeUTF8[string](buf)
		if err != nil {
			return err
		}
		payload, err := decodeUTF8[[]byte](buf)
		if err != nil {
			return err
		}
		pkt.Will.Topic, pkt.Will.Payload = topic, payload
	}
	if usernameFlag {
		u, err := decodeUTF8[string](buf)
		if err != nil {
			return err
		}
		pkt.Username = u
	} else if passwordFlag && pkt.Version != VERSION500 {
		// v3.1.1 forbids password without username; v5.0 relaxed this.
		return ErrMalformedFlags
	}
	if passwordFlag {
		p, err := decodeUTF8[[]byte](buf)
		if err != nil {
			return err
		}
		pkt.Password = p
	}
	return nil
}
