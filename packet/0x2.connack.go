package packet

import (
	"bytes"
	"io"
)

// CONNACK is the server's response to CONNECT (§3.2). ReasonCode carries
// the v3.1.1 CONNACK return code when Version != VERSION500.
type CONNACK struct {
	*FixedHeader

	SessionPresent bool
	ReasonCode     ReasonCode
	Props          *Properties // v5.0 only
}

func (pkt *CONNACK) Kind() byte { return 0x2 }

func (pkt *CONNACK) Pack(w io.Writer) error {
	var buf bytes.Buffer
	buf.WriteByte(boolByte(pkt.SessionPresent))
	buf.WriteByte(pkt.ReasonCode.Code)
	if pkt.Version == VERSION500 {
		props, err := PackProperties(0x2, pkt.Props)
		if err != nil {
			return err
		}
		buf.Write(props)
	}
	pkt.RemainingLength = uint32(buf.Len())
	if err := pkt.FixedHeader.Pack(w); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

func (pkt *CONNACK) Unpack(buf *bytes.Buffer) error {
	flags, err := decodeByte(buf)
	if err != nil {
		return err
	}
	if flags&0xFE != 0 {
		return ErrMalformedFlags
	}
	pkt.SessionPresent = flags&0x1 != 0

	code, err := decodeByte(buf)
	if err != nil {
		return err
	}
	pkt.ReasonCode = ReasonCode{Code: code}

	if pkt.Version == VERSION500 {
		props, err := UnpackProperties(0x2, buf)
		if err != nil {
			return err
		}
		pkt.Props = props
	}
	return nil
}
