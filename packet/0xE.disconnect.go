package packet

import (
	"bytes"
	"io"
)

// DISCONNECT signals a graceful connection close or reports why one end
// is terminating the connection (§3.14). Pre-v5.0 it carries no payload
// at all; v5.0 adds an optional reason code and properties.
type DISCONNECT struct {
	*FixedHeader

	ReasonCode ReasonCode  // v5.0 only
	Props      *Properties // v5.0 only
}

func (pkt *DISCONNECT) Kind() byte { return 0xE }

func (pkt *DISCONNECT) Pack(w io.Writer) error {
	var buf bytes.Buffer
	if pkt.Version == VERSION500 && (pkt.ReasonCode.Code != 0 || pkt.Props != nil) {
		buf.WriteByte(pkt.ReasonCode.Code)
		props, err := PackProperties(0xE, pkt.Props)
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

func (pkt *DISCONNECT) Unpack(buf *bytes.Buffer) error {
	if pkt.Version != VERSION500 || buf.Len() == 0 {
		pkt.ReasonCode = CodeDisconnect
		return nil
	}
	code, err := decodeByte(buf)
	if err != nil {
		return err
	}
	pkt.ReasonCode = ReasonCode{Code: code}

	if buf.Len() > 0 {
		props, err := UnpackProperties(0xE, buf)
		if err != nil {
			return err
		}
		pkt.Props = props
	}
	return nil
}
