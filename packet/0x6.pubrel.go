package packet

import (
	"bytes"
	"io"
)

// PUBREL is the second step of a QoS 2 exchange, sent in response to
// PUBREC (§3.6). Its fixed header flags are the reserved 0010 pattern,
// already validated by FixedHeader.Unpack.
type PUBREL struct {
	*FixedHeader

	PacketID   uint16
	ReasonCode ReasonCode
	Props      *Properties
}

func (pkt *PUBREL) Kind() byte { return 0x6 }

func (pkt *PUBREL) Pack(w io.Writer) error {
	return packAck(w, pkt.FixedHeader, 0x6, pkt.PacketID, pkt.ReasonCode, pkt.Props)
}

func (pkt *PUBREL) Unpack(buf *bytes.Buffer) error {
	id, rc, props, err := unpackAck(buf, 0x6, pkt.Version)
	if err != nil {
		return err
	}
	pkt.PacketID, pkt.ReasonCode, pkt.Props = id, rc, props
	return nil
}
