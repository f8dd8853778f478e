package packet

import (
	"bytes"
	"io"
)

// PUBREC is the first acknowledgement of a QoS 2 PUBLISH (§3.5).
type PUBREC struct {
	*FixedHeader

	PacketID   uint16
	ReasonCode ReasonCode
	Props      *Properties
}

func (pkt *PUBREC) Kind() byte { return 0x5 }

func (pkt *PUBREC) Pack(w io.Writer) error {
	return packAck(w, pkt.FixedHeader, 0x5, pkt.PacketID, pkt.ReasonCode, pkt.Props)
}

func (pkt *PUBREC) Unpack(buf *bytes.Buffer) error {
	id, rc, props, err := unpackAck(buf, 0x5, pkt.Version)
	if err != nil {
		return err
	}
	pkt.PacketID, pkt.ReasonCode, pkt.Props = id, rc, props
	return nil
}
