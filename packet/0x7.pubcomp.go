package packet

import (
	"bytes"
	"io"
)

// PUBCOMP completes a QoS 2 exchange (§3.7).
type PUBCOMP struct {
	*FixedHeader

	PacketID   uint16
	ReasonCode ReasonCode
	Props      *Properties
}

func (pkt *PUBCOMP) Kind() byte { return 0x7 }

func (pkt *PUBCOMP) Pack(w io.Writer) error {
	return packAck(w, pkt.FixedHeader, 0x7, pkt.PacketID, pkt.ReasonCode, pkt.Props)
}

func (pkt *PUBCOMP) Unpack(buf *bytes.Buffer) error {
	id, rc, props, err := unpackAck(buf, 0x7, pkt.Version)
	if err != nil {
		return err
	}
	pkt.PacketID, pkt.ReasonCode, pkt.Props = id, rc, props
	return nil
}
