package packet

import (
	"bytes"
	"io"
)

// PINGREQ keeps the network connection alive and confirms the server is
// responsive (§3.12). It has no variable header or payload.
type PINGREQ struct {
	*FixedHeader
}

func (pkt *PINGREQ) Kind() byte { return 0xC }

func (pkt *PINGREQ) Pack(w io.Writer) error {
	pkt.RemainingLength = 0
	return pkt.FixedHeader.Pack(w)
}

func (pkt *PINGREQ) Unpack(buf *bytes.Buffer) error {
	if buf.Len() != 0 {
		return ErrMalformedPacket
	}
	return nil
}
