package packet

import (
	"bytes"
	"io"
)

// PINGRESP is the server's response to PINGREQ (§3.13).
type PINGRESP struct {
	*FixedHeader
}

func (pkt *PINGRESP) Kind() byte { return 0xD }

func (pkt *PINGRESP) Pack(w io.Writer) error {
	pkt.RemainingLength = 0
	return pkt.FixedHeader.Pack(w)
}

func (pkt *PINGRESP) Unpack(buf *bytes.Buffer) error {
	if buf.Len() != 0 {
		return ErrMalformedPacket
	}
	return nil
}
