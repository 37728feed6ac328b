package transfer

import "encoding/binary"

// AckSize is the length of a DCC SEND acknowledgment.
const AckSize = 4

// PutAck encodes the running byte count into b as a big-endian uint32.
// Counts past 4 GiB wrap, as DCC peers expect only the low 32 bits.
func PutAck(b []byte, received uint64) {
	binary.BigEndian.PutUint32(b, uint32(received))
}

// ParseAck decodes an acknowledgment written by PutAck.
func ParseAck(b []byte) uint32 {
	return binary.BigEndian.Uint32(b)
}
