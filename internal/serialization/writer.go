package serialization

import (
	"encoding/binary"
	"fmt"
	"io"
)

// WriteContainer writes body framed by the fixed header and followed by its
// checksum.
func WriteContainer(w io.Writer, kind Kind, body []byte) error {
	header := make([]byte, FixedHeaderSize)
	copy(header, MagicBytes)
	binary.LittleEndian.PutUint32(header[4:], FormatVersion)
	binary.LittleEndian.PutUint32(header[8:], uint32(kind))
	binary.LittleEndian.PutUint64(header[12:], uint64(len(body)))

	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("failed to write body: %w", err)
	}
	sum := Checksum(body)
	if _, err := w.Write(sum[:]); err != nil {
		return fmt.Errorf("failed to write checksum: %w", err)
	}
	return nil
}
