package serialization

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ReadContainer reads one container written by WriteContainer and returns
// its kind and verified body. The version must equal FormatVersion; there
// is no migration between versions.
func ReadContainer(r io.Reader) (Kind, []byte, error) {
	header := make([]byte, FixedHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, nil, fmt.Errorf("failed to read header: %w", err)
	}
	if string(header[:4]) != MagicBytes {
		return 0, nil, ErrInvalidMagic
	}
	if v := binary.LittleEndian.Uint32(header[4:]); v != FormatVersion {
		return 0, nil, fmt.Errorf("%w: got %d, expected %d", ErrUnsupportedVersion, v, FormatVersion)
	}
	kind := Kind(binary.LittleEndian.Uint32(header[8:]))
	size := binary.LittleEndian.Uint64(header[12:])
	if size > MaxBodySize {
		return 0, nil, fmt.Errorf("%w: %d bytes", ErrBodyTooLarge, size)
	}

	// The header size is untrusted: the buffer grows with the data read.
	var body bytes.Buffer
	digest := newBodyDigest()
	if _, err := io.CopyN(io.MultiWriter(&body, digest), r, int64(size)); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return 0, nil, fmt.Errorf("failed to read body: %w", err)
	}
	var stored [ChecksumSize]byte
	if _, err := io.ReadFull(r, stored[:]); err != nil {
		return 0, nil, fmt.Errorf("failed to read checksum: %w", err)
	}
	if err := digest.verify(stored); err != nil {
		return 0, nil, err
	}
	return kind, body.Bytes(), nil
}

// ReadKind is ReadContainer that also requires the container to hold want.
func ReadKind(r io.Reader, want Kind) ([]byte, error) {
	kind, body, err := ReadContainer(r)
	if err != nil {
		return nil, err
	}
	if kind != want {
		return nil, fmt.Errorf("%w: got %s, expected %s", ErrUnexpectedKind, kind, want)
	}
	return body, nil
}
