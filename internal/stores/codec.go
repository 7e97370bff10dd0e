package stores

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const recordVersion1 = 1

// ErrRecordCorrupt is returned when stored bytes cannot be decoded.
var ErrRecordCorrupt = errors.New("stores: record corrupt")

func writeString(buf *bytes.Buffer, s string) error {
	if len(s) > 0xFFFF {
		return fmt.Errorf("stores: field too long (%d bytes)", len(s))
	}
	if err := binary.Write(buf, binary.BigEndian, uint16(len(s))); err != nil {
		return err
	}
	buf.WriteString(s)
	return nil
}

func readString(r *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", err
	}
	out := make([]byte, n)
	if _, err := io.ReadFull(r, out); err != nil {
		return "", err
	}
	return string(out), nil
}

func readHeader(r *bytes.Reader) error {
	version, err := r.ReadByte()
	if err != nil {
		return err
	}
	if version != recordVersion1 {
		return fmt.Errorf("unknown record version %d", version)
	}
	return nil
}

func corrupt(err error) error {
	return fmt.Errorf("%w: %v", ErrRecordCorrupt, err)
}
