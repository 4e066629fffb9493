// Package backup writes collection documents into a single compressed archive
// and restores them.
package backup

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/pierrec/lz4/v4"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	// MagicBytes identify an archive.
	MagicBytes    = "LWSB"
	FormatVersion = 1
	FileExtension = ".lwsb"
)

// FileHeader is the fixed-size prefix of an archive. The msgpack body that
// follows is an lz4 frame.
type FileHeader struct {
	Magic    [4]byte
	Version  uint8
	Flags    uint8
	Reserved [2]byte
}

// Archive is the decoded body.
type Archive struct {
	CreatedAt time.Time `msgpack:"createdAt"`
	Documents []Entry   `msgpack:"documents"`
}

// Entry is one collection document, stored as the raw JSON bytes of its blob.
type Entry struct {
	Key  string `msgpack:"key"`
	Body []byte `msgpack:"body"`
}

// Keys returns the document keys in archive order.
func (a *Archive) Keys() []string {
	out := make([]string, len(a.Documents))
	for i, d := range a.Documents {
		out[i] = d.Key
	}
	return out
}

func WriteHeader(w io.Writer) error {
	header := FileHeader{Version: FormatVersion}
	copy(header.Magic[:], MagicBytes)
	return binary.Write(w, binary.LittleEndian, header)
}

func ReadHeader(r io.Reader) (*FileHeader, error) {
	var header FileHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if string(header.Magic[:]) != MagicBytes {
		return nil, fmt.Errorf("invalid archive: expected %s, got %q", MagicBytes, string(header.Magic[:]))
	}
	if header.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported archive version: %d", header.Version)
	}
	return &header, nil
}

// Write encodes a to w.
func Write(w io.Writer, a *Archive) error {
	if err := WriteHeader(w); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	zw := lz4.NewWriter(w)
	if err := msgpack.NewEncoder(zw).Encode(a); err != nil {
		return fmt.Errorf("failed to encode MessagePack: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to compress archive: %w", err)
	}
	return nil
}

// Read decodes an archive written by Write.
func Read(r io.Reader) (*Archive, error) {
	if _, err := ReadHeader(r); err != nil {
		return nil, err
	}
	var a Archive
	if err := msgpack.NewDecoder(lz4.NewReader(r)).Decode(&a); err != nil {
		return nil, fmt.Errorf("failed to decode archive: %w", err)
	}
	return &a, nil
}
