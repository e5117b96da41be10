package adapter

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/klauspost/compress/zstd"
	"github.com/leapstack-labs/mstools/pkg/core"
)

// Compression names accepted by NewCodec.
const (
	CompressionNone = "none"
	CompressionZstd = "zstd"
)

// Cell blob header flags.
const (
	blobRaw  byte = 0
	blobZstd byte = 1
)

// minCompressSize is the smallest payload worth compressing.
const minCompressSize = 64

var errCorruptCell = errors.New("corrupt cell blob")

// Codec serialises array cells to BLOBs: a one-byte header followed by the
// little-endian elements, optionally zstd-compressed. Decoding honours the
// header, so blobs written with either setting stay readable.
type Codec struct {
	compression string
	enc         *zstd.Encoder
	dec         *zstd.Decoder
}

// NewCodec creates a codec; compression is "zstd", "none" or empty (none).
func NewCodec(compression string) (*Codec, error) {
	c := &Codec{compression: compression}
	switch compression {
	case "", CompressionNone:
		c.compression = CompressionNone
	case CompressionZstd:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
		c.enc = enc
	default:
		return nil, fmt.Errorf("unknown compression %q (want %s or %s)", compression, CompressionZstd, CompressionNone)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	c.dec = dec
	return c, nil
}

// Compression returns the configured compression name.
func (c *Codec) Compression() string { return c.compression }

// EncodeRow serialises one cell of col.
func (c *Codec) EncodeRow(col core.Column, row int) ([]byte, error) {
	payload, err := appendCell(nil, col, row)
	if err != nil {
		return nil, err
	}
	if c.enc != nil && len(payload) >= minCompressSize {
		return c.enc.EncodeAll(payload, []byte{blobZstd}), nil
	}
	return append([]byte{blobRaw}, payload...), nil
}

// DecodeRow deserialises b into one cell of col.
func (c *Codec) DecodeRow(col core.Column, row int, b []byte) error {
	if len(b) == 0 {
		return errCorruptCell
	}
	payload := b[1:]
	switch b[0] {
	case blobRaw:
	case blobZstd:
		out, err := c.dec.DecodeAll(payload, nil)
		if err != nil {
			return fmt.Errorf("failed to decompress cell: %w", err)
		}
		payload = out
	default:
		return fmt.Errorf("%w: unknown header %d", errCorruptCell, b[0])
	}
	return decodeCell(payload, col, row)
}

// Close releases the zstd encoder and decoder.
func (c *Codec) Close() {
	if c.enc != nil {
		_ = c.enc.Close()
	}
	if c.dec != nil {
		c.dec.Close()
	}
}

func appendCell(buf []byte, col core.Column, row int) ([]byte, error) {
	le := binary.LittleEndian
	switch a := col.(type) {
	case *core.Array[int32]:
		for _, v := range a.Row(row) {
			buf = le.AppendUint32(buf, uint32(v))
		}
	case *core.Array[float64]:
		for _, v := range a.Row(row) {
			buf = le.AppendUint64(buf, math.Float64bits(v))
		}
	case *core.Array[complex128]:
		for _, v := range a.Row(row) {
			buf = le.AppendUint64(buf, math.Float64bits(real(v)))
			buf = le.AppendUint64(buf, math.Float64bits(imag(v)))
		}
	case *core.Array[bool]:
		for _, v := range a.Row(row) {
			if v {
				buf = append(buf, 1)
			} else {
				buf = append(buf, 0)
			}
		}
	case *core.Array[string]:
		for _, v := range a.Row(row) {
			buf = binary.AppendUvarint(buf, uint64(len(v)))
			buf = append(buf, v...)
		}
	default:
		return nil, fmt.Errorf("cannot encode column of kind %s", col.Kind())
	}
	return buf, nil
}

func decodeCell(b []byte, col core.Column, row int) error {
	le := binary.LittleEndian
	switch a := col.(type) {
	case *core.Array[int32]:
		cell := a.Row(row)
		if len(b) != 4*len(cell) {
			return sizeError(len(b), 4*len(cell))
		}
		for i := range cell {
			cell[i] = int32(le.Uint32(b[4*i:]))
		}
	case *core.Array[float64]:
		cell := a.Row(row)
		if len(b) != 8*len(cell) {
			return sizeError(len(b), 8*len(cell))
		}
		for i := range cell {
			cell[i] = math.Float64frombits(le.Uint64(b[8*i:]))
		}
	case *core.Array[complex128]:
		cell := a.Row(row)
		if len(b) != 16*len(cell) {
			return sizeError(len(b), 16*len(cell))
		}
		for i := range cell {
			re := math.Float64frombits(le.Uint64(b[16*i:]))
			im := math.Float64frombits(le.Uint64(b[16*i+8:]))
			cell[i] = complex(re, im)
		}
	case *core.Array[bool]:
		cell := a.Row(row)
		if len(b) != len(cell) {
			return sizeError(len(b), len(cell))
		}
		for i := range cell {
			cell[i] = b[i] != 0
		}
	case *core.Array[string]:
		cell := a.Row(row)
		for i := range cell {
			n, k := binary.Uvarint(b)
			if k <= 0 || uint64(len(b)-k) < n {
				return errCorruptCell
			}
			cell[i] = string(b[k : k+int(n)])
			b = b[k+int(n):]
		}
		if len(b) != 0 {
			return fmt.Errorf("%w: %d trailing bytes", errCorruptCell, len(b))
		}
	default:
		return fmt.Errorf("cannot decode column of kind %s", col.Kind())
	}
	return nil
}

func sizeError(got, want int) error {
	return fmt.Errorf("%w: %d bytes, want %d", errCorruptCell, got, want)
}
