// Package codec abstracts the compression used for pack entry payloads.
package codec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// Codec inflates and deflates pack entry payloads. Inflate must report how
// many source bytes the compressed stream actually occupied; the parser
// advances its cursor by that count, not by any estimate of its own.
type Codec interface {
	// Inflate decompresses exactly expected bytes from the zlib stream
	// at the start of src and returns them together with the number of
	// src bytes consumed, including the zlib checksum trailer.
	Inflate(src []byte, expected int) (data []byte, consumed int, err error)

	// Deflate compresses src into a self-contained zlib stream.
	Deflate(src []byte) ([]byte, error)
}

// Zlib is the default Codec.
type Zlib struct{}

func NewZlib() Zlib {
	return Zlib{}
}

func (Zlib) Inflate(src []byte, expected int) ([]byte, int, error) {
	br := bytes.NewReader(src)
	zr, err := zlib.NewReader(br)
	if err != nil {
		return nil, 0, fmt.Errorf("codec: open zlib stream: %w", err)
	}
	defer zr.Close()
	data := make([]byte, expected)
	if _, err := io.ReadFull(zr, data); err != nil {
		return nil, 0, fmt.Errorf("codec: inflate %d bytes: %w", expected, err)
	}
	// Reading exactly the declared length leaves the four-byte adler32
	// trailer unread. Pull one more byte so the reader verifies it and
	// the consumed count covers the whole stream.
	var scratch [1]byte
	if n, err := zr.Read(scratch[:]); n != 0 {
		return nil, 0, fmt.Errorf("codec: zlib stream longer than declared size %d", expected)
	} else if err != nil && err != io.EOF {
		return nil, 0, fmt.Errorf("codec: finish zlib stream: %w", err)
	}
	return data, len(src) - br.Len(), nil
}

func (Zlib) Deflate(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(src); err != nil {
		return nil, fmt.Errorf("codec: deflate: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("codec: close zlib stream: %w", err)
	}
	return buf.Bytes(), nil
}
