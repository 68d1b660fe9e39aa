package uplink

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// compressBuffer gzips the whole payload in one shot.
func compressBuffer(input []byte) ([]byte, error) {
	buf := bytes.NewBuffer([]byte{})
	zbuf := gzip.NewWriter(buf)

	n, err := zbuf.Write(input)
	if err != nil {
		return nil, errors.WithStack(err)
	} else if n != len(input) {
		return nil, errors.Errorf("attempt to write payload buffer failed [%d:%d]", n, len(input))
	}

	if err = zbuf.Close(); err != nil {
		return nil, errors.Wrap(err, "problem flushing gzip writer")
	}

	return buf.Bytes(), nil
}

// Decompress reverses the encoding applied to submitted payloads. It
// is useful for inspecting captured request bodies.
func Decompress(input []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(input))
	if err != nil {
		return nil, errors.Wrap(err, "problem reading gzip header")
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, errors.Wrap(err, "problem decompressing payload")
	}

	return out, nil
}
