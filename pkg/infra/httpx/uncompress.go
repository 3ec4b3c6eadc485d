package httpx

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

// MaxDecodedBodySize caps a decoded body so a small compressed payload cannot exhaust memory.
const MaxDecodedBodySize = 8 * 1024 * 1024

var ErrDecodedBodyTooLarge = errors.New("decoded body exceeds limit")

type decoder func(r io.Reader) (io.ReadCloser, error)

var decoders = map[string]decoder{
	"br": func(r io.Reader) (io.ReadCloser, error) {
		return io.NopCloser(brotli.NewReader(r)), nil
	},
	"gzip": func(r io.Reader) (io.ReadCloser, error) {
		return gzip.NewReader(r)
	},
	"zstd": func(r io.Reader) (io.ReadCloser, error) {
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return dec.IOReadCloser(), nil
	},
}

// DecodeChain undoes the encodings listed in a Content-Encoding header, last applied first.
// It reports whether the body changed.
func DecodeChain(contentEncoding string, body []byte) ([]byte, bool, error) {
	if strings.TrimSpace(contentEncoding) == "" {
		return body, false, nil
	}
	encodings := strings.Split(contentEncoding, ",")
	changed := false
	for i := len(encodings) - 1; i >= 0; i-- {
		enc := strings.ToLower(strings.TrimSpace(encodings[i]))
		var err error
		switch enc {
		case "", "identity", "compress":
			continue
		case "deflate":
			body, err = inflate(body)
		default:
			dec, ok := decoders[enc]
			if !ok {
				return nil, false, fmt.Errorf("unsupported content-encoding: %q", enc)
			}
			body, err = decodeWith(dec, body)
		}
		if err != nil {
			return nil, false, fmt.Errorf("%s: %w", enc, err)
		}
		changed = true
	}
	return body, changed, nil
}

func decodeWith(dec decoder, body []byte) ([]byte, error) {
	r, err := dec(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	out, err := readLimited(r)
	if cerr := r.Close(); err == nil && cerr != nil {
		err = cerr
	}
	return out, err
}

// inflate accepts zlib wrapped deflate and falls back to raw deflate.
func inflate(body []byte) ([]byte, error) {
	if out, err := decodeWith(func(r io.Reader) (io.ReadCloser, error) { return zlib.NewReader(r) }, body); err == nil {
		return out, nil
	}
	return decodeWith(func(r io.Reader) (io.ReadCloser, error) { return flate.NewReader(r), nil }, body)
}

func readLimited(r io.Reader) ([]byte, error) {
	out, err := io.ReadAll(io.LimitReader(r, MaxDecodedBodySize+1))
	if err != nil {
		return nil, err
	}
	if len(out) > MaxDecodedBodySize {
		return nil, ErrDecodedBodyTooLarge
	}
	return out, nil
}
