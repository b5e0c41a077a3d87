package edgo

import (
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"
	"strings"
)

// classifyStatus maps a response status to the error taxonomy. The SEC
// endpoints only ever return 200 on success, so the whole 2xx range is not
// treated as such. 429 and 5xx are retryable; 404 is a typed absence; other
// 4xx are fatal.
func classifyStatus(statusCode int, url string) error {
	switch {
	case statusCode == 200:
		return nil
	case statusCode == 429:
		return &ClientError{
			Kind:       ErrorKindRateLimit,
			Message:    "rate limit exceeded",
			StatusCode: statusCode,
			URL:        url,
		}
	case statusCode == 404:
		return &ClientError{
			Kind:       ErrorKindNotFound,
			Message:    "resource not found",
			StatusCode: statusCode,
			URL:        url,
		}
	default:
		return &ClientError{
			Kind:       ErrorKindStatus,
			Message:    fmt.Sprintf("unexpected status %d", statusCode),
			StatusCode: statusCode,
			URL:        url,
		}
	}
}

// decodedBody chains a decompressing reader over the network body so both
// close together.
type decodedBody struct {
	io.Reader
	closers []io.Closer
}

func (d *decodedBody) Close() error {
	var first error
	for _, c := range d.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// decodeBody selects the decompression transform for a Content-Encoding
// value and wraps body with it. The transform is streaming: bytes are
// decompressed as they are read, never buffered twice. Unrecognized
// encodings are a fatal decode error since the payload cannot be
// interpreted.
func decodeBody(body io.ReadCloser, encoding string) (io.ReadCloser, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "identity":
		return body, nil
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(body)
		if err != nil {
			_ = body.Close()
			return nil, decodeError("malformed gzip stream", err)
		}
		return &decodedBody{Reader: zr, closers: []io.Closer{zr, body}}, nil
	case "deflate":
		zr, err := zlib.NewReader(body)
		if err != nil {
			_ = body.Close()
			return nil, decodeError("malformed deflate stream", err)
		}
		return &decodedBody{Reader: zr, closers: []io.Closer{zr, body}}, nil
	default:
		_ = body.Close()
		return nil, decodeError(fmt.Sprintf("unsupported content encoding %q", encoding), nil)
	}
}
