package bridge

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"vimeodl/internal/services"
)

const (
	// DefaultMaxMessageBytes mirrors the largest message Chrome sends to a host.
	DefaultMaxMessageBytes = 64 << 20
	// MaxOutboundBytes is the largest message Chrome accepts from a host.
	MaxOutboundBytes = 1 << 20

	headerSize = 4
)

// ErrFrameTooLarge marks a length prefix above the configured limit. The
// stream cannot be resynchronised after it.
var ErrFrameTooLarge = errors.New("frame exceeds size limit")

// Codec reads and writes native messaging frames.
type Codec struct {
	r   io.Reader
	w   *bufio.Writer
	max int
}

// NewCodec wraps r and w. maxBytes <= 0 selects DefaultMaxMessageBytes.
func NewCodec(r io.Reader, w io.Writer, maxBytes int) *Codec {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxMessageBytes
	}
	return &Codec{r: r, w: bufio.NewWriter(w), max: maxBytes}
}

// ReadFrame returns the next message body. A stream that ends before a full
// header or body yields io.EOF.
func (c *Codec) ReadFrame() ([]byte, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(c.r, header[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, io.EOF
		}
		return nil, err
	}
	length := binary.LittleEndian.Uint32(header[:])
	if uint64(length) > uint64(c.max) {
		return nil, services.Wrap(services.ErrProtocolDecode, "bridge", "read",
			fmt.Sprintf("length %d above limit %d", length, c.max), ErrFrameTooLarge)
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(c.r, body); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, io.EOF
		}
		return nil, err
	}
	return body, nil
}

// WriteFrame writes body with its length prefix and flushes.
func (c *Codec) WriteFrame(body []byte) error {
	var header [headerSize]byte
	binary.LittleEndian.PutUint32(header[:], uint32(len(body)))
	if _, err := c.w.Write(header[:]); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	if _, err := c.w.Write(body); err != nil {
		return fmt.Errorf("write frame body: %w", err)
	}
	return c.w.Flush()
}

// WriteResponse encodes resp, shrinking it to fit MaxOutboundBytes.
func (c *Codec) WriteResponse(resp Response) error {
	body, err := encodeBounded(resp, MaxOutboundBytes)
	if err != nil {
		return err
	}
	return c.WriteFrame(body)
}

// encodeBounded drops per-URL results and then truncates the error text
// until the encoded response fits in limit bytes.
func encodeBounded(resp Response, limit int) ([]byte, error) {
	body, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	if len(body) <= limit {
		return body, nil
	}
	resp.Results = nil
	body, err = json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	if len(body) <= limit {
		return body, nil
	}
	// JSON escaping can expand text; halve until it fits.
	runes := []rune(resp.Error)
	for len(body) > limit && len(runes) > 0 {
		runes = runes[:len(runes)/2]
		resp.Error = string(runes) + "..."
		if body, err = json.Marshal(resp); err != nil {
			return nil, fmt.Errorf("encode response: %w", err)
		}
	}
	return body, nil
}
