package server

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bastiangx/linkserve/pkg/config"
	"github.com/vmihailenco/msgpack/v5"
)

// errMalformed marks a message that could not be decoded but after which
// the stream is still usable.
var errMalformed = errors.New("malformed request")

// codec frames requests and responses on the IPC streams.
type codec interface {
	// Decode reads the next request, returning io.EOF at the end of input.
	Decode(req *Request) error
	Encode(v any) error
}

func newCodec(name string, r io.Reader, w io.Writer) (codec, error) {
	switch name {
	case config.CodecJSON, "":
		return &jsonCodec{reader: bufio.NewReader(r), writer: w}, nil
	case config.CodecMsgpack:
		return &msgpackCodec{dec: msgpack.NewDecoder(r), enc: msgpack.NewEncoder(w)}, nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}

// jsonCodec reads one JSON object per line. Blank lines are skipped.
type jsonCodec struct {
	reader *bufio.Reader
	writer io.Writer
}

func (c *jsonCodec) Decode(req *Request) error {
	for {
		line, err := c.reader.ReadString('\n')
		line = strings.TrimSpace(line)
		if line == "" {
			if err != nil {
				return err
			}
			continue
		}
		*req = Request{}
		if jerr := json.Unmarshal([]byte(line), req); jerr != nil {
			return fmt.Errorf("%w: %v", errMalformed, jerr)
		}
		return nil
	}
}

func (c *jsonCodec) Encode(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.writer, string(data))
	return err
}

// msgpackCodec reads back to back msgpack maps. A decode error leaves the
// stream at an unknown offset, so it is not recoverable.
type msgpackCodec struct {
	dec *msgpack.Decoder
	enc *msgpack.Encoder
}

func (c *msgpackCodec) Decode(req *Request) error {
	*req = Request{}
	return c.dec.Decode(req)
}

func (c *msgpackCodec) Encode(v any) error {
	return c.enc.Encode(v)
}
