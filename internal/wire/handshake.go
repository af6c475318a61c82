package wire

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
)

const (
	helloType    = "frames.hello"
	helloAckType = "frames.hello.ack"

	AckStatusAccepted = "accepted"
	AckStatusRejected = "rejected"

	maxHelloLine = 16 * 1024
)

// Hello is sent by the client before its first frame. Sizes are from the
// client's point of view.
type Hello struct {
	SessionID      string `json:"session_id"`
	OutboundSize   int    `json:"outbound_size"`
	InboundSize    int    `json:"inbound_size"`
	OutboundDigest string `json:"outbound_digest,omitempty"`
	InboundDigest  string `json:"inbound_digest,omitempty"`
}

func (h Hello) Validate() error {
	if _, err := uuid.Parse(h.SessionID); err != nil {
		return fmt.Errorf("%w: session_id: %v", ErrInvalidHello, err)
	}
	if h.OutboundSize <= 0 || h.InboundSize <= 0 {
		return fmt.Errorf("%w: frame sizes must be positive", ErrInvalidHello)
	}
	return nil
}

type HelloAck struct {
	Status       string `json:"status"`
	Message      string `json:"message,omitempty"`
	SessionID    string `json:"session_id"`
	OutboundSize int    `json:"outbound_size"`
	InboundSize  int    `json:"inbound_size"`
}

func (a HelloAck) Validate() error {
	status := strings.TrimSpace(a.Status)
	if status != AckStatusAccepted && status != AckStatusRejected {
		return fmt.Errorf("%w: invalid status %q", ErrInvalidHelloAck, a.Status)
	}
	if strings.TrimSpace(a.SessionID) == "" {
		return fmt.Errorf("%w: missing session_id", ErrInvalidHelloAck)
	}
	return nil
}

type helloEnvelope struct {
	Type  string    `json:"type"`
	Hello *Hello    `json:"hello,omitempty"`
	Ack   *HelloAck `json:"ack,omitempty"`
}

func newHello(cfg Config) Hello {
	return Hello{
		SessionID:      uuid.NewString(),
		OutboundSize:   cfg.OutboundSize,
		InboundSize:    cfg.InboundSize,
		OutboundDigest: layoutDigest(cfg.Handshake.OutboundLayout),
		InboundDigest:  layoutDigest(cfg.Handshake.InboundLayout),
	}
}

func WriteHello(w io.Writer, h Hello) error {
	if err := h.Validate(); err != nil {
		return err
	}
	return writeEnvelope(w, helloEnvelope{Type: helloType, Hello: &h})
}

func ReadHello(r *bufio.Reader) (Hello, error) {
	env, err := readEnvelope(r)
	if err != nil {
		return Hello{}, err
	}
	if env.Type != helloType || env.Hello == nil {
		return Hello{}, fmt.Errorf("%w: unexpected type %q", ErrInvalidHello, env.Type)
	}
	if err := env.Hello.Validate(); err != nil {
		return Hello{}, err
	}
	return *env.Hello, nil
}

func WriteHelloAck(w io.Writer, ack HelloAck) error {
	if err := ack.Validate(); err != nil {
		return err
	}
	return writeEnvelope(w, helloEnvelope{Type: helloAckType, Ack: &ack})
}

func ReadHelloAck(r *bufio.Reader) (HelloAck, error) {
	env, err := readEnvelope(r)
	if err != nil {
		return HelloAck{}, err
	}
	if env.Type != helloAckType || env.Ack == nil {
		return HelloAck{}, fmt.Errorf("%w: unexpected type %q", ErrInvalidHelloAck, env.Type)
	}
	if err := env.Ack.Validate(); err != nil {
		return HelloAck{}, err
	}
	return *env.Ack, nil
}

// checkAck confirms the peer accepted this hello and echoed its sizes.
func checkAck(h Hello, ack HelloAck) error {
	if ack.Status != AckStatusAccepted {
		return fmt.Errorf("%w: %s", ErrHandshakeRejected, ack.Message)
	}
	if ack.SessionID != h.SessionID {
		return fmt.Errorf("%w: session_id echo %q, sent %q", ErrHandshakeRejected, ack.SessionID, h.SessionID)
	}
	if ack.OutboundSize != h.OutboundSize || ack.InboundSize != h.InboundSize {
		return fmt.Errorf("%w: size echo %d/%d, sent %d/%d", ErrHandshakeRejected,
			ack.OutboundSize, ack.InboundSize, h.OutboundSize, h.InboundSize)
	}
	return nil
}

func writeEnvelope(w io.Writer, env helloEnvelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}
	payload = append(payload, '\n')
	if _, err := w.Write(payload); err != nil {
		return err
	}
	return nil
}

// readEnvelope reads one JSON line, giving up once more than maxHelloLine
// bytes arrive without a newline.
func readEnvelope(r *bufio.Reader) (helloEnvelope, error) {
	var line []byte
	for {
		chunk, err := r.ReadSlice('\n')
		if len(line)+len(chunk) > maxHelloLine {
			return helloEnvelope{}, ErrHelloTooLarge
		}
		line = append(line, chunk...)
		if err == nil {
			break
		}
		if !errors.Is(err, bufio.ErrBufferFull) {
			return helloEnvelope{}, err
		}
	}
	var env helloEnvelope
	if err := json.Unmarshal(line, &env); err != nil {
		return helloEnvelope{}, err
	}
	return env, nil
}
