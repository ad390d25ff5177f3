package protocol

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"io"

	"github.com/golang/snappy"
)

// envelope is the payload of every frame.
// Body is nil for messages without fields.
type envelope struct {
	Type MessageType
	Body []byte
}

// jobBody is the wire form of Job; Data is snappy-compressed.
type jobBody struct {
	ChunkID int
	Data    []byte
}

// Marshal encodes msg into a frame payload.
func Marshal(msg Message) ([]byte, error) {
	env := envelope{Type: msg.Type()}

	var (
		body []byte
		err  error
	)
	switch m := msg.(type) {
	case Hello:
		body, err = encodeGob(m)
	case Job:
		body, err = encodeGob(jobBody{ChunkID: m.ChunkID, Data: snappy.Encode(nil, m.Data)})
	case Result:
		body, err = encodeGob(m)
	case Ack:
		body, err = encodeGob(m)
	case GetJob, NoJob, Bye, UnknownMessage:
	default:
		return nil, fmt.Errorf("%w: unsupported message %T", ErrMalformedMessage, msg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s body: %w", env.Type, err)
	}
	env.Body = body

	out, err := encodeGob(env)
	if err != nil {
		return nil, fmt.Errorf("failed to encode envelope: %w", err)
	}
	return out, nil
}

// Unmarshal decodes a frame payload produced by Marshal.
// Unknown tags decode to UnknownMessage without error.
func Unmarshal(data []byte) (Message, error) {
	var env envelope
	if err := decodeGob(data, &env); err != nil {
		return nil, fmt.Errorf("%w: envelope: %w", ErrMalformedMessage, err)
	}

	switch env.Type {
	case TypeHello:
		var m Hello
		if err := decodeBody(env, &m); err != nil {
			return nil, err
		}
		return m, nil
	case TypeGetJob:
		return GetJob{}, nil
	case TypeJob:
		var body jobBody
		if err := decodeBody(env, &body); err != nil {
			return nil, err
		}
		data, err := snappy.Decode(nil, body.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: job data: %w", ErrMalformedMessage, err)
		}
		return Job{ChunkID: body.ChunkID, Data: data}, nil
	case TypeNoJob:
		return NoJob{}, nil
	case TypeResult:
		var m Result
		if err := decodeBody(env, &m); err != nil {
			return nil, err
		}
		return m, nil
	case TypeAck:
		var m Ack
		if err := decodeBody(env, &m); err != nil {
			return nil, err
		}
		return m, nil
	case TypeBye:
		return Bye{}, nil
	default:
		return UnknownMessage{Tag: env.Type}, nil
	}
}

// Send writes msg to w as a single frame.
func Send(w io.Writer, msg Message) error {
	payload, err := Marshal(msg)
	if err != nil {
		return err
	}
	return WriteFrame(w, payload)
}

// Receive reads one frame from r and decodes it.
func Receive(r io.Reader) (Message, error) {
	payload, err := ReadFrame(r)
	if err != nil {
		return nil, err
	}
	return Unmarshal(payload)
}

func decodeBody(env envelope, dst any) error {
	if len(env.Body) == 0 {
		return fmt.Errorf("%w: %s without body", ErrMalformedMessage, env.Type)
	}
	if err := decodeGob(env.Body, dst); err != nil {
		return fmt.Errorf("%w: %s body: %w", ErrMalformedMessage, env.Type, err)
	}
	return nil
}

func encodeGob(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeGob(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}
