package protocol

import "github.com/getpup/chunkstats"

// MessageType is the tag that drives dispatch on both ends.
type MessageType string

const (
	TypeHello  MessageType = "HELLO"
	TypeGetJob MessageType = "GET_JOB"
	TypeJob    MessageType = "JOB"
	TypeNoJob  MessageType = "NO_JOB"
	TypeResult MessageType = "RESULT"
	TypeAck    MessageType = "ACK"
	TypeBye    MessageType = "BYE"
)

// Message is implemented only by the types in this package.
type Message interface {
	Type() MessageType
	message()
}

// Hello announces the worker's identity. The coordinator does not reply.
type Hello struct {
	WorkerID string
}

// GetJob asks the coordinator for one chunk.
type GetJob struct{}

// Job carries one chunk to a worker.
type Job struct {
	ChunkID int
	Data    []byte
}

// NoJob tells the worker that no chunks remain.
type NoJob struct{}

// Result reports the statistics of one chunk.
type Result struct {
	Record Record
}

// Record is a partial result as sent by a worker. WorkerID may be empty, in
// which case the coordinator fills in the identity of the session.
type Record struct {
	WorkerID string
	ChunkID  int
	Metrics  chunkstats.Metrics
}

// Ack confirms that a Result was stored.
type Ack struct {
	ChunkID int
}

// Bye ends the session.
type Bye struct{}

// UnknownMessage is returned for frames whose tag is not part of the protocol.
type UnknownMessage struct {
	Tag MessageType
}

func (Hello) Type() MessageType  { return TypeHello }
func (GetJob) Type() MessageType { return TypeGetJob }
func (Job) Type() MessageType    { return TypeJob }
func (NoJob) Type() MessageType  { return TypeNoJob }
func (Result) Type() MessageType { return TypeResult }
func (Ack) Type() MessageType    { return TypeAck }
func (Bye) Type() MessageType    { return TypeBye }

// Type returns the unrecognised tag.
func (m UnknownMessage) Type() MessageType { return m.Tag }

func (Hello) message()          {}
func (GetJob) message()         {}
func (Job) message()            {}
func (NoJob) message()          {}
func (Result) message()         {}
func (Ack) message()            {}
func (Bye) message()            {}
func (UnknownMessage) message() {}
