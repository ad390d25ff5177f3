// Package protocol implements the coordinator/worker wire protocol.
//
// Every message travels in a frame: a 4-byte big-endian unsigned length
// followed by that many payload bytes. The payload is a gob-encoded envelope
// carrying the message type tag and the type-specific body. Both peers run
// this package, so the encoding is not meant to be read by other languages.
//
// Messages form a closed set:
//
//	HELLO    worker -> coordinator  worker_id
//	GET_JOB  worker -> coordinator
//	JOB      coordinator -> worker  chunk_id, data
//	NO_JOB   coordinator -> worker
//	RESULT   worker -> coordinator  record
//	ACK      coordinator -> worker  chunk_id
//	BYE      worker -> coordinator
//
// A frame whose tag is not in the set decodes to *UnknownMessage so callers
// can skip it without dropping the connection.
package protocol
