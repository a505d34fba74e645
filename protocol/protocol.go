// Package protocol implements the framed command protocol spoken between
// benchscope hosts and the signal generator firmware.
//
// A frame is
//
//	len seq payload... crc_hi crc_lo 0x7E
//
// where len counts the whole frame, seq carries the 0x10 destination bits
// and a four bit sequence number, and the payload is a series of commands,
// each a VLQ command ID followed by VLQ encoded arguments. A frame with an
// empty payload is an ACK carrying the next expected sequence.
package protocol

// Version is the firmware protocol version reported in the dictionary.
const Version = "0.3.0"

const (
	MessageHeaderSize  = 2
	MessageTrailerSize = 3
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessageLengthMax   = 64
	MessagePayloadMax  = MessageLengthMax - MessageLengthMin
	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageTrailerCRC  = 3
	MessageTrailerSync = 1
	MessageValueSync   = 0x7E
	MessageDest        = 0x10
	MessageSeqMask     = 0x0F
)

// NextSeq returns the sequence byte following seq.
func NextSeq(seq uint8) uint8 {
	return ((seq + 1) & MessageSeqMask) | MessageDest
}
