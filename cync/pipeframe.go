package cync

import (
	"bytes"
	"encoding/binary"
)

// PipeCommandCode identifies the mesh command carried by an inner pipe
// frame.
type PipeCommandCode uint8

const (
	PipeCmdSetPower               PipeCommandCode = 0xD0
	PipeCmdSetBrightness          PipeCommandCode = 0xD2
	PipeCmdSetColor               PipeCommandCode = 0xE2
	PipeCmdDeviceStatus           PipeCommandCode = 0xDB
	PipeCmdCombo                  PipeCommandCode = 0xF0
	PipeCmdQueryDeviceStatusPages PipeCommandCode = 0x52
)

// PipeDirection identifies who originated an inner pipe frame.
type PipeDirection uint8

const (
	PipeDirectionRequest  PipeDirection = 0xF8
	PipeDirectionResponse PipeDirection = 0xF9
	PipeDirectionAnnounce PipeDirection = 0xFA
)

const pipeDelimiter = 0x7E

// commandsWithSeqRepeat is the set of pipe commands whose layout carries a
// repeated little-endian u32 sequence number between arg_length and args,
// per spec §4.1.
var commandsWithSeqRepeat = map[PipeCommandCode]bool{
	PipeCmdSetPower:      true,
	PipeCmdSetBrightness: true,
	PipeCmdSetColor:      true,
	PipeCmdCombo:         true,
}

// outerPipePrefixLen is the length of the {device_id(be u32), seq(be u16),
// 0x00} prefix that precedes the byte-stuffed inner frame inside a Pipe
// message's payload.
const outerPipePrefixLen = 7

// pipeInnerFrame is a fully decoded inner pipe frame.
type pipeInnerFrame struct {
	Seq         uint32
	Direction   PipeDirection
	CommandCode PipeCommandCode
	SeqRepeat   *uint32
	Args        []byte
}

// encodePipeFrame builds a complete, delimited, byte-stuffed inner pipe
// frame (including both 0x7E delimiters). seq is the inner sequence number
// drawn from the inner-sequence counter (§4.2); seqRepeat, when the
// command requires it, is written between arg_length and args but is
// excluded from the checksum, per spec §4.1.
//
// Encode order: build -> checksum -> stuff -> frame (spec §9).
func encodePipeFrame(seq uint32, direction PipeDirection, cmd PipeCommandCode, seqRepeat *uint32, args []byte) []byte {
	var checksummed bytes.Buffer
	checksummed.WriteByte(byte(cmd))
	var argLenBytes [2]byte
	binary.LittleEndian.PutUint16(argLenBytes[:], uint16(len(args)))
	checksummed.Write(argLenBytes[:])
	checksummed.Write(args)

	var checksum byte
	for _, b := range checksummed.Bytes() {
		checksum += b
	}

	var inner bytes.Buffer
	var seqBytes [4]byte
	binary.LittleEndian.PutUint32(seqBytes[:], seq)
	inner.Write(seqBytes[:])
	inner.WriteByte(byte(direction))
	inner.WriteByte(byte(cmd))
	inner.Write(argLenBytes[:])
	if seqRepeat != nil {
		var rb [4]byte
		binary.LittleEndian.PutUint32(rb[:], *seqRepeat)
		inner.Write(rb[:])
	}
	inner.Write(args)
	inner.WriteByte(checksum)

	stuffed := stuffBytes(inner.Bytes())

	var out bytes.Buffer
	out.WriteByte(pipeDelimiter)
	out.Write(stuffed)
	out.WriteByte(pipeDelimiter)
	return out.Bytes()
}

// stuffBytes escapes any literal 0x7E inside the delimited region as
// 0x7D 0x5E. Escaping applies only between delimiters, never to the
// delimiters themselves (the caller writes those separately).
func stuffBytes(b []byte) []byte {
	var out bytes.Buffer
	for _, c := range b {
		if c == pipeDelimiter {
			out.WriteByte(0x7D)
			out.WriteByte(0x5E)
		} else {
			out.WriteByte(c)
		}
	}
	return out.Bytes()
}

// unstuffBytes reverses stuffBytes.
func unstuffBytes(b []byte) []byte {
	return bytes.ReplaceAll(b, []byte{0x7D, 0x5E}, []byte{pipeDelimiter})
}

// decodePipeFrame decodes a complete delimited inner frame (both 0x7E
// markers included). Decode order follows spec §9: verify delimiters ->
// strip -> unstuff -> verify checksum -> parse.
func decodePipeFrame(b []byte) (pipeInnerFrame, error) {
	if len(b) < 2 || b[0] != pipeDelimiter || b[len(b)-1] != pipeDelimiter {
		return pipeInnerFrame{}, newErr(KindNotImplemented, "missing inner frame delimiters")
	}

	unstuffed := unstuffBytes(b[1 : len(b)-1])

	const minLen = 4 + 1 + 1 + 2 + 1 // seq + direction + command_code + arg_length + checksum
	if len(unstuffed) < minLen {
		return pipeInnerFrame{}, errLengthMismatch(minLen, len(unstuffed))
	}

	seq := binary.LittleEndian.Uint32(unstuffed[0:4])
	direction := PipeDirection(unstuffed[4])
	cmd := PipeCommandCode(unstuffed[5])
	argLen := int(binary.LittleEndian.Uint16(unstuffed[6:8]))

	cursor := 8
	var seqRepeat *uint32
	if commandsWithSeqRepeat[cmd] {
		if len(unstuffed) < cursor+4 {
			return pipeInnerFrame{}, errLengthMismatch(cursor+4, len(unstuffed))
		}
		v := binary.LittleEndian.Uint32(unstuffed[cursor : cursor+4])
		seqRepeat = &v
		cursor += 4
	}

	argsEnd := cursor + argLen
	if len(unstuffed) < argsEnd+1 {
		return pipeInnerFrame{}, errLengthMismatch(argsEnd+1, len(unstuffed))
	}
	args := unstuffed[cursor:argsEnd]
	checksum := unstuffed[argsEnd]

	var sum byte
	sum += byte(cmd)
	sum += unstuffed[6] + unstuffed[7]
	for _, b := range args {
		sum += b
	}
	if sum != checksum {
		return pipeInnerFrame{}, newErr(KindBadChecksum, "inner pipe frame checksum mismatch")
	}

	return pipeInnerFrame{
		Seq:         seq,
		Direction:   direction,
		CommandCode: cmd,
		SeqRepeat:   seqRepeat,
		Args:        args,
	}, nil
}
