package stage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sophialabs/coopwatch/internal/domain/frame"
)

// Record layout (big-endian):
//
//	magic u16 | typeLen u16 | seq u64 | unixNano i64 | width u16 | height u16 | length u32 | contentType | payload
//
// length counts the payload only.
const (
	recordMagic  uint16 = 0xC00B
	headerSize          = 28
	lengthOffset        = 24
)

// MaxDimension is the largest width or height a record can carry.
const MaxDimension = math.MaxUint16

const maxContentType = 255

var errCorruptRecord = errors.New("corrupt frame record")

// checkFrame rejects frames whose metadata does not fit the record header.
func checkFrame(f frame.Frame) error {
	if f.Width < 0 || f.Width > MaxDimension || f.Height < 0 || f.Height > MaxDimension {
		return fmt.Errorf("frame %d is %dx%d, limit is %d: %w", f.Seq, f.Width, f.Height, MaxDimension, ErrInvalidFrame)
	}
	if len(f.ContentType) > maxContentType {
		return fmt.Errorf("frame %d content type is %d bytes, limit is %d: %w", f.Seq, len(f.ContentType), maxContentType, ErrInvalidFrame)
	}
	return nil
}

func encodeRecord(f frame.Frame) []byte {
	ct := f.ContentType
	if ct == "" {
		ct = frame.ContentTypeOctet
	}
	rec := make([]byte, headerSize+len(ct)+len(f.Data))
	binary.BigEndian.PutUint16(rec[0:], recordMagic)
	binary.BigEndian.PutUint16(rec[2:], uint16(len(ct)))
	binary.BigEndian.PutUint64(rec[4:], f.Seq)
	if !f.Timestamp.IsZero() {
		binary.BigEndian.PutUint64(rec[12:], uint64(f.Timestamp.UnixNano()))
	}
	binary.BigEndian.PutUint16(rec[20:], uint16(f.Width))
	binary.BigEndian.PutUint16(rec[22:], uint16(f.Height))
	binary.BigEndian.PutUint32(rec[lengthOffset:], uint32(len(f.Data)))
	copy(rec[headerSize:], ct)
	copy(rec[headerSize+len(ct):], f.Data)
	return rec
}

// bodyLength validates a header and returns how many bytes follow it.
func bodyLength(header []byte) (int, error) {
	if len(header) < headerSize || binary.BigEndian.Uint16(header[0:]) != recordMagic {
		return 0, errCorruptRecord
	}
	typeLen := int(binary.BigEndian.Uint16(header[2:]))
	return typeLen + int(binary.BigEndian.Uint32(header[lengthOffset:])), nil
}

func decodeRecord(camera string, rec []byte) (frame.Frame, error) {
	n, err := bodyLength(rec)
	if err != nil {
		return frame.Frame{}, err
	}
	if len(rec) != headerSize+n {
		return frame.Frame{}, errCorruptRecord
	}
	typeEnd := headerSize + int(binary.BigEndian.Uint16(rec[2:]))
	var ts time.Time
	if nanos := int64(binary.BigEndian.Uint64(rec[12:])); nanos != 0 {
		ts = time.Unix(0, nanos).UTC()
	}
	return frame.Frame{
		Camera:      camera,
		ContentType: string(rec[headerSize:typeEnd]),
		Seq:         binary.BigEndian.Uint64(rec[4:]),
		Timestamp:   ts,
		Width:       int(binary.BigEndian.Uint16(rec[20:])),
		Height:      int(binary.BigEndian.Uint16(rec[22:])),
		Data:        rec[typeEnd:],
	}, nil
}
