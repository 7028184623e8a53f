package protocol

import (
	"bufio"
	"errors"
	"io"
	"unicode/utf8"
)

const DefaultMaxRecord = 4096

var (
	ErrInvalidRecord = errors.New("record is not valid utf-8")
	ErrRecordTooLong = errors.New("record exceeds maximum size")
)

// Framer splits a byte stream into newline-terminated records.
//
// ErrInvalidRecord and ErrRecordTooLong only drop the offending record, the
// stream stays usable. Any other error ends it. Bytes left without a
// terminating newline when the stream ends are never returned.
type Framer struct {
	r         *bufio.Reader
	maxRecord int
}

func NewFramer(r io.Reader, maxRecord int) *Framer {
	if maxRecord <= 0 {
		maxRecord = DefaultMaxRecord
	}
	return &Framer{
		r:         bufio.NewReaderSize(r, maxRecord+1),
		maxRecord: maxRecord,
	}
}

// Next returns the next record with its line feed stripped. The returned
// slice is owned by the caller.
func (f *Framer) Next() ([]byte, error) {
	line, err := f.r.ReadSlice('\n')
	if errors.Is(err, bufio.ErrBufferFull) {
		return nil, f.skipRest()
	}
	if err != nil {
		return nil, err
	}

	record := line[:len(line)-1]
	if len(record) > f.maxRecord {
		return nil, ErrRecordTooLong
	}
	if !utf8.Valid(record) {
		return nil, ErrInvalidRecord
	}

	out := make([]byte, len(record))
	copy(out, record)
	return out, nil
}

func (f *Framer) skipRest() error {
	for {
		_, err := f.r.ReadSlice('\n')
		switch {
		case err == nil:
			return ErrRecordTooLong
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		default:
			return err
		}
	}
}

// IsRecordError reports whether err only invalidated a single record.
func IsRecordError(err error) bool {
	return errors.Is(err, ErrInvalidRecord) || errors.Is(err, ErrRecordTooLong)
}
