package isis

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

const (
	leaderLength   = 24
	directoryEntry = 12

	isisTerminator  = '#'
	fieldTerminator = 0x1E
	recordTerminator = 0x1D
)

// Reader enumerates the records of an ISIS ISO stream.
//
//	r := isis.NewReader(f)
//	for r.Next() {
//		rec := r.Record()
//	}
//	if err := r.Err(); err != nil { ... }
//
// A Reader is not restartable: once Next returns false the stream is
// exhausted or broken.
type Reader struct {
	src     *bufio.Reader
	decoder *encoding.Decoder
	offset  int64
	count   int
	current Record
	err     error
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithEncoding sets the character encoding of field values.
// Default: ISO-8859-1.
func WithEncoding(enc encoding.Encoding) ReaderOption {
	return func(r *Reader) {
		if enc != nil {
			r.decoder = enc.NewDecoder()
		}
	}
}

// NewReader creates a Reader over an ISO stream.
func NewReader(r io.Reader, opts ...ReaderOption) *Reader {
	rd := &Reader{
		src:     bufio.NewReader(&lineJoiner{r: r}),
		decoder: charmap.ISO8859_1.NewDecoder(),
	}
	for _, opt := range opts {
		opt(rd)
	}
	return rd
}

// Next advances to the next record. It returns false at the end of the
// stream or on error; Err distinguishes the two.
func (r *Reader) Next() bool {
	if r.err != nil {
		return false
	}
	r.current = nil

	head := make([]byte, 5)
	n, err := io.ReadFull(r.src, head)
	if err == io.EOF {
		return false
	}
	if err != nil {
		r.err = &FormatError{Offset: r.offset, Reason: fmt.Sprintf("truncated record length (%d bytes)", n)}
		return false
	}

	length, err := strconv.Atoi(string(head))
	if err != nil || length < leaderLength+2 {
		r.err = &FormatError{Offset: r.offset, Reason: fmt.Sprintf("invalid record length %q", head)}
		return false
	}

	data := make([]byte, length)
	copy(data, head)
	if _, err := io.ReadFull(r.src, data[5:]); err != nil {
		r.err = &FormatError{Offset: r.offset, Reason: "truncated record data"}
		return false
	}

	rec, err := r.parse(data)
	if err != nil {
		r.err = err
		return false
	}
	r.offset += int64(length)
	r.count++
	r.current = rec
	return true
}

// Record returns the record read by the last successful Next.
func (r *Reader) Record() Record {
	return r.current
}

// Count returns the number of records read so far.
func (r *Reader) Count() int {
	return r.count
}

// Err returns the first error encountered, or nil at a clean end of stream.
func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) parse(data []byte) (Record, error) {
	base, err := strconv.Atoi(string(data[12:17]))
	if err != nil || base <= leaderLength || base > len(data) {
		return nil, &FormatError{Offset: r.offset, Reason: fmt.Sprintf("invalid base address %q", data[12:17])}
	}

	directory := data[leaderLength : base-1]
	if len(directory)%directoryEntry != 0 {
		return nil, &FormatError{Offset: r.offset, Reason: "directory length is not a multiple of 12"}
	}

	if t := data[len(data)-1]; t != isisTerminator && t != recordTerminator {
		return nil, &FormatError{Offset: r.offset, Reason: "record is not terminated"}
	}

	rec := Record{}
	for o := 0; o < len(directory); o += directoryEntry {
		entry := directory[o : o+directoryEntry]
		tag := normalizeTag(string(entry[0:3]))
		flen, err1 := strconv.Atoi(string(entry[3:7]))
		foff, err2 := strconv.Atoi(string(entry[7:12]))
		if err := errors.Join(err1, err2); err != nil || flen < 1 {
			return nil, &FormatError{Offset: r.offset, Reason: fmt.Sprintf("invalid directory entry %q", entry)}
		}

		start := base + foff
		end := start + flen - 1
		if start < base || end >= len(data) {
			return nil, &FormatError{Offset: r.offset, Reason: fmt.Sprintf("field %s out of record bounds", tag)}
		}
		if t := data[end]; t != isisTerminator && t != fieldTerminator {
			return nil, &FormatError{Offset: r.offset, Reason: fmt.Sprintf("field %s is not terminated", tag)}
		}

		value, err := r.decoder.Bytes(data[start:end])
		if err != nil {
			return nil, &FormatError{Offset: r.offset, Reason: fmt.Sprintf("field %s: %v", tag, err)}
		}
		rec[tag] = append(rec[tag], ParseOccurrence(string(value)))
	}

	return rec, nil
}

// lineJoiner drops line breaks, undoing the 80 column wrapping of ISIS exports.
type lineJoiner struct {
	r io.Reader
}

func (j *lineJoiner) Read(p []byte) (int, error) {
	for {
		n, err := j.r.Read(p)
		w := 0
		for _, b := range p[:n] {
			if b == '\n' || b == '\r' {
				continue
			}
			p[w] = b
			w++
		}
		if w > 0 || err != nil {
			return w, err
		}
	}
}
