package isis

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// LineWidth is the physical line width of ISIS ISO exports.
const LineWidth = 80

// Writer produces ISIS ISO records readable by Reader.
type Writer struct {
	w       io.Writer
	encoder *encoding.Encoder
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithWriterEncoding sets the character encoding of written field values.
// Characters the encoding cannot represent are replaced.
func WithWriterEncoding(enc encoding.Encoding) WriterOption {
	return func(w *Writer) {
		if enc != nil {
			w.encoder = encoding.ReplaceUnsupported(enc.NewEncoder())
		}
	}
}

// NewWriter creates a Writer. Default encoding: ISO-8859-1.
func NewWriter(w io.Writer, opts ...WriterOption) *Writer {
	wr := &Writer{
		w:       w,
		encoder: encoding.ReplaceUnsupported(charmap.ISO8859_1.NewEncoder()),
	}
	for _, opt := range opts {
		opt(wr)
	}
	return wr
}

// Write appends one record, wrapped in LineWidth columns.
func (w *Writer) Write(rec Record) error {
	var dir, fields bytes.Buffer

	for _, tag := range rec.Tags() {
		dirTag, err := directoryTag(tag)
		if err != nil {
			return err
		}
		for _, occ := range rec[tag] {
			value, err := w.encoder.Bytes([]byte(FormatOccurrence(occ)))
			if err != nil {
				return fmt.Errorf("encode field %s: %w", tag, err)
			}
			fmt.Fprintf(&dir, "%s%04d%05d", dirTag, len(value)+1, fields.Len())
			fields.Write(value)
			fields.WriteByte(isisTerminator)
		}
	}

	base := leaderLength + dir.Len() + 1
	total := base + fields.Len() + 1

	var record bytes.Buffer
	fmt.Fprintf(&record, "%05d0000000%05d0004500", total, base)
	record.Write(dir.Bytes())
	record.WriteByte(isisTerminator)
	record.Write(fields.Bytes())
	record.WriteByte(isisTerminator)

	data := record.Bytes()
	for len(data) > 0 {
		n := min(LineWidth, len(data))
		if _, err := w.w.Write(data[:n]); err != nil {
			return err
		}
		if _, err := io.WriteString(w.w, "\n"); err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

func directoryTag(tag string) (string, error) {
	if n, err := strconv.Atoi(tag); err == nil && n >= 0 && n < 1000 {
		return fmt.Sprintf("%03d", n), nil
	}
	if len(tag) == 3 {
		return tag, nil
	}
	return "", fmt.Errorf("tag %q cannot be written to an ISO directory", tag)
}
