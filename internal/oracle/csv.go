package oracle

import (
	"encoding/csv"
	"io"
	"strconv"
)

// csvHeader is the machine-readable column schema. Stdlib encoding/csv is
// used directly rather than a third-party CSV library: this is fixed-schema,
// quote-as-needed output, and encoding/csv already handles the
// quoting/escaping it needs.
var csvHeader = []string{"timestamp", "event_type", "object_id", "size", "site_id", "thread_id", "type_id"}

type csvWriter struct {
	w   *csv.Writer
	err error
}

func newCSVWriter(w io.Writer) (*csvWriter, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return nil, err
	}
	return &csvWriter{w: cw}, nil
}

func (c *csvWriter) write(e Event) error {
	if c.err != nil {
		return c.err
	}
	row := []string{
		strconv.FormatInt(e.Clock, 10),
		string(e.Kind),
		strconv.FormatInt(e.ObjectID, 10),
		strconv.FormatInt(e.Size, 10),
		strconv.FormatInt(e.SiteID, 10),
		strconv.FormatInt(e.ThreadID, 10),
		strconv.FormatInt(e.TypeID, 10),
	}
	if err := c.w.Write(row); err != nil {
		c.err = err
		return err
	}
	return nil
}

func (c *csvWriter) Flush() {
	c.w.Flush()
}

func (c *csvWriter) Error() error {
	if c.err != nil {
		return c.err
	}
	return c.w.Error()
}
