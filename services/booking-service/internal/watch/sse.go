package watch

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"
)

// maxFrameBytes bounds a single line; init snapshots can be large.
const maxFrameBytes = 8 << 20

// Frame is one dispatched block of an event stream.
type Frame struct {
	Event   string
	Data    string
	Comment string
	Retry   time.Duration
}

// Decoder reads text/event-stream frames.
type Decoder struct {
	sc *bufio.Scanner
}

func NewDecoder(r io.Reader) *Decoder {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxFrameBytes)
	return &Decoder{sc: sc}
}

// Next returns the next non-empty frame. It returns io.EOF when the stream
// ends cleanly between frames.
func (d *Decoder) Next() (Frame, error) {
	var (
		f    Frame
		data []string
		seen bool
	)
	for d.sc.Scan() {
		line := d.sc.Text()
		if line == "" {
			if !seen {
				continue
			}
			f.Data = strings.Join(data, "\n")
			return f, nil
		}
		seen = true

		if strings.HasPrefix(line, ":") {
			f.Comment = strings.TrimSpace(line[1:])
			continue
		}
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			f.Event = value
		case "data":
			data = append(data, value)
		case "retry":
			if ms, err := strconv.Atoi(value); err == nil && ms >= 0 {
				f.Retry = time.Duration(ms) * time.Millisecond
			}
		}
	}
	if err := d.sc.Err(); err != nil {
		return Frame{}, err
	}
	return Frame{}, io.EOF
}
