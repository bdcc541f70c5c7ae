package log

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"
)

// Direction of a traced frame.
type Direction int

const (
	// ToTarget is an input report sent to a virtual target.
	ToTarget Direction = iota
	// FromTarget is a feedback message received from a virtual target.
	FromTarget
)

func (d Direction) String() string {
	if d == FromTarget {
		return "V->P"
	}
	return "P->V"
}

// RawLogger dumps frames exchanged with virtual targets.
type RawLogger interface {
	Log(dir Direction, serial uint32, data []byte)
}

type rawLogger struct {
	w  io.Writer
	mu sync.Mutex
}

// NewRaw returns a RawLogger writing to w. A nil w discards everything.
func NewRaw(w io.Writer) RawLogger {
	return &rawLogger{w: w}
}

func (r *rawLogger) Log(dir Direction, serial uint32, data []byte) {
	if r.w == nil || len(data) == 0 {
		return
	}

	var hexbuf bytes.Buffer
	const hexdigits = "0123456789abcdef"
	for i, b := range data {
		if i > 0 {
			hexbuf.WriteByte(' ')
		}
		hexbuf.WriteByte(hexdigits[b>>4])
		hexbuf.WriteByte(hexdigits[b&0x0f])
	}

	line := fmt.Sprintf("%s %s serial=%d %d bytes: %s\n",
		time.Now().Format("15:04:05.000"), dir, serial, len(data), hexbuf.String())

	r.mu.Lock()
	_, _ = io.WriteString(r.w, line)
	r.mu.Unlock()
}
