package testing

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/Alia5/steamtarget/gamepad"
	"github.com/Alia5/steamtarget/internal/auth"
)

// FakeViiper is an in-process VIIPER API server: enough of the bus/device
// routes and the xbox360 stream to drive the client and the driver.
type FakeViiper struct {
	Addr string

	t   *testing.T
	ln  net.Listener
	key []byte

	mu       sync.Mutex
	buses    map[uint32][]string
	nextDev  map[uint32]int
	states   map[string]gamepad.InputState
	streams  map[string]net.Conn
	FailAdd  bool
	Requests []string
}

// StartFakeViiper listens on a random localhost port. A non-empty password
// enables the auth handshake on every connection.
func StartFakeViiper(t *testing.T, password string) *FakeViiper {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	f := &FakeViiper{
		Addr:    ln.Addr().String(),
		t:       t,
		ln:      ln,
		buses:   map[uint32][]string{},
		nextDev: map[uint32]int{},
		states:  map[string]gamepad.InputState{},
		streams: map[string]net.Conn{},
	}
	if password != "" {
		f.key, err = auth.DeriveKey(password)
		if err != nil {
			t.Fatalf("derive key: %v", err)
		}
	}
	go f.serve()
	t.Cleanup(f.Close)
	return f
}

func (f *FakeViiper) Close() {
	_ = f.ln.Close()
	f.mu.Lock()
	for _, c := range f.streams {
		_ = c.Close()
	}
	f.mu.Unlock()
}

// AddBus pre-creates a bus as if another client owned it.
func (f *FakeViiper) AddBus(id uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buses[id] = nil
}

// Buses returns a copy of the bus table.
func (f *FakeViiper) Buses() map[uint32][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[uint32][]string, len(f.buses))
	for k, v := range f.buses {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// State returns the last input frame received on bus/dev.
func (f *FakeViiper) State(bus uint32, dev string) (gamepad.InputState, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.states[fmt.Sprintf("%d/%s", bus, dev)]
	return s, ok
}

// Rumble pushes a rumble message to the stream of bus/dev.
func (f *FakeViiper) Rumble(bus uint32, dev string, r gamepad.Rumble) error {
	f.mu.Lock()
	c, ok := f.streams[fmt.Sprintf("%d/%s", bus, dev)]
	f.mu.Unlock()
	if !ok {
		return fmt.Errorf("no stream for %d/%s", bus, dev)
	}
	b, _ := r.MarshalBinary()
	_, err := c.Write(b)
	return err
}

// StreamOpen reports whether a stream is connected for bus/dev.
func (f *FakeViiper) StreamOpen(bus uint32, dev string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.streams[fmt.Sprintf("%d/%s", bus, dev)]
	return ok
}

func (f *FakeViiper) serve() {
	for {
		c, err := f.ln.Accept()
		if err != nil {
			return
		}
		go f.handle(c)
	}
}

func (f *FakeViiper) handle(conn net.Conn) {
	r := bufio.NewReader(conn)
	if f.key != nil {
		sc, err := auth.SecureServer(conn, r, f.key)
		if err != nil {
			conn.Close()
			return
		}
		conn = sc
		r = bufio.NewReader(conn)
	}
	req, err := r.ReadString('\x00')
	if err != nil {
		conn.Close()
		return
	}
	req = strings.TrimSuffix(req, "\x00")
	path, payload, _ := strings.Cut(req, " ")

	f.mu.Lock()
	f.Requests = append(f.Requests, path)
	f.mu.Unlock()

	parts := strings.Split(path, "/")
	if len(parts) == 3 && parts[0] == "bus" && parts[2] != "add" && parts[2] != "remove" && parts[2] != "list" {
		f.stream(conn, r, parts[1], parts[2])
		return
	}
	defer conn.Close()
	fmt.Fprintf(conn, "%s\n", f.route(parts, payload))
}

func (f *FakeViiper) route(parts []string, payload string) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case len(parts) == 1 && parts[0] == "ping":
		return `{"server":"fake","version":"0.0.0"}`
	case len(parts) == 2 && parts[1] == "list":
		ids := make([]uint32, 0, len(f.buses))
		for id := range f.buses {
			ids = append(ids, id)
		}
		b, _ := json.Marshal(map[string]any{"buses": ids})
		return string(b)
	case len(parts) == 2 && parts[1] == "create":
		id, err := strconv.ParseUint(payload, 10, 32)
		if err != nil || id == 0 {
			return `{"status":400,"title":"Bad Request","detail":"invalid busId"}`
		}
		if _, ok := f.buses[uint32(id)]; ok {
			return `{"status":409,"title":"Conflict","detail":"bus exists"}`
		}
		f.buses[uint32(id)] = nil
		return fmt.Sprintf(`{"busId":%d}`, id)
	case len(parts) == 2 && parts[1] == "remove":
		id, _ := strconv.ParseUint(payload, 10, 32)
		if _, ok := f.buses[uint32(id)]; !ok {
			return `{"status":404,"title":"Not Found","detail":"bus not found"}`
		}
		delete(f.buses, uint32(id))
		return fmt.Sprintf(`{"busId":%d}`, id)
	case len(parts) == 3:
		id, _ := strconv.ParseUint(parts[1], 10, 32)
		bus := uint32(id)
		devs, ok := f.buses[bus]
		if !ok {
			return fmt.Sprintf(`{"status":404,"title":"Not Found","detail":"bus %d not found"}`, bus)
		}
		switch parts[2] {
		case "add":
			if f.FailAdd {
				return `{"status":500,"title":"Internal Server Error","detail":"no free port"}`
			}
			f.nextDev[bus]++
			dev := strconv.Itoa(f.nextDev[bus])
			f.buses[bus] = append(devs, dev)
			return fmt.Sprintf(`{"busId":%d,"devId":"%s","vid":"0x045e","pid":"0x028e","type":"xbox360"}`, bus, dev)
		case "remove":
			for i, d := range devs {
				if d == payload {
					f.buses[bus] = append(devs[:i], devs[i+1:]...)
					return fmt.Sprintf(`{"busId":%d,"devId":"%s"}`, bus, d)
				}
			}
			return `{"status":404,"title":"Not Found","detail":"device not found"}`
		case "list":
			out := make([]map[string]any, 0, len(devs))
			for _, d := range devs {
				out = append(out, map[string]any{"busId": bus, "devId": d, "vid": "0x045e", "pid": "0x028e", "type": "xbox360"})
			}
			b, _ := json.Marshal(map[string]any{"devices": out})
			return string(b)
		}
	}
	return `{"status":404,"title":"Not Found","detail":"unknown path"}`
}

func (f *FakeViiper) stream(conn net.Conn, r io.Reader, busStr, dev string) {
	key := busStr + "/" + dev
	f.mu.Lock()
	f.streams[key] = conn
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		if f.streams[key] == conn {
			delete(f.streams, key)
		}
		f.mu.Unlock()
		_ = conn.Close()
	}()

	buf := make([]byte, gamepad.StreamFrameSize)
	for {
		if _, err := io.ReadFull(r, buf); err != nil {
			return
		}
		var st gamepad.InputState
		if err := st.UnmarshalBinary(buf); err != nil {
			return
		}
		f.mu.Lock()
		f.states[key] = st
		f.mu.Unlock()
	}
}

// SetFailAdd makes every following device add fail.
func (f *FakeViiper) SetFailAdd(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.FailAdd = v
}
