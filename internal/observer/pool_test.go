package observer

import (
	"bufio"
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/nerrad567/irhvac-core/internal/hvac"
)

// peer is the client end of a piped observer connection.
type peer struct {
	conn    net.Conn
	scanner *bufio.Scanner
}

func newPeer(t *testing.T) (server net.Conn, client *peer) {
	t.Helper()
	s, c := net.Pipe()
	t.Cleanup(func() {
		s.Close()
		c.Close()
	})
	return s, &peer{conn: c, scanner: bufio.NewScanner(c)}
}

func (p *peer) readState(t *testing.T) hvac.StateMessage {
	t.Helper()
	p.conn.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck
	if !p.scanner.Scan() {
		t.Fatalf("read failed: %v", p.scanner.Err())
	}
	var msg hvac.StateMessage
	if err := json.Unmarshal(p.scanner.Bytes(), &msg); err != nil {
		t.Fatalf("Unmarshal(%s) error = %v", p.scanner.Bytes(), err)
	}
	return msg
}

func (p *peer) expectSilence(t *testing.T) {
	t.Helper()
	p.conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond)) //nolint:errcheck
	if p.scanner.Scan() {
		t.Fatalf("unexpected message %s", p.scanner.Bytes())
	}
}

func snapshot(ids ...string) []hvac.StateMessage {
	out := make([]hvac.StateMessage, 0, len(ids))
	for _, id := range ids {
		out = append(out, hvac.DefaultState().Message(id))
	}
	return out
}

func newLinePool() *Pool {
	return NewPool(Options{Name: "line", Capacity: 4, Terminator: []byte("\n")})
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestAttachPushesSnapshot(t *testing.T) {
	pool := newLinePool()
	defer pool.Close()

	server, client := newPeer(t)
	s, err := pool.Attach(server, snapshot("lounge", "bedroom"))
	if err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	if s.Slot != 0 || s.ID == "" {
		t.Errorf("session = slot %d id %q", s.Slot, s.ID)
	}

	for _, want := range []string{"lounge", "bedroom"} {
		if got := client.readState(t); got.ID != want || got.Type != "state" {
			t.Errorf("snapshot message = %+v, want state for %s", got, want)
		}
	}
}

func TestPoolRefusesWhenFull(t *testing.T) {
	pool := newLinePool()
	defer pool.Close()

	sessions := make([]*Session, 0, 4)
	for i := 0; i < 4; i++ {
		server, _ := newPeer(t)
		s, err := pool.Attach(server, nil)
		if err != nil {
			t.Fatalf("Attach(%d) error = %v", i, err)
		}
		sessions = append(sessions, s)
	}

	server, _ := newPeer(t)
	if _, err := pool.Attach(server, nil); !errors.Is(err, ErrPoolFull) {
		t.Fatalf("fifth Attach() error = %v, want ErrPoolFull", err)
	}

	pool.Detach(sessions[2])
	if got := pool.Live(); got != 3 {
		t.Errorf("Live() = %d, want 3", got)
	}

	server, client := newPeer(t)
	s, err := pool.Attach(server, snapshot("lounge"))
	if err != nil {
		t.Fatalf("Attach() after detach error = %v", err)
	}
	if s.Slot != 2 {
		t.Errorf("Slot = %d, want reused slot 2", s.Slot)
	}
	if got := client.readState(t); got.ID != "lounge" {
		t.Errorf("snapshot = %+v, want lounge", got)
	}
}

func TestBroadcastExcludesOrigin(t *testing.T) {
	pool := newLinePool()
	defer pool.Close()

	var (
		clients  []*peer
		sessions []*Session
	)
	for i := 0; i < 3; i++ {
		server, client := newPeer(t)
		s, err := pool.Attach(server, nil)
		if err != nil {
			t.Fatalf("Attach() error = %v", err)
		}
		clients = append(clients, client)
		sessions = append(sessions, s)
	}

	msg := hvac.DefaultState().Message("lounge")
	msg.Power = "on"
	pool.Broadcast(msg, sessions[1].Slot)

	for i, c := range clients {
		if i == 1 {
			c.expectSilence(t)
			continue
		}
		if got := c.readState(t); got.Power != "on" {
			t.Errorf("client %d got %+v", i, got)
		}
	}
}

func TestDeadSessionFreesSlot(t *testing.T) {
	pool := NewPool(Options{Capacity: 1, Terminator: []byte("\n")})
	defer pool.Close()

	server, client := newPeer(t)
	s, err := pool.Attach(server, nil)
	if err != nil {
		t.Fatalf("Attach() error = %v", err)
	}

	client.conn.Close()
	pool.Broadcast(hvac.DefaultState().Message("lounge"), hvac.NoSlot)
	waitFor(t, func() bool { return !s.Alive() })

	server2, client2 := newPeer(t)
	if _, err := pool.Attach(server2, snapshot("lounge")); err != nil {
		t.Fatalf("Attach() into dead slot error = %v", err)
	}
	if got := client2.readState(t); got.ID != "lounge" {
		t.Errorf("snapshot = %+v", got)
	}
}

func TestBroadcastDropsOnFullQueue(t *testing.T) {
	var drops int
	pool := NewPool(Options{Capacity: 1, QueueSize: 1, OnDrop: func(int) { drops++ }})
	defer pool.Close()

	// The client never reads, so the writer blocks on the first message
	// and the queue fills behind it.
	server, _ := newPeer(t)
	if _, err := pool.Attach(server, nil); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}

	msg := hvac.DefaultState().Message("lounge")
	for i := 0; i < 5; i++ {
		pool.Broadcast(msg, hvac.NoSlot)
	}
	if drops == 0 {
		t.Error("expected dropped messages for a stalled observer")
	}
}

func TestClosedPoolRefuses(t *testing.T) {
	pool := newLinePool()
	pool.Close()

	server, _ := newPeer(t)
	if _, err := pool.Attach(server, nil); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("Attach() error = %v, want ErrPoolClosed", err)
	}
}

type countingBroadcaster struct {
	excludes []int
}

func (c *countingBroadcaster) Broadcast(_ hvac.StateMessage, exclude int) {
	c.excludes = append(c.excludes, exclude)
}

func TestFanout(t *testing.T) {
	a, b := &countingBroadcaster{}, &countingBroadcaster{}
	Fanout{a, nil, b}.Broadcast(hvac.StateMessage{}, 2)

	if len(a.excludes) != 1 || a.excludes[0] != 2 {
		t.Errorf("first target excludes = %v, want [2]", a.excludes)
	}
	if len(b.excludes) != 1 || b.excludes[0] != hvac.NoSlot {
		t.Errorf("second target excludes = %v, want [%d]", b.excludes, hvac.NoSlot)
	}
}
