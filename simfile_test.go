package loralink

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

// mkfifo stands up a FIFO-backed channel, the closest host-side stand-in for
// the deployed byte channel: writes are readable by a peer descriptor and an
// empty channel blocks readers instead of reporting EOF.
func mkfifo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lora")
	if err := unix.Mkfifo(path, 0o600); err != nil {
		t.Fatalf("mkfifo: %v", err)
	}
	return path
}

// touch creates an empty regular file, matching the channel before any
// traffic.
func touch(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lora")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatalf("create channel file: %v", err)
	}
	return path
}

func TestSimInitMissingPath(t *testing.T) {
	r := OpenSimulated(filepath.Join(t.TempDir(), "no-such-channel"))
	if rc := r.Init(); rc != InitFailed {
		t.Fatalf("init = %v, want InitFailed", rc)
	}
	if r.IsActive() {
		t.Error("radio active after failed init")
	}
}

func TestSimLifecycle(t *testing.T) {
	r := OpenSimulated(touch(t))
	if rc := r.Init(); rc != Okay {
		t.Fatalf("init: %v", rc)
	}
	if !r.IsActive() {
		t.Fatal("not active after init")
	}
	if rc := r.Deinit(); rc != Okay {
		t.Fatalf("deinit: %v", rc)
	}
	if r.IsActive() {
		t.Fatal("still active after deinit")
	}
	if rc := r.Deinit(); rc != NotInit {
		t.Fatalf("second deinit = %v, want NotInit", rc)
	}
}

func TestSimRoundTrip(t *testing.T) {
	path := mkfifo(t)
	tx := OpenSimulated(path)
	rx := OpenSimulated(path)
	if rc := tx.Init(); rc != Okay {
		t.Fatalf("tx init: %v", rc)
	}
	if rc := rx.Init(); rc != Okay {
		t.Fatalf("rx init: %v", rc)
	}

	payload := []byte("TX[0]")
	if rc := tx.Send(payload); rc != Okay {
		t.Fatalf("send: %v", rc)
	}

	buf := make([]byte, PacketMaxSize)
	n, rc := rx.WaitRecv(buf, time.Second)
	if rc != Okay {
		t.Fatalf("recv: %v", rc)
	}
	if !bytes.Equal(buf[:n], payload) {
		t.Errorf("received %q, want %q", buf[:n], payload)
	}
	if rx.LastRSSI() != rssiSentinel {
		t.Errorf("sim backend reported RSSI %d, want sentinel %d", rx.LastRSSI(), rssiSentinel)
	}
}

func TestSimRoundTripMaxSize(t *testing.T) {
	path := mkfifo(t)
	tx := OpenSimulated(path)
	rx := OpenSimulated(path)
	if rc := tx.Init(); rc != Okay {
		t.Fatalf("tx init: %v", rc)
	}
	if rc := rx.Init(); rc != Okay {
		t.Fatalf("rx init: %v", rc)
	}

	payload := make([]byte, PacketMaxSize)
	for i := range payload {
		payload[i] = byte(i)
	}
	if rc := tx.Send(payload); rc != Okay {
		t.Fatalf("send: %v", rc)
	}

	buf := make([]byte, PacketMaxSize)
	n, rc := rx.WaitRecv(buf, time.Second)
	if rc != Okay {
		t.Fatalf("recv: %v", rc)
	}
	if n != PacketMaxSize || !bytes.Equal(buf[:n], payload) {
		t.Errorf("received %d bytes, want full %d-byte payload intact", n, PacketMaxSize)
	}
}

func TestSimOneDatagramPerReceive(t *testing.T) {
	path := mkfifo(t)
	tx := OpenSimulated(path)
	rx := OpenSimulated(path)
	if rc := tx.Init(); rc != Okay {
		t.Fatalf("tx init: %v", rc)
	}
	if rc := rx.Init(); rc != Okay {
		t.Fatalf("rx init: %v", rc)
	}

	buf := make([]byte, PacketMaxSize)
	for _, msg := range []string{"A", "B", "C"} {
		if rc := tx.Send([]byte(msg)); rc != Okay {
			t.Fatalf("send %q: %v", msg, rc)
		}
		n, rc := rx.WaitRecv(buf, time.Second)
		if rc != Okay {
			t.Fatalf("recv after %q: %v", msg, rc)
		}
		if string(buf[:n]) != msg {
			t.Fatalf("received %q, want exactly %q", buf[:n], msg)
		}
	}

	// The channel must now be drained: nothing is delivered twice.
	if _, rc := rx.WaitRecv(buf, 50*time.Millisecond); rc != TimedOut {
		t.Fatalf("drained channel recv = %v, want TimedOut", rc)
	}
}

func TestSimRecvTimeoutFIFO(t *testing.T) {
	r := OpenSimulated(mkfifo(t))
	if rc := r.Init(); rc != Okay {
		t.Fatalf("init: %v", rc)
	}

	buf := make([]byte, 16)
	for i := range buf {
		buf[i] = 0xAA
	}

	start := time.Now()
	n, rc := r.WaitRecv(buf, 200*time.Millisecond)
	elapsed := time.Since(start)

	if rc != TimedOut || n != 0 {
		t.Fatalf("recv = (%d, %v), want (0, TimedOut)", n, rc)
	}
	if elapsed < 150*time.Millisecond || elapsed > 500*time.Millisecond {
		t.Errorf("timed out after %v, want about 200ms", elapsed)
	}
	for i := range buf {
		if buf[i] != 0xAA {
			t.Fatal("buffer modified on timeout")
		}
	}
}

func TestSimRecvTimeoutRegularFile(t *testing.T) {
	// Regular files refuse poller deadlines, exercising the poll loop.
	r := OpenSimulated(touch(t))
	if rc := r.Init(); rc != Okay {
		t.Fatalf("init: %v", rc)
	}

	start := time.Now()
	n, rc := r.WaitRecv(make([]byte, 16), 200*time.Millisecond)
	elapsed := time.Since(start)

	if rc != TimedOut || n != 0 {
		t.Fatalf("recv = (%d, %v), want (0, TimedOut)", n, rc)
	}
	if elapsed < 150*time.Millisecond || elapsed > 500*time.Millisecond {
		t.Errorf("timed out after %v, want about 200ms", elapsed)
	}
}

func TestSimBlockingRecvDeliversLateData(t *testing.T) {
	path := mkfifo(t)
	tx := OpenSimulated(path)
	rx := OpenSimulated(path)
	if rc := tx.Init(); rc != Okay {
		t.Fatalf("tx init: %v", rc)
	}
	if rc := rx.Init(); rc != Okay {
		t.Fatalf("rx init: %v", rc)
	}

	type result struct {
		n  int
		rc RC
	}
	got := make(chan result, 1)
	buf := make([]byte, PacketMaxSize)
	go func() {
		n, rc := rx.WaitRecv(buf, 0)
		got <- result{n, rc}
	}()

	time.Sleep(50 * time.Millisecond)
	if rc := tx.Send([]byte("late")); rc != Okay {
		t.Fatalf("send: %v", rc)
	}

	select {
	case res := <-got:
		if res.rc != Okay {
			t.Fatalf("blocking recv = %v, want Okay", res.rc)
		}
		if string(buf[:res.n]) != "late" {
			t.Errorf("received %q, want %q", buf[:res.n], "late")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("blocking recv did not return after data arrived")
	}
}

func TestSimBlockingRecvFailsOnDeadChannel(t *testing.T) {
	// At EOF on a regular file a blocking read cannot wait for data; the
	// contract is RecvFailed, never TimedOut.
	r := OpenSimulated(touch(t))
	if rc := r.Init(); rc != Okay {
		t.Fatalf("init: %v", rc)
	}
	n, rc := r.WaitRecv(make([]byte, 16), 0)
	if rc != RecvFailed || n != 0 {
		t.Fatalf("recv = (%d, %v), want (0, RecvFailed)", n, rc)
	}
}

func TestSimSendAutoInits(t *testing.T) {
	r := OpenSimulated(touch(t))
	if rc := r.Send([]byte("A")); rc != Okay {
		t.Fatalf("send without init: %v", rc)
	}
	if !r.IsActive() {
		t.Error("send did not claim the channel")
	}
}

func TestSimDefaultPath(t *testing.T) {
	t.Setenv("NEXUS_ROOT", "/tmp/nexus-root")
	if got := DefaultSimPath(); got != filepath.Join("/tmp/nexus-root", "lora") {
		t.Errorf("DefaultSimPath = %q", got)
	}
}
