package loralink

import (
	"io"
	"os"
	"path/filepath"
	"time"
)

// simPollInterval is the read retry granularity when the backing descriptor
// does not support poller deadlines.
const simPollInterval = time.Millisecond

// DefaultSimPath resolves the simulated channel location from the deployment
// environment: $NEXUS_ROOT/lora when NEXUS_ROOT is set, ~/nexus/lora
// otherwise.
func DefaultSimPath() string {
	if root := os.Getenv("NEXUS_ROOT"); root != "" {
		return filepath.Join(root, "lora")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("nexus", "lora")
	}
	return filepath.Join(home, "nexus", "lora")
}

// simChannel is the file-backed transport used for host-side testing. The
// descriptor is opened on init and owned exclusively until deinit.
type simChannel struct {
	path string
	f    *os.File
}

// OpenSimulated returns a Radio backed by the byte channel at path. An empty
// path selects DefaultSimPath. The channel is not opened until Init.
func OpenSimulated(path string) *Radio {
	if path == "" {
		path = DefaultSimPath()
	}
	return &Radio{t: &simChannel{path: path}}
}

func (s *simChannel) init() RC {
	f, err := os.OpenFile(s.path, os.O_RDWR, 0)
	if err != nil {
		return InitFailed
	}
	s.f = f
	return Okay
}

func (s *simChannel) deinit() RC {
	if err := s.f.Close(); err != nil {
		return DeinitFailed
	}
	s.f = nil
	return Okay
}

func (s *simChannel) send(p []byte) RC {
	n, err := s.f.Write(p)
	if err != nil || n != len(p) {
		return SendFailed
	}
	return Okay
}

func (s *simChannel) recvTimeout(buf []byte, timeout time.Duration) (int, RC) {
	if timeout == 0 {
		n, err := s.f.Read(buf)
		if err != nil || n <= 0 {
			return 0, RecvFailed
		}
		return n, Okay
	}

	deadline := time.Now().Add(timeout)
	if err := s.f.SetReadDeadline(deadline); err == nil {
		defer s.f.SetReadDeadline(time.Time{})
		n, err := s.f.Read(buf)
		if n > 0 {
			return n, Okay
		}
		if os.IsTimeout(err) {
			return 0, TimedOut
		}
		return 0, RecvFailed
	}

	// The descriptor is not pollable (a regular file): retry reads at
	// millisecond granularity against the deadline.
	for {
		n, err := s.f.Read(buf)
		if n > 0 {
			return n, Okay
		}
		if err != nil && err != io.EOF {
			return 0, RecvFailed
		}
		if !time.Now().Before(deadline) {
			return 0, TimedOut
		}
		time.Sleep(simPollInterval)
	}
}

func (s *simChannel) lastRSSI() int16 { return rssiSentinel }
