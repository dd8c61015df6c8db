// Package loralink moves single bounded-size datagrams over a point-to-point
// LoRa link. Two backends implement the same contract: an SPI-attached SX127x
// radio for deployed nodes, and a file-backed simulated channel for host-side
// testing. The backend is chosen once, by which Open function constructs the
// Radio; call sites never branch on it.
//
// Every operation returns an RC result code. The core never retries, never
// logs, and never panics: whether a failure is fatal or recoverable is the
// caller's decision.
//
// A Radio owns the single physical (or simulated) transceiver and its methods
// are not safe for concurrent use. The intended deployment is one logical
// thread driving one Radio; callers needing more must synchronize externally.
package loralink

import "time"

// PacketMaxSize is the largest payload, in bytes, the link carries in one
// datagram. Callers must not pass Send a longer buffer.
const PacketMaxSize = 251

// rssiSentinel is reported until a backend records a real reading.
const rssiSentinel = 1

// transport is the backend capability behind a Radio. Both implementations
// live in this package; the interface is unexported so no second owner of the
// underlying resource can be constructed from outside.
type transport interface {
	init() RC
	deinit() RC
	send(p []byte) RC
	recvTimeout(buf []byte, timeout time.Duration) (int, RC)
	lastRSSI() int16
}

// Radio is the handle to the link. Construct one with OpenSX127x or
// OpenSimulated; the zero value is not usable.
type Radio struct {
	t      transport
	active bool
}

// IsActive reports whether the underlying resource is currently claimed.
func (r *Radio) IsActive() bool { return r.active }

// LastRSSI returns the signal strength recorded for the most recently
// received packet, or the sentinel value 1 if no packet has been received.
func (r *Radio) LastRSSI() int16 { return r.t.lastRSSI() }

// Init claims and powers up the backend. Calling Init on an already active
// Radio is a no-op returning Okay; the hardware is not reconfigured.
func (r *Radio) Init() RC {
	if r.active {
		return Okay
	}
	if rc := r.t.init(); rc != Okay {
		return rc
	}
	r.active = true
	return Okay
}

// Deinit releases the backend. Returns NotInit if the Radio is not active.
// On DeinitFailed the resource is still considered claimed.
func (r *Radio) Deinit() RC {
	if !r.active {
		return NotInit
	}
	if rc := r.t.deinit(); rc != Okay {
		return rc
	}
	r.active = false
	return Okay
}

// Send hands one datagram, at most PacketMaxSize bytes, to the transport.
// If the Radio is not active it is initialized first, and an init failure is
// returned as the send's result. On Okay the full payload has been handed to
// the transport; there is no internal retry.
func (r *Radio) Send(p []byte) RC {
	if rc := r.Init(); rc != Okay {
		return rc
	}
	return r.t.send(p)
}

// WaitRecv blocks until one datagram arrives and copies it into buf, whose
// capacity bounds the copy. It returns the number of bytes received. A zero
// timeout blocks indefinitely; a positive timeout bounds the wait and yields
// TimedOut, with buf untouched, if no datagram arrives in the window. If the
// Radio is not active it is initialized first.
func (r *Radio) WaitRecv(buf []byte, timeout time.Duration) (int, RC) {
	if rc := r.Init(); rc != Okay {
		return 0, rc
	}
	return r.t.recvTimeout(buf, timeout)
}
