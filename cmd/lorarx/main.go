// lorarx polls the link with a bounded wait and prints every payload it
// receives. Timeouts are reported and polling continues; any other receive
// failure is fatal.
package main

import (
	"flag"
	"log"
	"time"

	"github.com/nexus-embedded/loralink"
)

var (
	sim     = flag.Bool("sim", false, "drive the simulated file channel instead of the radio chip")
	path    = flag.String("path", "", "simulated channel path (default $NEXUS_ROOT/lora)")
	timeout = flag.Duration("timeout", 5*time.Second, "per-receive wait bound")
)

func main() {
	flag.Parse()

	radio, err := openRadio()
	if err != nil {
		log.Fatalf("open radio: %v", err)
	}
	if rc := radio.Init(); rc != loralink.Okay {
		log.Fatalf("init: %v", rc)
	}

	buf := make([]byte, loralink.PacketMaxSize)
	for {
		n, rc := radio.WaitRecv(buf, *timeout)
		switch rc {
		case loralink.Okay:
			log.Printf("%s (rssi %d)", buf[:n], radio.LastRSSI())
		case loralink.TimedOut:
			log.Println("timed out")
		default:
			log.Fatalf("recv: %v", rc)
		}
	}
}

func openRadio() (*loralink.Radio, error) {
	if *sim {
		return loralink.OpenSimulated(*path), nil
	}
	return loralink.OpenSX127x(loralink.HardwareConfig{})
}
