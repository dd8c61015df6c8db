// loratx sends a numbered counter message in a loop, mirroring a periodic
// telemetry transmitter. Any send failure is fatal.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/nexus-embedded/loralink"
)

var (
	sim      = flag.Bool("sim", false, "drive the simulated file channel instead of the radio chip")
	path     = flag.String("path", "", "simulated channel path (default $NEXUS_ROOT/lora)")
	interval = flag.Duration("interval", time.Second, "delay between packets")
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

	for counter := 0; ; counter++ {
		msg := fmt.Sprintf("TX[%d]", counter)
		if rc := radio.Send([]byte(msg)); rc != loralink.Okay {
			log.Fatalf("send: %v", rc)
		}
		log.Println(msg)
		time.Sleep(*interval)
	}
}

func openRadio() (*loralink.Radio, error) {
	if *sim {
		return loralink.OpenSimulated(*path), nil
	}
	return loralink.OpenSX127x(loralink.HardwareConfig{})
}
