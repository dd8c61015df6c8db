// loraloopback writes numbered messages to the simulated channel and reads
// them straight back, verifying the link echoes each datagram intact. It is a
// self-check for the simulated transport and only runs against it.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/nexus-embedded/loralink"
)

var (
	path    = flag.String("path", "", "simulated channel path (default $NEXUS_ROOT/lora)")
	count   = flag.Int("count", 0, "number of round trips, 0 = forever")
	timeout = flag.Duration("timeout", time.Second, "per-receive wait bound")
)

func main() {
	flag.Parse()

	radio := loralink.OpenSimulated(*path)
	if rc := radio.Init(); rc != loralink.Okay {
		log.Fatalf("init: %v", rc)
	}

	buf := make([]byte, loralink.PacketMaxSize)
	for counter := 0; *count == 0 || counter < *count; counter++ {
		msg := fmt.Sprintf("[%d]", counter)
		if rc := radio.Send([]byte(msg)); rc != loralink.Okay {
			log.Fatalf("send: %v", rc)
		}
		n, rc := radio.WaitRecv(buf, *timeout)
		if rc != loralink.Okay {
			log.Fatalf("recv: %v", rc)
		}
		if got := string(buf[:n]); got != msg {
			log.Fatalf("expected to read %s but found %s", msg, got)
		}
		log.Println(msg)
	}
}
