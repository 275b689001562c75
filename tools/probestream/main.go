// Command probestream runs the resolution probe against a stream URL and
// prints the measured quality info. Useful for checking what a provider's
// playlist actually advertises.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"oriontv/services/probe"
)

func main() {
	var (
		timeout = flag.Duration("timeout", 10*time.Second, "Probe timeout")
		sample  = flag.Int64("sample", 256*1024, "Segment sample size in bytes")
	)
	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatalf("usage: probestream [flags] <stream-url>")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	prober := probe.NewProber(&http.Client{Timeout: *timeout}, *sample)
	qi, err := prober.Estimate(ctx, flag.Arg(0))
	if err != nil {
		log.Fatalf("probe failed: %v", err)
	}

	fmt.Printf("quality: %s\n", qi.Quality)
	fmt.Printf("speed:   %s\n", qi.LoadSpeed)
	fmt.Printf("ping:    %dms\n", qi.PingTime)
}
