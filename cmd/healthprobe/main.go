package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/valyala/fasthttp"
)

// healthprobe polls a chatd /readyz endpoint and exits 0 once the server
// reports ready, or 1 when the deadline passes. Intended as a lean sidecar
// for container healthchecks and CI waits.
func main() {
	target := flag.String("target", "http://127.0.0.1:8080/readyz", "readiness URL to poll")
	timeout := flag.Duration("timeout", 30*time.Second, "total time to wait for readiness")
	interval := flag.Duration("interval", 500*time.Millisecond, "poll interval")
	flag.Parse()

	client := &fasthttp.Client{
		Name:         "chatd-healthprobe",
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	}

	deadline := time.Now().Add(*timeout)
	for {
		code, body, err := client.Get(nil, *target)
		if err == nil && code == fasthttp.StatusOK {
			fmt.Printf("ready: %s\n", string(body))
			os.Exit(0)
		}
		if time.Now().After(deadline) {
			if err != nil {
				fmt.Fprintf(os.Stderr, "not ready: %v\n", err)
			} else {
				fmt.Fprintf(os.Stderr, "not ready: status %d\n", code)
			}
			os.Exit(1)
		}
		time.Sleep(*interval)
	}
}
