// Command devlensctl is a thin operator CLI over a running devlensd: health
// checks and a throwaway /sdk smoke test. It is not the tool-registration
// adapter layer (out of core scope, spec.md §1) — just an operational
// probe, in the spirit of the teacher's isServerRunning/waitForServer
// helpers in cmd/dev-console/bridge.go.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

func main() {
	fs := flag.NewFlagSet("devlensctl", flag.ExitOnError)
	host := fs.String("host", "127.0.0.1", "daemon host")
	port := fs.Int("port", 8711, "daemon port")
	fs.Parse(os.Args[1:])

	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: devlensctl [-host H] [-port P] <health|smoke>")
		os.Exit(2)
	}

	addr := fmt.Sprintf("%s:%d", *host, *port)
	switch fs.Arg(0) {
	case "health":
		runHealth(addr)
	case "smoke":
		runSmoke(addr)
	default:
		fmt.Fprintf(os.Stderr, "devlensctl: unknown command %q\n", fs.Arg(0))
		os.Exit(2)
	}
}

func runHealth(addr string) {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://%s/healthz", addr))
	if err != nil {
		fmt.Fprintf(os.Stderr, "devlensctl: health check failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "devlensctl: daemon unhealthy, status %d\n", resp.StatusCode)
		os.Exit(1)
	}
	fmt.Printf("devlensctl: %s is healthy\n", addr)
}

// runSmoke opens a throwaway /sdk connection, sends a session frame, and
// reports success — a sanity check that the collector accepts connections
// and the first-frame session contract works (spec.md §4.4) without
// requiring a real SDK.
func runSmoke(addr string) {
	url := fmt.Sprintf("ws://%s/sdk", addr)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "devlensctl: dial %s failed: %v\n", url, err)
		os.Exit(1)
	}
	defer conn.Close()

	sessionID := "devlensctl-smoke-" + uuid.NewString()
	frame := map[string]any{
		"eventId":     uuid.NewString(),
		"sessionId":   sessionID,
		"timestamp":   time.Now().UnixMilli(),
		"eventType":   "session",
		"appName":     "devlensctl",
		"connectedAt": time.Now().UnixMilli(),
		"sdkVersion":  "smoke",
	}
	payload, err := json.Marshal(frame)
	if err != nil {
		fmt.Fprintf(os.Stderr, "devlensctl: encode smoke frame: %v\n", err)
		os.Exit(1)
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		fmt.Fprintf(os.Stderr, "devlensctl: send session frame failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("devlensctl: opened session %s against %s\n", sessionID, addr)
}
