// Command healthcheck queries the tinyutterances health endpoint and exits
// non-zero when the server is not serving. It is meant for container
// HEALTHCHECK directives, where no shell or curl is available.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"
)

const defaultAddr = "127.0.0.1:8080"

func main() {
	os.Exit(check(os.Getenv("TINYUTTERANCES_LISTEN_ADDR")))
}

func check(listenAddr string) int {
	url := fmt.Sprintf("http://%s/api/v1/health", normalizeAddr(listenAddr))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := fetchHealth(ctx, http.DefaultClient, url); err != nil {
		fmt.Fprintln(os.Stderr, "healthcheck:", err)
		return 1
	}
	return 0
}

// fetchHealth requires a 200 response whose JSON body reports status "ok".
func fetchHealth(ctx context.Context, client *http.Client, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<10)).Decode(&body); err != nil {
		return fmt.Errorf("decoding health response: %w", err)
	}
	if body.Status != "ok" {
		return fmt.Errorf("server reports status %q", body.Status)
	}

	return nil
}

// normalizeAddr points the check at loopback when the server binds every
// interface, since the check runs inside the same container.
func normalizeAddr(raw string) string {
	if raw == "" {
		return defaultAddr
	}

	host, port, err := net.SplitHostPort(raw)
	if err != nil {
		return defaultAddr
	}

	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}

	return net.JoinHostPort(host, port)
}
