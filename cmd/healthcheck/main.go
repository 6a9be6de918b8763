// Command healthcheck is the container HEALTHCHECK for infraconfig. It exits
// 0 only when the API answers 200 with {"status":"ok"}.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"
)

const (
	defaultAddr = "127.0.0.1:8080"
	defaultPath = "/api/v1/health"
	timeout     = 2 * time.Second
)

func main() {
	target := healthURL(os.Getenv("LISTEN_ADDR"), os.Getenv("HEALTHCHECK_PATH"))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := checkHealth(ctx, &http.Client{Timeout: timeout}, target); err != nil {
		fmt.Fprintln(os.Stderr, "healthcheck:", err)
		os.Exit(1)
	}
}

// checkHealth requires a 200 whose body reports status "ok".
func checkHealth(ctx context.Context, client *http.Client, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body); err != nil {
		return fmt.Errorf("decode health response: %w", err)
	}
	if body.Status != "ok" {
		return errors.New("service reports status " + body.Status)
	}
	return nil
}

// healthURL targets loopback even when the server binds every interface,
// since the check runs inside the same container.
func healthURL(listenAddr, path string) string {
	if path == "" {
		path = defaultPath
	}

	host, port, err := net.SplitHostPort(listenAddr)
	if err != nil {
		return "http://" + defaultAddr + path
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port) + path
}
