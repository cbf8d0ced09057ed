/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package telemetry sends opt-in anonymous usage events and crash reports.
// Nothing leaves the machine unless CHS_TELEMETRY_OPT_IN is set and an endpoint is configured.
// Events never carry file paths or character content.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"charsheet/internal/config"
	applog "charsheet/internal/log"
	"charsheet/internal/version"
)

// Environment variables read by FromEnv.
const (
	EnvOptIn     = "CHS_TELEMETRY_OPT_IN"
	EnvEventsURL = "CHS_TELEMETRY_URL"
	EnvCrashURL  = "CHS_CRASH_UPLOAD_URL"
	EnvTimeoutMS = "CHS_TELEMETRY_TIMEOUT_MS"
	EnvToken     = "CHS_TELEMETRY_TOKEN"
)

// Config holds runtime configuration for telemetry and crash uploads.
type Config struct {
	OptIn     bool
	EventsURL string
	CrashURL  string
	Timeout   time.Duration
	// Token is sent as a bearer token when set.
	Token string
}

// FromEnv builds a Config. The timeout defaults to 1.5s. When opted in without
// CHS_TELEMETRY_TOKEN, the token comes from the OS keyring.
func FromEnv() Config {
	cfg := Config{
		OptIn:     parseBool(os.Getenv(EnvOptIn)),
		EventsURL: strings.TrimSpace(os.Getenv(EnvEventsURL)),
		CrashURL:  strings.TrimSpace(os.Getenv(EnvCrashURL)),
		Timeout:   1500 * time.Millisecond,
	}
	if ms, err := strconv.Atoi(strings.TrimSpace(os.Getenv(EnvTimeoutMS))); err == nil && ms > 0 {
		cfg.Timeout = time.Duration(ms) * time.Millisecond
	}
	cfg.Token = strings.TrimSpace(os.Getenv(EnvToken))
	if cfg.OptIn && cfg.Token == "" {
		if tok, err := config.TelemetryToken(); err == nil {
			cfg.Token = tok
		}
	}
	return cfg
}

func parseBool(v string) bool {
	s := strings.ToLower(strings.TrimSpace(v))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

// Client queues events and posts them from one goroutine. Full queues drop events.
// A nil *Client is valid and sends nothing.
type Client struct {
	cfg  Config
	log  *slog.Logger
	http *http.Client
	q    chan map[string]any
	wg   sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// New starts a client.
func New(cfg Config) *Client {
	c := &Client{
		cfg:  cfg,
		log:  applog.WithComponent("telemetry"),
		http: &http.Client{Timeout: cfg.Timeout},
		q:    make(chan map[string]any, 64),
	}
	c.wg.Add(1)
	go c.loop()
	return c
}

var (
	defaultMu     sync.Mutex
	defaultClient *Client
)

// Default returns the process wide client, created from the environment on first use.
func Default() *Client {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultClient == nil {
		defaultClient = New(FromEnv())
	}
	return defaultClient
}

// SetDefault replaces the process wide client.
func SetDefault(c *Client) {
	defaultMu.Lock()
	defaultClient = c
	defaultMu.Unlock()
}

// Enabled reports whether events are sent.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.EventsURL != "" }

// Event queues a named event. props must not contain personal data.
func (c *Client) Event(name string, props map[string]any) {
	if !c.Enabled() || name == "" {
		return
	}
	payload := map[string]any{
		"name":    name,
		"ts":      time.Now().UTC().Format(time.RFC3339Nano),
		"version": version.String(),
		"os":      runtime.GOOS,
		"arch":    runtime.GOARCH,
	}
	for k, v := range props {
		payload[k] = v
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.q <- payload:
	default:
	}
}

// Close sends what is queued and stops the client. Later events are dropped.
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.q)
	}
	c.mu.Unlock()
	c.wg.Wait()
}

func (c *Client) loop() {
	defer c.wg.Done()
	for item := range c.q {
		body, err := json.Marshal(item)
		if err != nil {
			continue
		}
		c.post(context.Background(), c.cfg.EventsURL, "application/json", body)
	}
}

// UploadCrash posts a crash report and waits for the request to finish, since the
// process exits right after.
func (c *Client) UploadCrash(report []byte) {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		return
	}
	c.post(context.Background(), c.cfg.CrashURL, "text/plain; charset=utf-8", report)
}

func (c *Client) post(ctx context.Context, url, contentType string, body []byte) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		c.log.Debug("telemetry request", slog.Any("err", err))
		return
	}
	req.Header.Set("Content-Type", contentType)
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("telemetry send failed", slog.Any("err", err))
		return
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= 300 {
		c.log.Debug("telemetry rejected", slog.Int("status", resp.StatusCode))
	}
}
