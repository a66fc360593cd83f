// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Jan Krl

package kospel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// DefaultTimeout bounds each HTTP call to the device.
const DefaultTimeout = 5 * time.Second

// HTTPBackend talks to the heater's C.MI module over its HTTP API.
//
// The device exposes a register window per endpoint:
//
//	GET  {base}/{reg}/{count}  -> {"regs": {"0b55": "d700", ...}}
//	POST {base}/{reg}          -> {"status": "0"}   (body: JSON hex string)
//
// where base is e.g. "http://192.168.1.1/api/dev/65".
type HTTPBackend struct {
	client  *http.Client
	baseURL string
	log     *slog.Logger
}

// NewHTTPBackend creates a backend for the device API at baseURL.
// A zero timeout selects DefaultTimeout; a nil logger selects
// slog.Default().
func NewHTTPBackend(baseURL string, timeout time.Duration, log *slog.Logger) *HTTPBackend {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &HTTPBackend{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		log:     log,
	}
}

// readResponse is the device's envelope for register reads.
type readResponse struct {
	Regs map[string]string `json:"regs"`
}

// writeResponse is the device's envelope for register writes.
// A status other than "0" means the device rejected the write.
type writeResponse struct {
	Status string `json:"status"`
}

// ReadRegister reads a single register.
func (b *HTTPBackend) ReadRegister(ctx context.Context, reg string) (string, error) {
	regs, err := b.ReadRegisters(ctx, reg, 1)
	if err != nil {
		return "", err
	}
	value, ok := regs[reg]
	if !ok || value == "" {
		return "", &OpError{Op: "read", Register: reg, Err: fmt.Errorf("register missing from response")}
	}
	return value, nil
}

// ReadRegisters reads count contiguous registers starting at start in a
// single call.
func (b *HTTPBackend) ReadRegisters(ctx context.Context, start string, count int) (map[string]string, error) {
	url := fmt.Sprintf("%s/%s/%d", b.baseURL, start, count)
	b.log.Debug("reading registers", "start", start, "count", count, "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &OpError{Op: "read_range", Register: start, Err: err}
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, &OpError{Op: "read_range", Register: start, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &OpError{Op: "read_range", Register: start, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	var parsed readResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &OpError{Op: "read_range", Register: start, Err: fmt.Errorf("decode response: %w", err)}
	}
	b.log.Debug("read registers", "start", start, "returned", len(parsed.Regs))
	return parsed.Regs, nil
}

// WriteRegister writes a single register. The hex value is posted as a
// JSON-encoded string, matching the manufacturer UI.
func (b *HTTPBackend) WriteRegister(ctx context.Context, reg string, hexValue string) error {
	url := fmt.Sprintf("%s/%s", b.baseURL, reg)
	b.log.Debug("writing register", "register", reg, "value", hexValue)

	body, err := json.Marshal(hexValue)
	if err != nil {
		return &OpError{Op: "write", Register: reg, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return &OpError{Op: "write", Register: reg, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return &OpError{Op: "write", Register: reg, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &OpError{Op: "write", Register: reg, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	var parsed writeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return &OpError{Op: "write", Register: reg, Err: fmt.Errorf("decode response: %w", err)}
	}
	if parsed.Status != "0" {
		return &OpError{Op: "write", Register: reg, Err: fmt.Errorf("device returned status %q", parsed.Status)}
	}
	return nil
}

// Close releases idle connections. Safe to call multiple times.
func (b *HTTPBackend) Close() error {
	b.client.CloseIdleConnections()
	return nil
}
