// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Client talks to a Server.
type Client struct {
	base string
	http *http.Client
}

// NewClient returns a client for the API at addr, host:port or a URL.
func NewClient(addr string, c *http.Client) *Client {
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	if c == nil {
		c = http.DefaultClient
	}
	return &Client{base: strings.TrimRight(addr, "/"), http: c}
}

// Error is a failed request.
type Error struct {
	Code int
	Body ErrorResponse
}

func (e *Error) Error() string {
	s := fmt.Sprintf("%d %s: %s", e.Code, http.StatusText(e.Code), e.Body.Error)
	if e.Body.RequestID != "" {
		s += " (request " + e.Body.RequestID + ")"
	}
	return s
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rsp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer rsp.Body.Close()
	if rsp.StatusCode != http.StatusOK {
		e := &Error{Code: rsp.StatusCode}
		if err := json.NewDecoder(rsp.Body).Decode(&e.Body); err != nil {
			e.Body.Error = rsp.Status
		}
		return e
	}
	return json.NewDecoder(rsp.Body).Decode(out)
}

func (c *Client) Status(ctx context.Context) (*Status, error) {
	var s Status
	return &s, c.do(ctx, http.MethodGet, "/v1/status", nil, &s)
}

func (c *Client) PowerOn(ctx context.Context) (string, error) {
	var r PowerResponse
	err := c.do(ctx, http.MethodPost, "/v1/power/on", nil, &r)
	return r.Result, err
}

func (c *Client) PowerOff(ctx context.Context) (string, error) {
	var r PowerResponse
	err := c.do(ctx, http.MethodPost, "/v1/power/off", nil, &r)
	return r.Result, err
}

func (c *Client) SetFrequency(ctx context.Context, hz uint64) (*FrequencyResponse, error) {
	var r FrequencyResponse
	return &r, c.do(ctx, http.MethodPut, "/v1/frequency", FrequencyRequest{Hz: hz}, &r)
}

func (c *Client) RestoreSource(ctx context.Context) (*FrequencyResponse, error) {
	var r FrequencyResponse
	return &r, c.do(ctx, http.MethodPost, "/v1/frequency/restore", nil, &r)
}

func (c *Client) SetOperatingPoint(ctx context.Context, hz uint64, volts [2]int) (*OperatingPointResponse, error) {
	var r OperatingPointResponse
	return &r, c.do(ctx, http.MethodPut, "/v1/opp", OperatingPoint{Hz: hz, Voltages: volts}, &r)
}

func (c *Client) VoltageCheck(ctx context.Context, volts [2]int) ([2]int, error) {
	var r VoltageCheck
	err := c.do(ctx, http.MethodPost, "/v1/voltage/check", VoltageCheck{Voltages: volts}, &r)
	return r.Voltages, err
}
