// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package api

// Status is the body of GET /v1/status.
type Status struct {
	Powered     bool   `json:"powered"`
	FrequencyHz uint64 `json:"frequency_hz"`
	Voltages    []int  `json:"voltages"`
	Degraded    bool   `json:"degraded"`
	Version     string `json:"version,omitempty"`
}

type PowerResponse struct {
	Result string `json:"result"`
}

type FrequencyRequest struct {
	Hz uint64 `json:"hz"`
}

type FrequencyResponse struct {
	Hz       uint64 `json:"hz"`
	Degraded bool   `json:"degraded"`
}

// VoltageCheck is both the request and the response of
// POST /v1/voltage/check, in microvolts.
type VoltageCheck struct {
	Voltages [2]int `json:"voltages"`
}

// OperatingPoint is the body of PUT /v1/opp.
type OperatingPoint struct {
	Hz       uint64 `json:"hz"`
	Voltages [2]int `json:"voltages"`
}

// OperatingPointResponse reports the frequency and voltages in effect.
type OperatingPointResponse struct {
	Hz       uint64 `json:"hz"`
	Voltages []int  `json:"voltages"`
	Degraded bool   `json:"degraded"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	Stage     string `json:"stage,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}
