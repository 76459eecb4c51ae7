// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package api

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/u-root/mfgpm/config"
	"github.com/u-root/mfgpm/pkg/hardware/mediatek"
	"github.com/u-root/mfgpm/pkg/hardware/mmio"
	"github.com/u-root/mfgpm/pkg/hardware/resource"
	"github.com/u-root/mfgpm/pkg/metric"
	"github.com/u-root/mfgpm/pkg/mfg"
)

type fixture struct {
	p    *resource.FakeProvider
	regs *mmio.RegisterFile
	b    *mfg.Base
	c    *Client
}

func newFixture(t *testing.T, idleTimeout time.Duration) *fixture {
	t.Helper()
	cfg := config.DefaultConfig.Clone()
	cfg.Device.DomainNames = []string{"core0", "core1"}
	cfg.Device.RequiredDomains = 2
	cfg.Device.Idle.Timeout = idleTimeout

	f := &fixture{p: resource.NewFakeProvider(), regs: mmio.NewRegisterFile()}
	f.regs.OnRead = func(uintptr, int) uint32 { return mediatek.BUS_IDLE_BIT }
	m := mfg.MapperFunc(func(string) (mmio.Mem, mmio.Window, error) {
		return f.regs, mmio.Window{Base: 0x13fbf000, Size: 0x1000}, nil
	})
	log := zaptest.NewLogger(t).Sugar()
	reg := metric.NewPedanticRegistry()
	b, err := mfg.Init(context.Background(), cfg, f.p, m, mfg.WithLogger(log), mfg.WithRegistry(reg))
	require.NoError(t, err)
	t.Cleanup(b.Term)
	require.NoError(t, b.PlatformInit(context.Background()))
	f.b = b

	s := New(b, WithLogger(log), WithMetrics(reg.Handler()), WithVersion(&config.Version{Version: "test"}))
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)
	f.c = NewClient(srv.URL, srv.Client())
	return f
}

func TestStatus(t *testing.T) {
	f := newFixture(t, 0)
	s, err := f.c.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &Status{
		Powered:     false,
		FrequencyHz: 800000000,
		Voltages:    []int{825000, 925000},
		Version:     "test",
	}, s)
}

func TestPower(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)

	r, err := f.c.PowerOn(ctx)
	require.NoError(t, err)
	assert.Equal(t, "transitioned", r)
	r, err = f.c.PowerOn(ctx)
	require.NoError(t, err)
	assert.Equal(t, "already on", r)
	assert.True(t, f.b.State().Powered)

	r, err = f.c.PowerOff(ctx)
	require.NoError(t, err)
	assert.Equal(t, "transitioned", r)
	r, err = f.c.PowerOff(ctx)
	require.NoError(t, err)
	assert.Equal(t, "already off", r)
}

func TestPowerErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2*time.Millisecond)
	f.p.Fail["domain core1 resume"] = errors.New("genpd timeout")

	_, err := f.c.PowerOn(ctx)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, http.StatusInternalServerError, e.Code)
	assert.Equal(t, "pm-domain", e.Body.Stage)
	assert.NotEmpty(t, e.Body.RequestID)

	delete(f.p.Fail, "domain core1 resume")
	_, err = f.c.PowerOn(ctx)
	require.NoError(t, err)

	f.regs.OnRead = func(uintptr, int) uint32 { return 0 }
	_, err = f.c.PowerOff(ctx)
	require.ErrorAs(t, err, &e)
	assert.Equal(t, http.StatusServiceUnavailable, e.Code)
	assert.True(t, f.b.State().Powered)
}

func TestFrequency(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)

	rsp, err := f.c.SetFrequency(ctx, 500000000)
	require.NoError(t, err)
	assert.Equal(t, &FrequencyResponse{Hz: 500000000}, rsp)
	assert.Equal(t, uint64(500000000), f.b.State().FrequencyHz)

	f.p.Fail["clock clk_mux parent clk_main_parent"] = errors.New("mux busy")
	_, err = f.c.SetFrequency(ctx, 300000000)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "select main clock source", e.Body.Stage)

	s, err := f.c.Status(ctx)
	require.NoError(t, err)
	assert.True(t, s.Degraded)
	assert.Equal(t, uint64(300000000), s.FrequencyHz)

	delete(f.p.Fail, "clock clk_mux parent clk_main_parent")
	rsp, err = f.c.RestoreSource(ctx)
	require.NoError(t, err)
	assert.Equal(t, &FrequencyResponse{Hz: 300000000}, rsp)
}

func TestBadRequests(t *testing.T) {
	f := newFixture(t, 0)
	for _, tt := range []struct {
		method, path, body string
		code               int
	}{
		{http.MethodPut, "/v1/frequency", `{"hz":`, http.StatusBadRequest},
		{http.MethodPut, "/v1/frequency", `{"hz":0}`, http.StatusBadRequest},
		{http.MethodPost, "/v1/voltage/check", `[]`, http.StatusBadRequest},
		{http.MethodPut, "/v1/opp", `{"voltages":[825000,925000]}`, http.StatusBadRequest},
		{http.MethodPost, "/v1/opp", `{"hz":1}`, http.StatusMethodNotAllowed},
		{http.MethodGet, "/v1/power/on", ``, http.StatusMethodNotAllowed},
		{http.MethodGet, "/v1/nothing", ``, http.StatusNotFound},
	} {
		t.Run(tt.method+" "+tt.path+" "+tt.body, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, f.c.base+tt.path, strings.NewReader(tt.body))
			require.NoError(t, err)
			rsp, err := f.c.http.Do(req)
			require.NoError(t, err)
			rsp.Body.Close()
			assert.Equal(t, tt.code, rsp.StatusCode)
		})
	}
}

func TestVoltageCheck(t *testing.T) {
	f := newFixture(t, 0)
	v, err := f.c.VoltageCheck(context.Background(), [2]int{600000, 950000})
	require.NoError(t, err)
	assert.Equal(t, [2]int{600000, 850000}, v)
	assert.Equal(t, []int{825000, 925000}, f.b.State().Voltages, "check applied voltages")
}

func TestOperatingPoint(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)

	f.p.Reset()
	rsp, err := f.c.SetOperatingPoint(ctx, 400000000, [2]int{600000, 650000})
	require.NoError(t, err)
	assert.Equal(t, &OperatingPointResponse{Hz: 400000000, Voltages: []int{600000, 850000}}, rsp)
	ev := f.p.Events()
	require.NotEmpty(t, ev)
	assert.Equal(t, "regulator sram voltage 850000", ev[len(ev)-1], "voltage lowered before the clock")

	f.p.Fail["regulator mali voltage 825000"] = errors.New("out of range")
	_, err = f.c.SetOperatingPoint(ctx, 800000000, [2]int{825000, 925000})
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, http.StatusInternalServerError, e.Code)
	assert.Equal(t, uint64(400000000), f.b.State().FrequencyHz, "clock raised after a voltage failure")
}

func TestRequestID(t *testing.T) {
	f := newFixture(t, 0)
	rsp, err := f.c.http.Get(f.c.base + "/v1/status")
	require.NoError(t, err)
	rsp.Body.Close()
	assert.Len(t, rsp.Header.Get(requestIDHeader), 20)

	req, _ := http.NewRequest(http.MethodGet, f.c.base+"/v1/status", nil)
	req.Header.Set(requestIDHeader, "abc")
	rsp, err = f.c.http.Do(req)
	require.NoError(t, err)
	rsp.Body.Close()
	assert.Equal(t, "abc", rsp.Header.Get(requestIDHeader))
}

func TestMetrics(t *testing.T) {
	f := newFixture(t, 0)
	rsp, err := f.c.http.Get(f.c.base + "/metrics")
	require.NoError(t, err)
	defer rsp.Body.Close()
	b, err := io.ReadAll(rsp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(b), "mfg_clock_frequency_hz 8e+08")
}

func TestServe(t *testing.T) {
	f := newFixture(t, 0)
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- New(f.b, WithLogger(zaptest.NewLogger(t).Sugar())).Serve(ctx, l)
	}()

	s, err := NewClient(l.Addr().String(), nil).Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(800000000), s.FrequencyHz)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
