// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// mfgd owns the power and clocks of the MFG GPU block and serves them over
// HTTP. Flag defaults come from MFGD_* variables, which may be set in a
// .env file.
package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sys/unix"

	"github.com/u-root/mfgpm/config"
	"github.com/u-root/mfgpm/pkg/hardware/sysfs"
	"github.com/u-root/mfgpm/pkg/logger"
	"github.com/u-root/mfgpm/pkg/metric"
	"github.com/u-root/mfgpm/pkg/mfg"
	"github.com/u-root/mfgpm/pkg/service/api"
)

var log = logger.LogContainer.GetSimpleLogger()

func env(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func main() {
	envFile := env("MFGD_ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		log.Warnf("Ignoring %s: %v", envFile, err)
	}

	var (
		configPath = flag.String("config", env("MFGD_CONFIG", ""), "YAML configuration, built-in MT8192 defaults when empty")
		listen     = flag.String("listen", env("MFGD_LISTEN", ""), "API listen address, overrides the configuration")
		logFile    = flag.String("log-file", env("MFGD_LOG_FILE", ""), "Also log JSON to this file")
		debug      = flag.Bool("debug", env("MFGD_DEBUG", "") != "", "Enable debug logging")
		powerOn    = flag.Bool("power-on", false, "Power the GPU on after platform init")
	)
	flag.Parse()

	if *debug {
		logger.LogContainer.SetLevel(zapcore.DebugLevel)
	}

	c, err := config.Load(afero.NewOsFs(), *configPath)
	if err != nil {
		log.Fatalf("Loading configuration: %v", err)
	}
	if *logFile != "" {
		c.Service.LogFile = *logFile
	}
	if *listen != "" {
		c.Service.Listen = *listen
	}
	if c.Service.LogFile != "" {
		if err := logger.LogContainer.SetLogFile(c.Service.LogFile); err != nil {
			log.Errorf("%v", err)
		}
	}
	log.Infof("mfgd version %s (%s)", c.Version.Version, c.Version.GitHash)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, unix.SIGTERM)
	defer stop()

	reg := metric.NewRegistry()
	p := sysfs.New(c.Sysfs)
	m := &mfg.DeviceTreeMapper{Fs: p.Fs(), Path: c.Sysfs.DeviceTree}

	b, err := mfg.InitWithRetry(ctx, c, p, m, mfg.WithRegistry(reg), mfg.WithLogger(log))
	if err != nil {
		log.Fatalf("MFG init failed: %v", err)
	}
	defer b.Term()

	if err := b.PlatformInit(ctx); err != nil {
		log.Errorf("MFG platform init failed: %v", err)
		b.Term()
		os.Exit(1)
	}
	pm := b.Callbacks()
	if err := pm.RuntimeInit(ctx); err != nil {
		log.Errorf("Runtime PM init failed: %v", err)
		b.Term()
		os.Exit(1)
	}
	if *powerOn {
		pm.Resume(ctx)
	}

	l, err := net.Listen("tcp", c.Service.Listen)
	if err != nil {
		log.Errorf("Could not listen on %s: %v", c.Service.Listen, err)
		b.Term()
		os.Exit(1)
	}
	s := api.New(b, api.WithMetrics(reg.Handler()), api.WithVersion(&c.Version), api.WithLogger(log))
	if err := s.Serve(ctx, l); err != nil {
		log.Errorf("API: %v", err)
	}
	log.Infof("Shutting down")
	// ctx is already cancelled, suspend on a fresh one so a timed idle
	// wait still gets its full budget.
	pm.Suspend(context.Background())
	pm.RuntimeTerm(context.Background())
}
