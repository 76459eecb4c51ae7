// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/u-root/mfgpm/config"
	"github.com/u-root/mfgpm/pkg/service/api"
)

type cli struct {
	addr    string
	timeout time.Duration
	out     io.Writer
}

func (c *cli) client() *api.Client {
	return api.NewClient(c.addr, nil)
}

func (c *cli) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), c.timeout)
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{out: out}
	root := &cobra.Command{
		Use:          "mfgctl",
		Short:        "Control the MFG GPU power and clocks through mfgd.",
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&c.addr, "addr", config.DefaultConfig.Service.Listen, "mfgd API address")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", 30*time.Second, "Request timeout")

	root.AddCommand(
		c.statusCmd(),
		c.powerCmd(),
		c.freqCmd(),
		c.voltCmd(),
		c.oppCmd(),
	)
	return root
}

func (c *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show power state, frequency and voltages.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.context()
			defer cancel()
			s, err := c.client().Status(ctx)
			if err != nil {
				return err
			}
			power := "off"
			if s.Powered {
				power = "on"
			}
			fmt.Fprintf(c.out, "Power: %s\n", power)
			fmt.Fprintf(c.out, "Frequency: %d Hz\n", s.FrequencyHz)
			for i, v := range s.Voltages {
				fmt.Fprintf(c.out, "Regulator %d: %d uV\n", i, v)
			}
			if s.Degraded {
				fmt.Fprintf(c.out, "Clock source degraded, run 'mfgctl freq restore'\n")
			}
			return nil
		},
	}
}

func (c *cli) powerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "power",
		Short: "Power the GPU on or off.",
	}
	for _, op := range []struct {
		use   string
		short string
		do    func(*api.Client, context.Context) (string, error)
	}{
		{"on", "Enable regulators, power domains and clocks.", (*api.Client).PowerOn},
		{"off", "Wait for the bus to go idle and release everything.", (*api.Client).PowerOff},
	} {
		op := op
		cmd.AddCommand(&cobra.Command{
			Use:   op.use,
			Short: op.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx, cancel := c.context()
				defer cancel()
				r, err := op.do(c.client(), ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.out, "Power %s: %s\n", op.use, r)
				return nil
			},
		})
	}
	return cmd
}

func (c *cli) freqCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "freq",
		Short: "Change the GPU clock.",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "set HZ",
		Short: "Switch the main clock to HZ.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hz, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil || hz == 0 {
				return fmt.Errorf("invalid frequency %q", args[0])
			}
			ctx, cancel := c.context()
			defer cancel()
			r, err := c.client().SetFrequency(ctx, hz)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Frequency: %d Hz\n", r.Hz)
			return nil
		},
	}, &cobra.Command{
		Use:   "restore",
		Short: "Move the mux back to the main clock after a failed switch.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.context()
			defer cancel()
			r, err := c.client().RestoreSource(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Clock source restored at %d Hz\n", r.Hz)
			return nil
		},
	})
	return cmd
}

func (c *cli) voltCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "volt",
		Short: "Voltage helpers.",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check V0 V1",
		Short: "Show the corrected (core, sram) voltage pair in microvolts.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseVolts(args)
			if err != nil {
				return err
			}
			ctx, cancel := c.context()
			defer cancel()
			got, err := c.client().VoltageCheck(ctx, v)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "%d %d\n", got[0], got[1])
			return nil
		},
	})
	return cmd
}

func parseVolts(args []string) ([2]int, error) {
	var v [2]int
	for i, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil {
			return v, fmt.Errorf("invalid voltage %q", a)
		}
		v[i] = n
	}
	return v, nil
}

func (c *cli) oppCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "opp",
		Short: "Change frequency and voltages together.",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "set HZ V0 V1",
		Short: "Move to HZ with the (core, sram) voltages in microvolts.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			hz, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil || hz == 0 {
				return fmt.Errorf("invalid frequency %q", args[0])
			}
			v, err := parseVolts(args[1:])
			if err != nil {
				return err
			}
			ctx, cancel := c.context()
			defer cancel()
			r, err := c.client().SetOperatingPoint(ctx, hz, v)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Frequency: %d Hz\n", r.Hz)
			for i, uv := range r.Voltages {
				fmt.Fprintf(c.out, "Regulator %d: %d uV\n", i, uv)
			}
			return nil
		},
	})
	return cmd
}
