package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cyncgo/cync-go/cync"
	"github.com/spf13/cobra"
)

// withTarget loads config, brings up a client, runs discovery and the
// session long enough to resolve the named target and send one command.
func withTarget(name string, fn func(ctx context.Context, client *cync.Client, target cync.Controllable) error) error {
	c, err := loadConfig()
	if err != nil {
		return err
	}
	client := newClient(c)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := client.RefreshHomeInfo(ctx); err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}

	target, err := findControllable(client, name)
	if err != nil {
		return err
	}

	go client.Run(ctx)
	defer client.Shutdown()

	return fn(ctx, client, target)
}

func newOnCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "on <name>",
		Short: "Turn a device, group, room, or home on",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTarget(args[0], func(ctx context.Context, client *cync.Client, target cync.Controllable) error {
				return client.SetPower(ctx, target, true)
			})
		},
	}
}

func newOffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "off <name>",
		Short: "Turn a device, group, room, or home off",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTarget(args[0], func(ctx context.Context, client *cync.Client, target cync.Controllable) error {
				return client.SetPower(ctx, target, false)
			})
		},
	}
}

func newDimCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dim <name> <0-100>",
		Short: "Set brightness as a percentage",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pct, err := strconv.ParseUint(args[1], 10, 8)
			if err != nil {
				return fmt.Errorf("invalid brightness %q: %w", args[1], err)
			}
			return withTarget(args[0], func(ctx context.Context, client *cync.Client, target cync.Controllable) error {
				return client.SetBrightness(ctx, target, uint8(pct))
			})
		},
	}
}

func newColorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "color <name> <1-100>",
		Short: "Set tunable-white color temperature as a percentage",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pct, err := strconv.ParseUint(args[1], 10, 8)
			if err != nil {
				return fmt.Errorf("invalid color temp %q: %w", args[1], err)
			}
			return withTarget(args[0], func(ctx context.Context, client *cync.Client, target cync.Controllable) error {
				return client.SetColorTemp(ctx, target, uint8(pct))
			})
		},
	}
}

func newRgbCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rgb <name> <r> <g> <b>",
		Short: "Set RGB color, each channel 0-255",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := strconv.ParseUint(args[1], 10, 8)
			if err != nil {
				return fmt.Errorf("invalid red channel %q: %w", args[1], err)
			}
			g, err := strconv.ParseUint(args[2], 10, 8)
			if err != nil {
				return fmt.Errorf("invalid green channel %q: %w", args[2], err)
			}
			b, err := strconv.ParseUint(args[3], 10, 8)
			if err != nil {
				return fmt.Errorf("invalid blue channel %q: %w", args[3], err)
			}
			return withTarget(args[0], func(ctx context.Context, client *cync.Client, target cync.Controllable) error {
				return client.SetRgb(ctx, target, uint8(r), uint8(g), uint8(b))
			})
		},
	}
}
