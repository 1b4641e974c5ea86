package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Re-run discovery and cache the discovered device names",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfig()
			if err != nil {
				return err
			}
			client := newClient(c)

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if err := client.RefreshHomeInfo(ctx); err != nil {
				return fmt.Errorf("refresh failed: %w", err)
			}

			count := 0
			for _, h := range client.Homes() {
				devices := h.FlattenedDevices()
				count += len(devices)
				for _, d := range devices {
					c.setDeviceName(d.Name, d.DeviceID)
				}
			}
			if err := c.write(configFile); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}
			fmt.Printf("discovered %d home(s), %d device(s)\n", len(client.Homes()), count)
			return nil
		},
	}
}
