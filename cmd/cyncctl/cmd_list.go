package main

import (
	"context"
	"fmt"
	"time"

	"github.com/cyncgo/cync-go/cync"
	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List known homes, rooms, groups, and devices",
		RunE: func(cmd *cobra.Command, args []string) error {
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

			for _, h := range client.Homes() {
				fmt.Printf("Home %q (id=%d)\n", h.Name, h.HomeID)
				for _, r := range h.Rooms {
					fmt.Printf("  Room %q\n", r.Name)
					for _, d := range r.Devices {
						printDevice(d, "    ")
					}
					for _, g := range r.Groups {
						fmt.Printf("    Group %q\n", g.Name)
						for _, d := range g.Devices {
							printDevice(d, "      ")
						}
					}
				}
				for _, d := range h.GlobalDevices {
					printDevice(d, "  ")
				}
			}
			return nil
		},
	}
}

func printDevice(d *cync.Device, indent string) {
	fmt.Printf("%sDevice %q (id=%d, mesh_ref=%d)\n", indent, d.Name, d.DeviceID, d.MeshReferenceID())
}
