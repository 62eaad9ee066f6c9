// Package devices implements the devices subcommand: enumerate capture
// devices visible to the platform backend.
package devices

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/audiocore/sources"
)

// Command creates the devices subcommand.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List available audio capture devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager := sources.NewDeviceManager()
			devices, err := manager.ListDevices()
			if err != nil {
				return err
			}

			if len(devices) == 0 {
				fmt.Println("No capture devices found")
				return nil
			}
			for _, d := range devices {
				marker := " "
				if d.IsDefault {
					marker = "*"
				}
				fmt.Printf("%s %s\n", marker, d.Name)
			}
			return nil
		},
	}
}
