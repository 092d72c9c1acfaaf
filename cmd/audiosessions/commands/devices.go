package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sbeier/audiosessions/internal/audio"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List available audio input devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := audio.Initialize(); err != nil {
			return fmt.Errorf("audio subsystem unavailable: %w", err)
		}
		defer audio.Terminate()

		devices, err := audio.ListInputDevices()
		if err != nil {
			return err
		}
		if len(devices) == 0 {
			fmt.Println("No input devices found")
			return nil
		}

		for _, d := range devices {
			marker := " "
			if d.IsDefault {
				marker = "*"
			}
			fmt.Printf("%s [%d] %s (%d ch)\n", marker, d.Index, d.Name, d.MaxChannels)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}
