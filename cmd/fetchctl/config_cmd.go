package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tanq16/fetchctl/internal/config"
)

// newConfigCmd manages the on-disk defaults file that cliFlags.register
// reads for flag defaults.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or initialize the fetchctl defaults file",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the current effective defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := config.Load(defaultConfigPath())
			if err != nil {
				return err
			}
			fmt.Printf("part-size:      %d\n", d.PartSize)
			fmt.Printf("connections:    %d\n", d.MaxPartCount)
			fmt.Printf("retries:        %d\n", d.MaxRetryCount)
			fmt.Printf("write-buffer:   %d\n", d.WriteBufferSize)
			fmt.Printf("allow-resuming: %t\n", d.AllowResuming)
			fmt.Printf("timeout:        %s\n", d.Timeout)
			fmt.Printf("user-agent:     %s\n", d.UserAgent)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the built-in defaults to the defaults file, if one doesn't already exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := defaultConfigPath()
			if _, err := os.Stat(path); err == nil {
				fmt.Println("already exists, not overwriting:", path)
				return nil
			} else if !os.IsNotExist(err) {
				return err
			}
			if err := config.Save(path, config.DefaultDefaults()); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	})
	return cmd
}
