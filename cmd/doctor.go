package cmd

import (
	"encoding/json"
	"errors"

	"xcmcp/internal/color"

	"github.com/spf13/cobra"
)

func newDoctorCmd() *cobra.Command {
	var asJSON, debug bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the Xcode toolchain and the server configuration",
		Long: `Runs xcodebuild, xcrun and swift to verify the toolchain is usable and
prints the workflows serve would enable with the current configuration.
Exits non-zero when a toolchain check fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := loadServices(cmd.Context(), cmd.ErrOrStderr(), debug)
			if err != nil {
				return err
			}

			report := services.Doctor.Run(cmd.Context(), services.Registry, "unknown (no client session)")
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else if err := report.Render(cmd.OutOrStdout(), color.NewStyles(cmd.OutOrStdout())); err != nil {
				return err
			}

			if !report.Healthy() {
				return errors.New("one or more toolchain checks failed")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")
	return cmd
}
