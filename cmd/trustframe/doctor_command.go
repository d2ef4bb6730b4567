package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"trustframe/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check media tools, directories and the fingerprint database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			problems := 0

			writeSection(out, "Configuration", colorize)
			configDetail := ctx.configPath
			if !ctx.configSeen {
				configDetail += " (not found, defaults in use)"
			}
			fmt.Fprintln(out, renderStatusLine("Config file", statusInfo, configDetail, colorize))

			writeSection(out, "Dependencies", colorize)
			for _, status := range preflight.CheckSystemDeps(cmd.Context(), cfg) {
				switch {
				case status.Available:
					detail := status.Path
					if status.Version != "" {
						detail = fmt.Sprintf("%s (%s)", status.Path, status.Version)
					}
					fmt.Fprintln(out, renderStatusLine(status.Name, statusOK, detail, colorize))
				case status.Optional:
					fmt.Fprintln(out, renderStatusLine(status.Name, statusWarn, status.Detail, colorize))
				default:
					problems++
					detail := status.Detail
					if status.Description != "" {
						detail = fmt.Sprintf("%s; %s", detail, strings.ToLower(status.Description))
					}
					fmt.Fprintln(out, renderStatusLine(status.Name, statusError, detail, colorize))
				}
			}

			writeSection(out, "Storage", colorize)
			if err := cfg.EnsureDirectories(); err != nil {
				problems++
				fmt.Fprintln(out, renderStatusLine("Directories", statusError, err.Error(), colorize))
			}
			for _, result := range preflight.RunAll(cmd.Context(), cfg) {
				kind := statusOK
				if !result.Passed {
					kind = statusError
					problems++
				}
				fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}

			fmt.Fprintln(out)
			if problems > 0 {
				return fmt.Errorf("doctor found %d problem(s)", problems)
			}
			fmt.Fprintln(out, "All checks passed")
			return nil
		},
	}
}
