// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"fmt"
	"strings"

	"github.com/ManuGH/streamconnect/internal/config"
	"github.com/ManuGH/streamconnect/internal/version"
	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration files",
	}
	cmd.AddCommand(newConfigValidateCmd(), newConfigDumpCmd())
	return cmd
}

func newConfigValidateCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := strings.TrimSpace(file)
			if path == "" {
				return usageError{msg: "--file is required"}
			}
			if _, err := config.NewLoader(path, version.Version).Load(); err != nil {
				return fmt.Errorf("configuration error in %s: %w", path, err)
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", path)
			return err
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "path to YAML configuration file")
	return cmd
}

func newConfigDumpCmd() *cobra.Command {
	var file, output string
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the effective configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.NewLoader(strings.TrimSpace(file), version.Version).Load()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			if output != "" {
				return config.DumpFile(cfg, output)
			}
			data, err := config.Dump(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "path to YAML configuration file")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the dump to this file instead of stdout")
	return cmd
}
