package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hyperjump/kensa/internal/cli"
	"github.com/hyperjump/kensa/internal/errs"
	"github.com/hyperjump/kensa/internal/gitctx"
	"github.com/spf13/cobra"
)

func (a *app) hookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hook",
		Short: "Manage the git pre-commit hook",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "install",
		Short: "Install kensa review as a pre-commit hook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := gitctx.HookPath(cmd.Context(), ".")
			if err != nil {
				return errs.E(errs.Configuration, "install hook", err)
			}
			existing, err := readHook(path)
			if err != nil {
				return err
			}
			configPath := a.configPath
			if configPath != "" {
				if abs, err := filepath.Abs(configPath); err == nil {
					configPath = abs
				}
			}
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return errs.E(errs.Configuration, "install hook", err)
			}
			content := cli.InstallHook(existing, cli.HookSection(configPath))
			if err := os.WriteFile(path, []byte(content), 0755); err != nil {
				return errs.E(errs.Configuration, "install hook", err)
			}
			// WriteFile keeps the mode of an existing file.
			if err := os.Chmod(path, 0755); err != nil {
				return errs.E(errs.Configuration, "install hook", err)
			}
			fmt.Fprintf(a.stdout, "Installed pre-commit hook at %s\n", path)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "uninstall",
		Short: "Remove the kensa section from the pre-commit hook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := gitctx.HookPath(cmd.Context(), ".")
			if err != nil {
				return errs.E(errs.Configuration, "uninstall hook", err)
			}
			existing, err := readHook(path)
			if err != nil {
				return err
			}
			if existing == "" {
				fmt.Fprintln(a.stdout, "No pre-commit hook installed")
				return nil
			}
			content, empty := cli.UninstallHook(existing)
			if empty {
				if err := os.Remove(path); err != nil {
					return errs.E(errs.Configuration, "uninstall hook", err)
				}
				fmt.Fprintf(a.stdout, "Removed pre-commit hook %s\n", path)
				return nil
			}
			if err := os.WriteFile(path, []byte(content), 0755); err != nil {
				return errs.E(errs.Configuration, "uninstall hook", err)
			}
			fmt.Fprintf(a.stdout, "Removed kensa section from %s\n", path)
			return nil
		},
	})
	return cmd
}

func readHook(path string) (string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", errs.E(errs.Configuration, "read hook", err)
	}
	return string(data), nil
}
