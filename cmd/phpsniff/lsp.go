package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"phpsniff/internal/lsp"
	"phpsniff/internal/phpcs"
	"phpsniff/internal/trace"
	"phpsniff/internal/version"
)

var lspCmd = &cobra.Command{
	Use:          "lsp",
	Short:        "Run the phpsniff language server over stdio",
	SilenceUsage: true,
	RunE:         runLSP,
}

func init() {
	lspCmd.Flags().Bool("no-cache", false, "do not persist tool version probes")
}

func runLSP(cmd *cobra.Command, _ []string) error {
	cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	tracer := trace.FromContext(cmd.Context())
	var disk *phpcs.DiskVersionCache
	if noCache, _ := cmd.Flags().GetBool("no-cache"); !noCache {
		disk, err = phpcs.OpenDiskVersionCache("phpsniff")
		if err != nil {
			trace.Warn(tracer, trace.ScopeServer, "version-cache", err.Error())
			disk = nil
		}
	}

	server := lsp.NewServer(os.Stdin, os.Stdout, lsp.ServerOptions{
		DiskCache: disk,
		Tracer:    tracer,
		Version:   version.Version,
	})
	if err := server.Run(cmd.Context()); err != nil {
		if errors.Is(err, lsp.ErrExit) {
			return nil
		}
		if errors.Is(err, lsp.ErrExitWithoutShutdown) {
			return fmt.Errorf("lsp exit without shutdown")
		}
		return err
	}
	return nil
}
