package main

import (
	"github.com/spf13/cobra"

	"pkt.systems/htx/internal/htmock"
)

func newHtMockCmd() *cobra.Command {
	return &cobra.Command{
		Use:                "ht-mock [--subscribe events] [--size COLSxROWS] [--no-exit] [--] command [args...]",
		Short:              "Pose as the ht engine binary for testing",
		SilenceErrors:      true,
		SilenceUsage:       true,
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			code := htmock.Run(cmd.Context(), args, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
			if code != 0 {
				return exitCodeError{code: code}
			}
			return nil
		},
	}
}
