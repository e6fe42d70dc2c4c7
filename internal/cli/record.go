package cli

import (
	"github.com/spf13/cobra"

	"github.com/petercsiba/dumpsheet/internal/app"
)

func NewRecordCmd(deps *Dependencies) *cobra.Command {
	var privateBeta bool

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a voice memo and upload it",
		Long:  "Record a voice memo from the default microphone. Recordings shorter than the minimum duration are rejected; accepted ones are uploaded to the backend for processing.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFlow(deps, app.MachineOptions{PrivateBeta: privateBeta})
		},
	}

	cmd.Flags().BoolVar(&privateBeta, "private-beta", false, "Require the private beta access code first")

	return cmd
}
