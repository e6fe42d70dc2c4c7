package cli

import (
	"github.com/spf13/cobra"

	"github.com/petercsiba/dumpsheet/internal/app"
)

func NewDemoCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Walk through the flow with a sample recording",
		Long:  "Play a pre-recorded persona memo and send it through the same upload path as a real recording - no microphone needed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFlow(deps, app.MachineOptions{Demo: true})
		},
	}
}
