package cli

import (
	"github.com/spf13/cobra"

	"github.com/petercsiba/dumpsheet/config"
	"github.com/petercsiba/dumpsheet/internal/app"
	"github.com/petercsiba/dumpsheet/internal/version"
)

type Dependencies struct {
	App    *app.App
	Config *config.Config
}

func NewRootCmd(deps *Dependencies) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dumpsheet",
		Short: "Record voice memos and send them off for processing",
		Long:  "Record a voice memo from the microphone, upload it to the dumpsheet backend for transcription and follow-up, and serve the Twilio connector webhooks.",
	}

	rootCmd.Version = version.Version
	rootCmd.SetVersionTemplate(version.Full() + "\n")

	rootCmd.AddCommand(NewRecordCmd(deps))
	rootCmd.AddCommand(NewDemoCmd(deps))
	rootCmd.AddCommand(NewServeCmd(deps))
	rootCmd.AddCommand(NewDoctorCmd(deps))

	return rootCmd
}
