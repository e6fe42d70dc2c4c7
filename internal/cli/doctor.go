package cli

import (
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/petercsiba/dumpsheet/internal/output"
)

func NewDoctorCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check prerequisites",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := output.NewFormatter(os.Stdout)
			ok := true

			if _, err := exec.LookPath("ffmpeg"); err != nil {
				f.SetupCheck("ffmpeg", false, "not found. Install with: brew install ffmpeg")
				ok = false
			} else {
				f.SetupCheck("ffmpeg", true, "installed")
			}

			f.SetupCheck("Microphone", true, "permission will be requested on first recording")

			if deps.Config.APIBaseURL != "" {
				f.SetupCheck("Backend API", true, deps.Config.APIBaseURL)
			} else {
				f.SetupCheck("Backend API", false, "not set. Set DUMPSHEET_API_BASE_URL or add api_base_url to config")
				ok = false
			}

			f.SetupCheck("State directory", true, deps.Config.StateDir)
			f.SetupCheck("Minimum recording duration", true, deps.Config.MinDuration().String())

			if deps.Config.ForwardURL != "" || deps.Config.S3Bucket != "" {
				f.SetupCheck("Connectors", true, "configured (run 'dumpsheet serve')")
			} else {
				f.SetupCheck("Connectors", true, "not configured (optional)")
			}

			if ok {
				f.Success("\nAll prerequisites met. Ready to record!")
			} else {
				f.Warning("\nSome prerequisites are missing.")
			}

			return nil
		},
	}
}
