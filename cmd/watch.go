package cmd

import (
	"fmt"
	"os"

	"github.com/andresmejia3/vigil/internal/config"
	"github.com/andresmejia3/vigil/internal/detector"
	"github.com/andresmejia3/vigil/internal/utils"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var (
	watchInput  string
	watchDevice string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the dwell detector in the foreground until Ctrl+C or end of stream",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		region, err := config.LoadRegion(cfg.Settings)
		if err != nil {
			utils.Die("Failed to load region of interest", err, nil)
		}
		if err := ensureStatic(cfg); err != nil {
			return err
		}

		src := watchSource()
		fmt.Fprintf(os.Stderr, "📼 Watching %s\n", src.Input)
		fmt.Fprintf(os.Stderr, "⚙️  Region %dx%d at (%d,%d), dwell %s\n", region.Width, region.Height, region.X, region.Y, cfg.Dwell)

		bar := progressbar.NewOptions(-1,
			progressbar.OptionSetDescription("🔍 Vigil Watching"),
			progressbar.OptionSetWriter(os.Stderr), // Write bar to Stderr
			progressbar.OptionShowCount(),
			progressbar.OptionSpinnerType(14),
		)

		snapshots := 0
		onFrame := func(o detector.Observation) {
			bar.Add(1)
			if o.Fired {
				snapshots++
				bar.Describe(fmt.Sprintf("📸 %d snapshot(s)", snapshots))
			}
		}

		run := newDetectionRun(cfg, region, DB, src, onFrame)
		if err := run(cmd.Context()); err != nil {
			bar.Exit()
			utils.ShowError("Detection run failed", err, nil)
			return err
		}

		bar.Finish()
		fmt.Fprintf(os.Stderr, "\n🏁 Watch complete. Saved %d snapshot(s) to %s\n", snapshots, imageDir(cfg))
		return nil
	},
}

// watchSource picks the replay file when given, else the configured camera.
func watchSource() source {
	if watchInput != "" {
		return source{Input: watchInput}
	}
	src := cameraSource(cfg)
	if watchDevice != "" {
		src.Input = watchDevice
	}
	return src
}

func init() {
	watchCmd.Flags().StringVarP(&watchInput, "input", "i", "", "Replay a video file or stream URL instead of the camera")
	watchCmd.Flags().StringVar(&watchDevice, "device", "", "Capture device (default: $VIGIL_CAMERA_DEVICE)")
	rootCmd.AddCommand(watchCmd)
}
