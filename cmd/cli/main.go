package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mkarsten/kaltvik/cmd/cli/debug"
)

func init() {
	// .env is a development convenience; the commands fall back to flag
	// defaults without it.
	_ = godotenv.Load()
	rootCmd.AddGroup(debug.Group)
	rootCmd.AddCommand(debug.SetSkill, debug.Give, debug.ToggleTheory, debug.Trigger,
		debug.Record, debug.Playback, debug.DebugExport, debug.Slots, debug.Clear)
}

var rootCmd = &cobra.Command{
	Use:  "kaltvik-cli",
	Long: `Debug console for the Kaltvik game server`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}
