package debug

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkarsten/kaltvik/internal/db"
	"github.com/mkarsten/kaltvik/internal/errors"
	"github.com/mkarsten/kaltvik/internal/repositories"
)

func init() {
	Slots.Flags().String("sqlite-url", "./kaltvik.sqlite", "SQLite URL")
	Clear.Flags().String("slot", "", "save slot id")
	Clear.Flags().String("sqlite-url", "./kaltvik.sqlite", "SQLite URL")
	_ = Clear.MarkFlagRequired("slot")
}

// openSaves connects just the save repository, for commands that never load
// content or a session.
func openSaves(cmd *cobra.Command) (*repositories.SaveRepository, error) {
	sqliteURL, _ := cmd.Flags().GetString("sqlite-url")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	dbs, err := db.NewDatabase(sqliteURL)
	if err != nil {
		return nil, errors.Wrap(err, "connect database")
	}
	return repositories.NewSaveRepository(dbs, logger), nil
}

var Slots = &cobra.Command{
	Use:     "slots",
	GroupID: "debug",
	Short:   "List occupied save slots",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		saves, err := openSaves(cmd)
		if err != nil {
			return err
		}
		infos, err := saves.List(context.Background())
		if err != nil {
			return err
		}
		for _, info := range infos {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", info.Slot, info.UpdatedAt.Format(time.RFC3339))
		}
		return nil
	},
}

var Clear = &cobra.Command{
	Use:     "clear",
	GroupID: "debug",
	Short:   "Delete a save slot",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		saves, err := openSaves(cmd)
		if err != nil {
			return err
		}
		slot, _ := cmd.Flags().GetString("slot")
		return saves.Delete(context.Background(), slot)
	},
}
