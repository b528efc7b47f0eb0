// Package debug holds the developer console commands. Argument parsing and
// file handling live here; the commands call the engine's plain debug
// operations and report recoverable errors as messages, not crashes.
package debug

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mkarsten/kaltvik/internal/content"
	"github.com/mkarsten/kaltvik/internal/db"
	"github.com/mkarsten/kaltvik/internal/errors"
	"github.com/mkarsten/kaltvik/internal/game"
	"github.com/mkarsten/kaltvik/internal/models"
	"github.com/mkarsten/kaltvik/internal/repositories"
)

var Group = &cobra.Group{
	ID:    "debug",
	Title: "Debug operations on a save slot",
}

func init() {
	for _, cmd := range []*cobra.Command{SetSkill, Give, ToggleTheory, Trigger, Record, Playback, DebugExport} {
		cmd.Flags().String("slot", "", "save slot id")
		cmd.Flags().String("sqlite-url", "./kaltvik.sqlite", "SQLite URL")
		cmd.Flags().String("content", "./content", "content directory")
		_ = cmd.MarkFlagRequired("slot")
	}
	Record.Flags().String("out", "./recording.json", "path for the recorded inputs")
	Playback.Flags().String("in", "./recording.json", "recorded inputs to replay")
	DebugExport.Flags().String("out", "./debugexport.json", "path for the diagnostic dump")
}

// console is everything a command needs to operate on one save slot.
type console struct {
	engine  *game.Engine
	session *game.Session
	saves   *repositories.SaveRepository
	slot    string
}

// open loads the slot named by the command's flags.
func open(cmd *cobra.Command) (*console, error) {
	slot, _ := cmd.Flags().GetString("slot")
	sqliteURL, _ := cmd.Flags().GetString("sqlite-url")
	contentDir, _ := cmd.Flags().GetString("content")

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	dbs, err := db.NewDatabase(sqliteURL)
	if err != nil {
		return nil, errors.Wrap(err, "connect database")
	}
	catalog, err := content.Load(os.DirFS(contentDir), logger)
	if err != nil {
		return nil, errors.Wrap(err, "load content")
	}

	engine := game.New(catalog, nil, logger)
	saves := repositories.NewSaveRepository(dbs, logger)
	snapshot, err := saves.Get(context.Background(), slot)
	if err != nil {
		return nil, errors.Wrap(err, "load save", slog.String("slot", slot))
	}
	session, err := engine.SessionFromSnapshot(slot, snapshot)
	if err != nil {
		return nil, errors.Wrap(err, "restore session", slog.String("slot", slot))
	}
	return &console{engine: engine, session: session, saves: saves, slot: slot}, nil
}

// save writes the session back into its slot.
func (c *console) save() error {
	return c.saves.Put(context.Background(), c.slot, c.session.ToSnapshot())
}

var SetSkill = &cobra.Command{
	Use:     "setskill [skill] [value]",
	GroupID: "debug",
	Short:   "Set a skill value",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("value must be a number, got %q", args[1])
		}
		c, err := open(cmd)
		if err != nil {
			return err
		}
		if err = c.engine.SetSkillValue(c.session, args[0], value); err != nil {
			if errors.Is(err, models.ErrInput) {
				return fmt.Errorf("rejected: %v", err)
			}
			return err
		}
		return c.save()
	},
}

var Give = &cobra.Command{
	Use:     "give [item]",
	GroupID: "debug",
	Short:   "Put an item in the inventory",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := open(cmd)
		if err != nil {
			return err
		}
		if err = c.engine.AddItem(c.session, args[0]); err != nil {
			return err
		}
		return c.save()
	},
}

var ToggleTheory = &cobra.Command{
	Use:     "toggletheory [theory] [status]",
	GroupID: "debug",
	Short:   "Force a theory into a lifecycle state",
	Long:    `Status is one of: locked, available, active, internalized, closed.`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := open(cmd)
		if err != nil {
			return err
		}
		err = c.engine.SetTheoryStatus(c.session, args[0], models.TheoryStatus(args[1]))
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return fmt.Errorf("unknown theory id %q", args[0])
			}
			if errors.Is(err, models.ErrInput) {
				return fmt.Errorf("rejected: %v", err)
			}
			return err
		}
		return c.save()
	},
}

var Trigger = &cobra.Command{
	Use:     "trigger [flag]",
	GroupID: "debug",
	Short:   "Set a story flag",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := open(cmd)
		if err != nil {
			return err
		}
		if err = c.engine.TriggerFlag(c.session, args[0]); err != nil {
			return err
		}
		return c.save()
	},
}

var Record = &cobra.Command{
	Use:     "record",
	GroupID: "debug",
	Short:   "Write the slot's recorded inputs to a file",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := open(cmd)
		if err != nil {
			return err
		}
		out, _ := cmd.Flags().GetString("out")
		data, err := json.MarshalIndent(c.session.Inputs, "", "  ")
		if err != nil {
			return errors.Wrap(err, "marshal inputs")
		}
		return os.WriteFile(out, data, 0o600)
	},
}

var Playback = &cobra.Command{
	Use:     "playback",
	GroupID: "debug",
	Short:   "Replay recorded inputs from the start of the run",
	Long: `Rebuilds the session from its seed and replays the recorded inputs.
The same seed and inputs reproduce the playthrough exactly.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := open(cmd)
		if err != nil {
			return err
		}
		in, _ := cmd.Flags().GetString("in")
		data, err := os.ReadFile(in)
		if err != nil {
			return errors.Wrap(err, "read recording")
		}
		var inputs []game.ChoiceInput
		if err = json.Unmarshal(data, &inputs); err != nil {
			return errors.Wrap(err, "unmarshal recording")
		}

		replay, err := c.engine.NewSession(c.slot, c.session.Seed)
		if err != nil {
			return err
		}
		if _, err = c.engine.Start(replay); err != nil {
			return err
		}
		if err = c.engine.Playback(replay, inputs); err != nil {
			return err
		}
		c.session = replay
		return c.save()
	},
}

var DebugExport = &cobra.Command{
	Use:     "debugexport",
	GroupID: "debug",
	Short:   "Dump the slot's snapshot and event log",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := open(cmd)
		if err != nil {
			return err
		}
		out, _ := cmd.Flags().GetString("out")
		data, err := c.engine.DebugExport(c.session)
		if err != nil {
			return err
		}
		return os.WriteFile(out, data, 0o600)
	},
}
