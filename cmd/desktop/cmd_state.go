package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	sqlitestore "ndi_desktop/internal/store/sqlite"
)

func newStateCmd(flags *globalFlags) *cli.Command {
	return &cli.Command{
		Name:  "state",
		Usage: "Print the saved progress snapshot",
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() {
				_ = store.Close()
			}()

			raw, err := store.Get(ctx, cfg.Storage.Key)
			if errors.Is(err, sqlitestore.ErrNotFound) {
				fmt.Fprintln(c.Root().Writer, "no saved progress")
				return nil
			}
			if err != nil {
				return err
			}
			updated, err := store.UpdatedAt(ctx, cfg.Storage.Key)
			if err != nil {
				return err
			}

			var snapshot any
			if err := json.Unmarshal(raw, &snapshot); err != nil {
				return fmt.Errorf("decode snapshot: %w", err)
			}
			enc := json.NewEncoder(c.Root().Writer)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"key":        cfg.Storage.Key,
				"updated_at": updated,
				"snapshot":   snapshot,
			})
		},
	}
}

func newResetCmd(flags *globalFlags) *cli.Command {
	return &cli.Command{
		Name:  "reset",
		Usage: "Delete the saved progress snapshot",
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() {
				_ = store.Close()
			}()
			if err := store.Delete(ctx, cfg.Storage.Key); err != nil {
				return err
			}
			fmt.Fprintf(c.Root().Writer, "progress %s cleared\n", cfg.Storage.Key)
			return nil
		},
	}
}
