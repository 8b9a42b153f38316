package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bft-labs/inboxship/internal/adapters/fs"
	"github.com/bft-labs/inboxship/internal/cliconfig"
)

func newLedgerCmd(cfg *cliconfig.Config, cfgPath *string) *cobra.Command {
	ledger := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect or reset the delivery ledger",
	}

	ledger.AddCommand(&cobra.Command{
		Use:   "count",
		Short: "Print the number of delivered fingerprints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := ledgerPath(cmd, cfg, *cfgPath)
			if err != nil {
				return err
			}
			l := fs.NewDigestLedger()
			res, err := l.Load(path)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Count)
			return nil
		},
	})

	ledger.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Forget every delivered message so the next run sends everything again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := ledgerPath(cmd, cfg, *cfgPath)
			if err != nil {
				return err
			}
			l := fs.NewDigestLedger()
			l.Clear()
			if err := l.Save(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", path)
			return nil
		},
	})

	return ledger
}

func ledgerPath(cmd *cobra.Command, cfg *cliconfig.Config, cfgPath string) (string, error) {
	if _, err := loadConfig(cmd, cfg, cfgPath); err != nil {
		return "", err
	}
	if cfg.StateDir == "" {
		cfg.StateDir = cliconfig.DefaultStateDir()
		if cfg.StateDir == "" {
			return "", fmt.Errorf("state-dir is required (home directory unavailable)")
		}
	}
	if cfg.LedgerFile == "" {
		cfg.LedgerFile = cliconfig.DefaultLedgerFile
	}
	return cfg.LedgerPath(), nil
}
