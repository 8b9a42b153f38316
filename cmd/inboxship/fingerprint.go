package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bft-labs/inboxship/internal/cliconfig"
	"github.com/bft-labs/inboxship/internal/domain"
)

func newFingerprintCmd(cfg *cliconfig.Config, cfgPath *string) *cobra.Command {
	var (
		date    int64
		address string
		body    string
	)
	cmd := &cobra.Command{
		Use:   "fingerprint",
		Short: "Print the ledger fingerprint of a message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(cmd, cfg, *cfgPath); err != nil {
				return err
			}
			scheme, err := domain.ParseScheme(cfg.FingerprintScheme)
			if err != nil {
				return err
			}
			fp := domain.NewHasher(scheme).Fingerprint(date, address, body)
			fmt.Fprintln(cmd.OutOrStdout(), fp)
			return nil
		},
	}
	cmd.Flags().Int64Var(&date, "date", 0, "timestamp in epoch milliseconds")
	cmd.Flags().StringVar(&address, "address", "", "sender address")
	cmd.Flags().StringVar(&body, "body", "", "message body")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}
