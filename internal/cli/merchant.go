package cli

import (
	"github.com/spf13/cobra"

	"github.com/baely/bezos/internal/merchant"
)

var markRelated bool

var merchantCmd = &cobra.Command{
	Use:   "merchant",
	Short: "Manage Bezos-related merchants",
}

var merchantMarkCmd = &cobra.Command{
	Use:   "mark NAME",
	Short: "Mark a merchant as Bezos-related, or clear it with --related=false",
	Args:  cobra.ExactArgs(1),
	RunE:  runMerchantMark,
}

var merchantListCmd = &cobra.Command{
	Use:   "list",
	Short: "List merchants marked as Bezos-related",
	Args:  cobra.NoArgs,
	RunE:  runMerchantList,
}

func init() {
	merchantMarkCmd.Flags().BoolVar(&markRelated, "related", true, "Whether the merchant is Bezos-related")

	merchantCmd.AddCommand(merchantMarkCmd)
	merchantCmd.AddCommand(merchantListCmd)
}

func runMerchantMark(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	db, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	m, err := merchant.NewService(db, log).MarkAsBezosRelated(cmd.Context(), args[0], markRelated)
	if err != nil {
		return err
	}
	return printJSON(m)
}

func runMerchantList(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	db, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	merchants, err := merchant.NewService(db, log).BezosRelated(cmd.Context())
	if err != nil {
		return err
	}
	return printJSON(merchants)
}
