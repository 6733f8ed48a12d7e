package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-listing-credits/internal/domain"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the schema and seed the settings row",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			st, err := a.eng.Settings.Current(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema up to date: %s (daily_free_listings=%d, community_pot_balance=%d)\n",
				opts.cfg.DBPath, st.DailyFreeListings, st.CommunityPotBalance)
			return nil
		},
	}
}

func newGrantCmd(opts *rootOptions) *cobra.Command {
	var kind, reason, note, original string
	cmd := &cobra.Command{
		Use:   "grant USER_ID AMOUNT",
		Short: "Grant a bonus or refund, or apply a signed adjustment",
		Example: `  creditd grant --reason "launch promo" user123 3
  creditd grant --kind adjustment --note "duplicate purchase" user123 -2`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("amount %q: %w", args[1], err)
			}
			k := domain.TransactionKind(strings.ToLower(kind))
			var meta domain.TxMetadata
			switch k {
			case domain.KindBonus:
				meta = domain.BonusMetadata{Reason: reason}
			case domain.KindRefund:
				meta = domain.RefundMetadata{OriginalTransactionID: original, Reason: reason}
			case domain.KindAdjustment:
				meta = domain.AdjustmentMetadata{Operator: "cli", Note: note}
			default:
				return fmt.Errorf("kind must be bonus, refund or adjustment, got %q", kind)
			}

			a, err := openApp(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			row, err := a.eng.Ledger.Grant(cmd.Context(), args[0], amount, k, meta)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), row)
		},
	}
	// flags go before USER_ID so a negative AMOUNT is not read as a flag
	cmd.Flags().SetInterspersed(false)
	cmd.Flags().StringVar(&kind, "kind", string(domain.KindBonus), "bonus, refund or adjustment")
	cmd.Flags().StringVar(&reason, "reason", "", "reason recorded with a bonus or refund")
	cmd.Flags().StringVar(&note, "note", "", "note recorded with an adjustment")
	cmd.Flags().StringVar(&original, "original", "", "transaction id a refund reverses")
	return cmd
}

func newDonateCmd(opts *rootOptions) *cobra.Command {
	var paid int64
	var ref string
	cmd := &cobra.Command{
		Use:   "donate USER_ID CREDITS",
		Short: "Record a paid donation to the community pot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			credits, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("credits %q: %w", args[1], err)
			}
			a, err := openApp(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			res, err := a.eng.Ledger.Donate(cmd.Context(), args[0], credits, domain.DonationMetadata{PaymentRef: ref, AmountPaid: paid})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().Int64Var(&paid, "paid", 0, "amount paid in minor currency units")
	cmd.Flags().StringVar(&ref, "ref", "", "payment reference")
	return cmd
}

func newStatsCmd(opts *rootOptions) *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print community stats, or one user's totals with --user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			if user != "" {
				us, err := a.eng.Stats.UserStats(cmd.Context(), user)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), us)
			}
			cs, err := a.eng.Stats.Community(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), cs)
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user id")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
