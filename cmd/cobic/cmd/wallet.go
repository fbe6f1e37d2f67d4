package cmd

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/layer-3/cobic/core"
)

func newTransferCmd(get func() *app) *cobra.Command {
	var note string

	cmd := &cobra.Command{
		Use:   "transfer RECIPIENT AMOUNT",
		Short: "Send COBIC to another user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(args[1])
			if err != nil {
				return fmt.Errorf("invalid amount %q", args[1])
			}

			a := get()
			ctx := cmd.Context()
			if _, err := a.requireSession(ctx); err != nil {
				return err
			}

			res, err := a.wallet.Transfer(ctx, core.TransferRequest{
				RecipientUsername: args[0],
				Amount:            amount,
				Description:       note,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			success.Fprintf(out, "Sent %s to %s.\n", coins(amount), args[0])
			field(out, "Balance", coins(res.NewBalance))
			return nil
		},
	}

	cmd.Flags().StringVarP(&note, "message", "m", "", "note for the recipient")
	return cmd
}

func newHistoryCmd(get func() *app) *cobra.Command {
	var filters core.TransactionFilters
	var txType string

	cmd := &cobra.Command{
		Use:   "history [ID]",
		Short: "List transactions, or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			ctx := cmd.Context()
			if _, err := a.requireSession(ctx); err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if len(args) == 1 {
				id, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid transaction id %q", args[0])
				}
				tx, err := a.wallet.Get(ctx, id)
				if err != nil {
					return err
				}
				field(out, "ID", tx.ID)
				field(out, "Type", tx.Type)
				field(out, "Amount", coins(tx.Amount))
				field(out, "Description", tx.Description)
				field(out, "Time", formatTime(&tx.Timestamp))
				return nil
			}

			filters.Type = core.TransactionType(txType)
			txs, err := a.wallet.List(ctx, filters)
			if err != nil {
				return err
			}
			if len(txs) == 0 {
				info.Fprintln(out, "No transactions yet.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTIME\tTYPE\tAMOUNT\tDESCRIPTION")
			for _, tx := range txs {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", tx.ID, formatTime(&tx.Timestamp), tx.Type, tx.Amount.StringFixed(2), tx.Description)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVar(&filters.Limit, "limit", 0, "page size (default 20)")
	cmd.Flags().IntVar(&filters.Offset, "offset", 0, "entries to skip")
	cmd.Flags().StringVar(&txType, "type", "", "mining|admin|transfer|task_reward|all")
	return cmd
}
