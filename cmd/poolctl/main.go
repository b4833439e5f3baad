// Command poolctl is an operator tool for checking payouts and dice outside
// the bot.
package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"squares-bot/internal/game/baucua"
	"squares-bot/internal/game/payout"
	"squares-bot/internal/pkg/fairrand"
)

func main() {
	if err := newRootCmd(os.Stdout, nil).Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. A nil src rolls with crypto/rand.
func newRootCmd(out io.Writer, src fairrand.Source) *cobra.Command {
	root := &cobra.Command{
		Use:          "poolctl",
		Short:        "Inspect squares payouts and Bầu Cua rolls",
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.SetErr(out)

	root.AddCommand(newResolveCmd(), newRollCmd(src))
	return root
}

func newResolveCmd() *cobra.Command {
	var (
		pot       float64
		winners   string
		showCoins bool
	)

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Print the payout schedule for a pot",
		Example: `  poolctl resolve --pot 190 --winners 0011
  poolctl resolve --pot 1000 --winners 1111 --coins`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outcomes, err := payout.ParseOutcomes(winners)
			if err != nil {
				return err
			}
			sched, err := payout.Resolve(pot, outcomes)
			if err != nil {
				return err
			}
			return writeSchedule(cmd.OutOrStdout(), sched, showCoins)
		},
	}

	cmd.Flags().Float64Var(&pot, "pot", 0, "total pot")
	cmd.Flags().StringVar(&winners, "winners", "1111", "per-round winner flags, Q1 first, e.g. 0011")
	cmd.Flags().BoolVar(&showCoins, "coins", false, "also show whole-coin amounts")
	_ = cmd.MarkFlagRequired("pot")
	return cmd
}

func writeSchedule(out io.Writer, s payout.Schedule, showCoins bool) error {
	coins := s.Coins()

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	header := "ROUND\tBASE\tPAYS\tSTATUS"
	if showCoins {
		header += "\tCOINS"
	}
	fmt.Fprintln(tw, header)

	for _, p := range s.Rounds {
		status := "won"
		switch {
		case p.IsRollover:
			status = "rollover"
		case p.Unclaimed:
			status = "unclaimed"
		}
		line := fmt.Sprintf("%s\t%s\t%s\t%s", p.ID, payout.FormatAmount(p.BaseAmount), payout.FormatAmount(p.DisplayAmount), status)
		if showCoins {
			line += fmt.Sprintf("\t%d", coins[p.ID])
		}
		fmt.Fprintln(tw, line)
	}
	fmt.Fprintf(tw, "POT\t%s\t\t\n", payout.FormatAmount(s.Pot))
	return tw.Flush()
}

func newRollCmd(src fairrand.Source) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "roll",
		Short: "Throw the three Bầu Cua dice",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return fmt.Errorf("count must be at least 1")
			}
			roller := baucua.NewRoller(src)
			for i := 0; i < count; i++ {
				roll, err := roller.Roll()
				if err != nil {
					return err
				}
				symbols, err := baucua.DecodeToSymbols(roll)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%v  %s\n", [baucua.NumDice]int(roll), baucua.FormatRoll(symbols))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of throws")
	return cmd
}
