package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/levtrader/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the SQLite trade journal",
	Long: `Look up journaled trades.

Examples:
  trader journal trade 01HV7Y8K9Q...
  trader journal today
  trader journal day 2026-01-24 --db ./trader.db
  trader journal day 2026-01-24 --org >> trading.org`,
}

var journalTradeCmd = &cobra.Command{
	Use:   "trade <id>",
	Short: "Show one trade",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withJournal(func(j *journal.SQLite) error {
			rec, err := j.GetTrade(args[0])
			if err != nil {
				return err
			}
			printTrades(cmd.OutOrStdout(), []journal.TradeRecord{rec})
			return nil
		})
	},
}

var journalTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "List trades closed today",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listDay(cmd.OutOrStdout(), time.Now().In(time.Local).Format("2006-01-02"))
	},
}

var journalDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "List trades closed on a day",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return listDay(cmd.OutOrStdout(), args[0])
	},
}

var (
	journalDBPath string
	journalOrg    bool
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalTradeCmd, journalTodayCmd, journalDayCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "", "SQLite journal path (default from config)")
	journalCmd.PersistentFlags().BoolVar(&journalOrg, "org", false, "print trades as Org-mode entries")
}

func withJournal(fn func(j *journal.SQLite) error) error {
	path := journalDBPath
	if path == "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		path = cfg.Journal.DBPath
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("open db: %w", err)
	}

	j, err := journal.NewSQLite(path)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()
	return fn(j)
}

func listDay(w io.Writer, day string) error {
	start, end, err := dayBounds(time.Local, day)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}
	return withJournal(func(j *journal.SQLite) error {
		recs, err := j.ListTradesClosedBetween(start, end)
		if err != nil {
			return fmt.Errorf("query trades: %w", err)
		}
		printTrades(w, recs)
		if journalOrg {
			return nil
		}

		s := journal.Summarize(recs)
		fmt.Fprintf(w, "\n%d trades, win rate %s%%, net %s\n", s.Trades, s.WinRate().Shift(2).StringFixed(1), s.NetPL.StringFixed(2))
		return nil
	})
}

func printTrades(w io.Writer, recs []journal.TradeRecord) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "no trades")
		return
	}
	if journalOrg {
		fmt.Fprintln(w, journal.FormatTradesOrg(recs))
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPAIR\tSIDE\tMARGIN\tLEV\tENTRY\tEXIT\tP/L\tREASON\tCLOSED")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			r.TradeID, r.Pair, r.Side,
			r.Margin.StringFixed(2), r.Leverage,
			r.EntryPrice.StringFixed(2), r.ExitPrice.StringFixed(2),
			r.RealizedPL.StringFixed(2), r.Reason,
			r.CloseTime.In(time.Local).Format(time.DateTime))
	}
	tw.Flush()
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1)
	return start, end, nil
}
