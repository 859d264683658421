// Package console is the line-oriented trading terminal: it reads commands,
// drives a broker and prints balances and positions.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/levtrader/broker"
	"github.com/rustyeddy/levtrader/market"
	"github.com/rustyeddy/levtrader/sim"
)

const helpText = `commands:
  long <amount>     open a long position with <amount> margin
  short <amount>    open a short position with <amount> margin
  close <#n|id>     close a position (#n counts from 1 in opening order)
  close all         close every open position
  balance           show balance and equity
  positions         list positions
  price             show the last price
  help              show this help
  quit              exit
`

// ErrQuit is returned by Exec for the quit command.
var ErrQuit = errors.New("quit")

type Console struct {
	b   broker.Broker
	in  io.Reader
	mu  sync.Mutex
	out io.Writer
}

func New(b broker.Broker, in io.Reader, out io.Writer) *Console {
	return &Console{b: b, in: in, out: out}
}

// Run reads commands until quit, end of input or ctx is done. After ctx is
// done the input reader stays blocked until its next line or EOF; with
// os.Stdin that is the rest of the process lifetime.
func (c *Console) Run(ctx context.Context) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(c.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	c.printf("%s paper trading, %dx leverage. Type help for commands.\n", market.DisplayPair(c.b.Pair()), c.b.Leverage())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			err := c.Exec(ctx, line)
			if errors.Is(err, ErrQuit) {
				return nil
			}
			if err != nil {
				c.printf("error: %v\n", err)
			}
		}
	}
}

// Exec runs one command line.
func (c *Console) Exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	cmd, args := strings.ToLower(fields[0]), fields[1:]
	switch cmd {
	case "long", "short", "buy", "sell":
		if len(args) != 1 {
			return fmt.Errorf("usage: %s <amount>", cmd)
		}
		return c.open(ctx, cmd, args[0])

	case "close":
		if len(args) != 1 {
			return fmt.Errorf("usage: close <#n|id|all>")
		}
		if strings.EqualFold(args[0], "all") {
			return c.closeAll(ctx)
		}
		return c.close(ctx, args[0])

	case "balance", "account":
		c.printBalance()
	case "positions", "ls":
		c.printPositions()
	case "price":
		tick, err := c.b.LastTick()
		if err != nil {
			return err
		}
		c.printf("%s %s\n", market.DisplayPair(tick.Pair), tick.Price.StringFixed(2))
	case "help", "?":
		c.printf("%s", helpText)
	case "quit", "exit", "q":
		return ErrQuit
	default:
		return fmt.Errorf("unknown command %q (try help)", cmd)
	}
	return nil
}

func (c *Console) open(ctx context.Context, sideArg, amountArg string) error {
	side, err := sim.ParseSide(sideArg)
	if err != nil {
		return err
	}
	margin, err := sim.ParseAmount(amountArg)
	if err != nil {
		return err
	}

	pid, err := c.b.OpenPosition(ctx, side, margin)
	if err != nil {
		return err
	}
	p, err := c.b.Position(pid)
	if err != nil {
		return err
	}

	c.printf("opened %s %s margin %s x%d @ %s (liq %s)\n",
		p.ID, p.Side, p.Margin.StringFixed(2), p.Leverage, p.OpenPrice.StringFixed(2), p.LiquidationPrice().StringFixed(2))
	c.printBalance()
	return nil
}

func (c *Console) close(ctx context.Context, ref string) error {
	pid, err := broker.Resolve(c.b, ref)
	if err != nil {
		return err
	}
	p, err := c.b.ClosePosition(ctx, pid)
	if err != nil {
		return err
	}
	c.printf("closed %s %s @ %s pnl %s\n", p.ID, p.Side, p.ClosePrice.StringFixed(2), signed(p.RealizedPL))
	c.printBalance()
	return nil
}

func (c *Console) closeAll(ctx context.Context) error {
	closed, err := c.b.CloseAll(ctx)
	if err != nil {
		return err
	}
	total := decimal.Zero
	for _, p := range closed {
		total = total.Add(p.RealizedPL)
	}
	c.printf("closed %d positions, pnl %s\n", len(closed), signed(total))
	c.printBalance()
	return nil
}

// OnLiquidation prints a notice for a position the engine liquidated.
func (c *Console) OnLiquidation(p sim.Position) {
	c.printf("LIQUIDATED %s %s margin %s @ %s\n", p.ID, p.Side, p.Margin.StringFixed(2), p.ClosePrice.StringFixed(2))
}

func (c *Console) printBalance() {
	acct := c.b.Account()
	c.printf("%s\n", FormatBalance(acct, c.b.Pair()))
	if acct.OpenPositions > 0 {
		c.printf("equity %s, margin %s, unrealized %s, %d open\n",
			acct.Equity.StringFixed(2), acct.MarginUsed.StringFixed(2), signed(acct.UnrealizedPL), acct.OpenPositions)
	}
}

func (c *Console) printPositions() {
	ps := c.b.Positions()
	if len(ps) == 0 {
		c.printf("no positions\n")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	tw := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tID\tSIDE\tMARGIN\tNOTIONAL\tQTY\tOPEN\tPRICE\tPNL\tROE\tLIQ\tSTATUS")
	for i, p := range ps {
		price, pl := p.LastPrice, p.UnrealizedPL
		if p.Status.Terminal() {
			price, pl = p.ClosePrice, p.RealizedPL
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s%%\t%s\t%s\n",
			i+1, p.ID, p.Side,
			p.Margin.StringFixed(2),
			p.Notional.StringFixed(2),
			p.Quantity.StringFixed(6),
			p.OpenPrice.StringFixed(2),
			price.StringFixed(2),
			signed(pl),
			p.ROE().Shift(2).StringFixed(1),
			p.LiquidationPrice().StringFixed(2),
			p.Status)
	}
	tw.Flush()
}

// FormatBalance renders the balance in the quote currency with its
// approximate value in the base asset at the last price.
func FormatBalance(acct sim.Account, pair string) string {
	currency := acct.Currency
	base, quote := market.SplitPair(pair)
	if currency == "" {
		currency = quote
	}

	s := fmt.Sprintf("balance %s %s", acct.Balance.StringFixed(2), currency)
	if acct.Price.IsPositive() && quote != "" {
		s += fmt.Sprintf(" (≈ %s %s)", acct.Balance.Div(acct.Price).StringFixed(6), base)
	}
	return s
}

func signed(d decimal.Decimal) string {
	if d.IsPositive() {
		return "+" + d.StringFixed(2)
	}
	return d.StringFixed(2)
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}
