// Package replay drives the engine from recorded ticks.
package replay

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/rustyeddy/levtrader/broker"
	"github.com/rustyeddy/levtrader/market"
	"github.com/rustyeddy/levtrader/sim"
)

// Options controls how replay behaves.
type Options struct {
	// EventFirst runs a row's event before its tick. By default the tick
	// is applied first, so OPEN and CLOSE use that row's price.
	EventFirst bool

	// Strict makes a rejected event (bad amount, unknown or already closed
	// position) stop the replay. Otherwise it is logged and counted.
	Strict bool

	// Logger receives rejected events. The engine's logger when nil.
	Logger *zap.Logger
}

// Result summarizes a replay run.
type Result struct {
	Ticks    int
	Events   int
	Rejected int
}

// Row is one parsed line of a replay file.
type Row struct {
	Line  int
	Tick  market.Tick
	Event string
	Args  []string
}

// File replays the CSV file at path. See Run.
func File(ctx context.Context, path string, e *sim.Engine, opts Options) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()

	return Run(ctx, f, e, opts)
}

// Run replays CSV ticks through e and applies optional scripted events.
//
// CSV formats supported:
//
//  1. Basic ticks:
//     time,pair,price
//
//  2. Ticks + events:
//     time,pair,price,event,arg1,arg2
//
// Events (case-insensitive):
//
//	OPEN:       arg1=LONG|SHORT  arg2=margin
//	CLOSE:      arg1=#n or position id
//	CLOSE_ALL
//
// A header row starting with "time" is skipped.
func Run(ctx context.Context, r io.Reader, e *sim.Engine, opts Options) (Result, error) {
	var res Result
	b := e.Ledger()
	log := opts.Logger
	if log == nil {
		log = e.Logger().Named("replay")
	}

	err := readRows(r, func(row Row) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		if !opts.EventFirst {
			if err := applyTick(e, row); err != nil {
				return err
			}
			res.Ticks++
		}

		if row.Event != "" {
			res.Events++
			if err := handleEvent(ctx, b, row.Event, row.Args); err != nil {
				if opts.Strict || !isRejection(err) {
					return fmt.Errorf("line %d: %s: %w", row.Line, row.Event, err)
				}
				res.Rejected++
				log.Warn("replay event rejected",
					zap.Int("line", row.Line),
					zap.String("event", row.Event),
					zap.Error(err))
			}
		}

		if opts.EventFirst {
			if err := applyTick(e, row); err != nil {
				return err
			}
			res.Ticks++
		}
		return nil
	})
	return res, err
}

func applyTick(e *sim.Engine, row Row) error {
	if err := e.OnTick(row.Tick); err != nil {
		return fmt.Errorf("line %d: %w", row.Line, err)
	}
	return nil
}

func isRejection(err error) bool {
	return errors.Is(err, sim.ErrInvalidAmount) ||
		errors.Is(err, sim.ErrInvalidSide) ||
		errors.Is(err, sim.ErrPositionNotFound) ||
		errors.Is(err, sim.ErrAlreadyClosed)
}

func handleEvent(ctx context.Context, b broker.Broker, event string, args []string) error {
	switch strings.ToUpper(event) {
	case "OPEN":
		// OPEN,LONG,10
		if len(args) < 2 {
			return fmt.Errorf("need arg1=side arg2=margin")
		}
		side, err := sim.ParseSide(args[0])
		if err != nil {
			return err
		}
		margin, err := sim.ParseAmount(args[1])
		if err != nil {
			return err
		}
		_, err = b.OpenPosition(ctx, side, margin)
		return err

	case "CLOSE":
		// CLOSE,#1
		if len(args) < 1 || args[0] == "" {
			return fmt.Errorf("%w: missing position reference", sim.ErrPositionNotFound)
		}
		pid, err := broker.Resolve(b, args[0])
		if err != nil {
			return err
		}
		_, err = b.ClosePosition(ctx, pid)
		return err

	case "CLOSE_ALL":
		_, err := b.CloseAll(ctx)
		return err

	default:
		return fmt.Errorf("unknown event %q", event)
	}
}

// readRows parses r and calls fn for every data row in order. Spreadsheet
// exports often start with a byte order mark; UTF-16 input is decoded and
// a UTF-8 BOM is dropped.
func readRows(r io.Reader, fn func(Row) error) error {
	cr := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	first := true
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if len(rec) == 0 {
			continue
		}
		line, _ := cr.FieldPos(0)

		if first {
			first = false
			if strings.EqualFold(strings.TrimSpace(rec[0]), "time") {
				continue
			}
		}

		row, err := parseRow(rec)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		row.Line = line
		if err := fn(row); err != nil {
			return err
		}
	}
}

func parseRow(rec []string) (Row, error) {
	// Minimum tick columns: time,pair,price
	if len(rec) < 3 {
		return Row{}, fmt.Errorf("bad row (need at least 3 cols time,pair,price): %v", rec)
	}

	t, err := time.Parse(time.RFC3339, strings.TrimSpace(rec[0]))
	if err != nil {
		return Row{}, fmt.Errorf("bad time %q: %w", rec[0], err)
	}

	price, err := decimal.NewFromString(strings.TrimSpace(rec[2]))
	if err != nil {
		return Row{}, fmt.Errorf("bad price %q: %w", rec[2], err)
	}

	row := Row{
		Tick: market.Tick{
			Pair:  market.NormalizePair(rec[1]),
			Price: price,
			Time:  t.UTC(),
		},
	}
	if err := row.Tick.Validate(); err != nil {
		return Row{}, err
	}

	// Optional event columns: event,arg1,arg2
	if len(rec) >= 4 {
		row.Event = strings.TrimSpace(rec[3])
	}
	if row.Event != "" && len(rec) >= 5 {
		for _, a := range rec[4:] {
			row.Args = append(row.Args, strings.TrimSpace(a))
		}
	}
	return row, nil
}
