package config

import (
	"fmt"

	"github.com/rustyeddy/levtrader/journal"
)

// OpenJournal opens the journal selected by c.
func (c JournalConfig) OpenJournal() (journal.Journal, error) {
	switch c.Type {
	case "csv":
		j, err := journal.NewCSV(c.TradesFile, c.EquityFile)
		if err != nil {
			return nil, err
		}
		return j, nil
	case "sqlite":
		j, err := journal.NewSQLite(c.DBPath)
		if err != nil {
			return nil, err
		}
		return j, nil
	case "none", "":
		return journal.Discard{}, nil
	default:
		return nil, fmt.Errorf("unknown journal type %q", c.Type)
	}
}
