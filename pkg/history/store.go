package history

import (
	"fmt"
	"log/slog"
	"time"

	"chefops/cookbook-cleaner/pkg/config"
)

// DriverMemory selects the in-process store.
const DriverMemory = "memory"

// New opens the store selected by cfg.Driver.
func New(cfg *config.HistoryConfig, logger *slog.Logger) (Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("history config cannot be nil")
	}

	switch cfg.Driver {
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverSQLite3, DriverSQLite:
		s, err := NewSQLStore(SQLConfig{
			Driver:      cfg.Driver,
			Path:        config.ExpandHome(cfg.Path),
			BusyTimeout: cfg.BusyTimeout,
		}, logger)
		if err != nil {
			// A nil *SQLStore must not escape as a non-nil Store.
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported history driver %q", cfg.Driver)
	}
}

// RetentionCutoff returns the prune cutoff for a retention in days, or the
// zero time when days is not positive.
func RetentionCutoff(now time.Time, days int) time.Time {
	if days <= 0 {
		return time.Time{}
	}
	return now.AddDate(0, 0, -days)
}
