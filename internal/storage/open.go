package storage

import (
	"fmt"
	"strings"

	logx "crontrol/pkg/logx"
)

// Open initializes the store selected by cfg.Driver. An empty driver is
// the in-memory store.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" {
		driver = "memory"
	}
	log = log.With(logx.String("driver", driver))

	var (
		st  Store
		err error
	)
	switch driver {
	case "memory":
		st = openMemory(cfg)
	case "file":
		st, err = openFile(cfg, log)
	case "sqlite", "sqlite3":
		st, err = openSQLite(cfg, log)
	default:
		return nil, fmt.Errorf("%w: %q", ErrDriver, cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	log.Debug("store opened", logx.Int("core_hooks", len(st.CoreHooks())))
	return st, nil
}
