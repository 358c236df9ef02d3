//go:build !sqlite

package storage

import (
	"fmt"

	logx "crontrol/pkg/logx"
)

func openSQLite(Config, logx.Logger) (Store, error) {
	return nil, fmt.Errorf("%w: sqlite (build with -tags sqlite)", ErrDriver)
}
