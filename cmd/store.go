package main

import (
	"github.com/brewlab/brewlog-cli/internal/store"
)

func initStore() (*store.SQLiteStore, error) {
	dsn := cfg.Store.DatabaseURL
	if dsn == "" {
		dsn = "brewlog.db"
	}
	return store.NewSQLite(dsn)
}
