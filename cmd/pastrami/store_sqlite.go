//go:build sqlite

package main

import (
	"pastrami/internal/storage"
	"pastrami/internal/storage/sqlitestore"
)

func openFileStore(path string) (storage.Store, error) {
	return sqlitestore.Open(path)
}
