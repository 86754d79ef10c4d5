//go:build !sqlite

package main

import (
	"pastrami/internal/storage"
	"pastrami/internal/storage/boltstore"
)

func openFileStore(path string) (storage.Store, error) {
	return boltstore.Open(path)
}
