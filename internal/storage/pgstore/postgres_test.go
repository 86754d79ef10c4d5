package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"pastrami/internal/storage"
)

func newStoreWithMock(t *testing.T) (*Store, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return New(db), mock, db
}

func TestPutSuccess(t *testing.T) {
	store, mock, db := newStoreWithMock(t)
	defer db.Close()

	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectExec(`INSERT INTO texts .* ON CONFLICT \(id\) DO NOTHING;`).
		WithArgs("abc", []byte("ct"), []byte("n"), created).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Put(context.Background(), &storage.Text{
		ID:         "abc",
		Ciphertext: []byte("ct"),
		Nonce:      []byte("n"),
		CreatedAt:  created,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPutConflictRowsAffected0(t *testing.T) {
	store, mock, db := newStoreWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO texts .* ON CONFLICT \(id\) DO NOTHING;`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Put(context.Background(), &storage.Text{ID: "dup", CreatedAt: time.Now()})
	if !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetNotFound(t *testing.T) {
	store, mock, db := newStoreWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT id, ciphertext, nonce, created_at FROM texts WHERE id = \$1;`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	if _, err := store.Get(context.Background(), "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetScansRow(t *testing.T) {
	store, mock, db := newStoreWithMock(t)
	defer db.Close()

	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "ciphertext", "nonce", "created_at"}).
		AddRow("abc", []byte("ct"), []byte("n"), created)
	mock.ExpectQuery(`SELECT id, ciphertext, nonce, created_at FROM texts WHERE id = \$1;`).
		WithArgs("abc").
		WillReturnRows(rows)

	text, err := store.Get(context.Background(), "abc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if text.ID != "abc" || string(text.Ciphertext) != "ct" || !text.CreatedAt.Equal(created) {
		t.Fatalf("unexpected row: %+v", text)
	}
}

func TestDeleteAbsentIsNoop(t *testing.T) {
	store, mock, db := newStoreWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM texts WHERE id = \$1;`).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.Delete(context.Background(), "missing"); err != nil {
		t.Fatalf("delete absent id: %v", err)
	}
}

func TestListExpired(t *testing.T) {
	store, mock, db := newStoreWithMock(t)
	defer db.Close()

	cutoff := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id"}).AddRow("old1").AddRow("old2")
	mock.ExpectQuery(`SELECT id FROM texts WHERE created_at < \$1 ORDER BY created_at LIMIT \$2;`).
		WithArgs(cutoff, 256).
		WillReturnRows(rows)

	ids, err := store.ListExpired(context.Background(), cutoff, 256)
	if err != nil {
		t.Fatalf("list expired: %v", err)
	}
	if len(ids) != 2 || ids[0] != "old1" || ids[1] != "old2" {
		t.Fatalf("unexpected ids: %v", ids)
	}
}
