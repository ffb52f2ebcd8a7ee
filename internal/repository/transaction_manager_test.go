package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestWithTransaction_Commit(t *testing.T) {
	db, mock := setupTestDB(t)
	tm := NewTransactionManagerAdapter(db)
	repo := NewDocumentDatabaseAdapter(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM questions").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM documents").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := tm.WithTransaction(context.Background(), func(ctx context.Context) error {
		assert.NotNil(t, ctx.Value(TransactionContextKey))
		return repo.DeleteDocument(ctx, "d1")
	})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTransaction_RollbackOnError(t *testing.T) {
	db, mock := setupTestDB(t)
	tm := NewTransactionManagerAdapter(db)
	fnErr := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := tm.WithTransaction(context.Background(), func(ctx context.Context) error {
		return fnErr
	})

	assert.ErrorIs(t, err, fnErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTransaction_RollbackOnPanic(t *testing.T) {
	db, mock := setupTestDB(t)
	tm := NewTransactionManagerAdapter(db)

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = tm.WithTransaction(context.Background(), func(ctx context.Context) error {
			panic("unexpected")
		})
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetExecutor_WithoutTransaction(t *testing.T) {
	db, _ := setupTestDB(t)
	assert.Equal(t, DBTX(db), GetExecutor(context.Background(), db))
}
