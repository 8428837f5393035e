package tx

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "cinregistry/pkg/domain-errors"
)

func TestMemoryRunner(t *testing.T) {
	t.Run("applies default timeout when context has none", func(t *testing.T) {
		r := NewMemoryRunner()
		err := r.RunInTx(context.Background(), func(ctx context.Context) error {
			deadline, ok := ctx.Deadline()
			require.True(t, ok)
			assert.WithinDuration(t, time.Now().Add(DefaultTimeout), deadline, time.Second)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("cancelled context is a timeout", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := NewMemoryRunner().RunInTx(ctx, func(context.Context) error { return nil })
		assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout))
	})

	t.Run("nested call joins the outer boundary", func(t *testing.T) {
		r := NewMemoryRunner()
		inner := false
		err := r.RunInTx(context.Background(), func(ctx context.Context) error {
			assert.True(t, InTx(ctx))
			return r.RunInTx(ctx, func(context.Context) error {
				inner = true
				return nil
			})
		})
		require.NoError(t, err)
		assert.True(t, inner)
	})

	t.Run("serializes concurrent callers", func(t *testing.T) {
		r := NewMemoryRunner()
		var wg sync.WaitGroup
		counter := 0
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = r.RunInTx(context.Background(), func(context.Context) error {
					v := counter
					time.Sleep(time.Microsecond)
					counter = v + 1
					return nil
				})
			}()
		}
		wg.Wait()
		assert.Equal(t, 50, counter)
	})
}

func TestPostgresRunner(t *testing.T) {
	t.Run("commits on success and exposes the tx", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE enrollees").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err = NewPostgresRunner(db, 0).RunInTx(context.Background(), func(ctx context.Context) error {
			_, ok := From(ctx)
			require.True(t, ok)
			_, err := Querier(ctx, db).ExecContext(ctx, "UPDATE enrollees SET facility = 'x'")
			return err
		})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectRollback()

		boom := errors.New("boom")
		err = NewPostgresRunner(db, 0).RunInTx(context.Background(), func(context.Context) error {
			return boom
		})
		assert.ErrorIs(t, err, boom)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSavepoint(t *testing.T) {
	t.Run("without a transaction runs against the pool", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec("INSERT INTO issued_cins").WillReturnResult(sqlmock.NewResult(0, 1))

		err = Savepoint(context.Background(), db, "cin_claim", func(q DBTX) error {
			_, err := q.ExecContext(context.Background(), "INSERT INTO issued_cins VALUES (1)")
			return err
		})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure rolls back to the savepoint and keeps the tx usable", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("SAVEPOINT cin_claim").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("INSERT INTO issued_cins").WillReturnError(errors.New("duplicate"))
		mock.ExpectExec("ROLLBACK TO SAVEPOINT cin_claim").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("UPDATE enrollees").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err = NewPostgresRunner(db, 0).RunInTx(context.Background(), func(ctx context.Context) error {
			spErr := Savepoint(ctx, db, "cin_claim", func(q DBTX) error {
				_, err := q.ExecContext(ctx, "INSERT INTO issued_cins VALUES (1)")
				return err
			})
			assert.ErrorContains(t, spErr, "duplicate")
			_, err := Querier(ctx, db).ExecContext(ctx, "UPDATE enrollees SET cin = NULL")
			return err
		})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
