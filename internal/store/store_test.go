package store

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/skylift/rotoreval/internal/artifact"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewWithDB(sqlx.NewDb(db, "postgres")), mock
}

func TestSaveRun(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.Close()

	art, err := artifact.NewTagged("closeout.csv", artifact.SchemaCloseoutCSV, "header\nrow\n")
	require.NoError(t, err)
	bundle := artifact.NewBundle("run-1")
	bundle.Add(art)
	digest := bundle.Digest()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO eval_runs`).
		WithArgs("run-1", digest.Tag).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO eval_artifacts`).
		WithArgs("run-1", art.Name, art.Audit.Schema, art.Audit.HashHex, art.Audit.Tag, art.Content).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = s.SaveRun(context.Background(), "run-1", digest, []artifact.Tagged{art})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveRunRollsBackOnError(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO eval_runs`).
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	err := s.SaveRun(context.Background(), "run-2", artifact.Audit{Tag: "t"}, nil)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetArtifact(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.Close()

	rows := sqlmock.NewRows([]string{"run_id", "name", "schema", "hash_hex", "tag", "content"}).
		AddRow("run-1", "closeout.csv", "closeout_csv_v1", "abc", "closeout_csv_v1:abc", "data")
	mock.ExpectQuery(`SELECT run_id, name, schema, hash_hex, tag, content`).
		WithArgs("run-1", "closeout.csv").
		WillReturnRows(rows)

	rec, err := s.GetArtifact(context.Background(), "run-1", "closeout.csv")
	require.NoError(t, err)
	require.Equal(t, "closeout_csv_v1:abc", rec.Tag)
	require.Equal(t, "data", rec.Content)
	require.NoError(t, mock.ExpectationsWereMet())
}
