package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuschain/credit-ledger-api/internal/ledger"
	"github.com/campuschain/credit-ledger-api/internal/models"
)

func TestEventInsert(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectExec("INSERT INTO ledger_events").WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Insert(context.Background(), &models.EventRow{
		Seq:       0,
		Type:      ledger.EventCreditRecorded,
		Payload:   []byte(`{"seq":0,"type":"CREDIT_RECORDED"}`),
		EmittedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventListSince(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"seq", "type", "payload", "emitted_at", "created_at"}).
		AddRow(1, string(ledger.EventCreditApproved), []byte(`{}`), now, now).
		AddRow(2, string(ledger.EventCreditRejected), []byte(`{}`), now, now)
	mock.ExpectQuery("SELECT seq, type, payload, emitted_at, created_at FROM ledger_events WHERE seq >=").
		WithArgs(uint64(1), 100).
		WillReturnRows(rows)

	events, err := repo.ListSince(context.Background(), 1, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, uint64(1), events[0].Seq)
	assert.NoError(t, mock.ExpectationsWereMet())
}
