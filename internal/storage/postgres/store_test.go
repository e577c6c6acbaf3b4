package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promowatch/promowatch/internal/promo"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	store, err := NewWithPool(mock)
	require.NoError(t, err)
	return store, mock
}

func TestFindLatestReturnsRecord(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	now := time.Unix(1700000000, 0).UTC()

	rows := pgxmock.NewRows([]string{
		"id", "text", "image_key", "link_key", "composite_image_url",
		"baseline_text", "last_notified_key", "observed_at",
	}).AddRow("r1", "Hasta 50%", "img", "link", "comp", "base", "k1", now)

	mock.ExpectQuery("SELECT id, text, image_key").WillReturnRows(rows)

	rec, err := store.FindLatest(context.Background())
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "Hasta 50%", rec.Text)
	assert.Equal(t, "k1", rec.LastNotifiedKey)
	assert.Equal(t, now, rec.ObservedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindLatestEmptyTable(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT id, text, image_key").WillReturnError(pgx.ErrNoRows)

	rec, err := store.FindLatest(context.Background())
	require.NoError(t, err)
	assert.Nil(t, rec)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateInsertsRow(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	now := time.Unix(1700000000, 0).UTC()

	rec := promo.Record{
		ID:                "r1",
		Text:              "Hasta 50%",
		ImageKey:          "img",
		LinkKey:           "link",
		CompositeImageURL: "comp",
		BaselineText:      "Hasta 50%",
		LastNotifiedKey:   "k1",
		ObservedAt:        now,
	}
	mock.ExpectExec("INSERT INTO promotions").
		WithArgs(rec.ID, rec.Text, rec.ImageKey, rec.LinkKey, rec.CompositeImageURL,
			rec.BaselineText, rec.LastNotifiedKey, rec.ObservedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Create(context.Background(), rec))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshImageNotFound(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	at := time.Unix(1700000000, 0).UTC()

	mock.ExpectExec("UPDATE promotions").
		WithArgs("img", "comp", at, "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := store.RefreshImage(context.Background(), "missing", "img", "comp", at)
	assert.ErrorIs(t, err, promo.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdvanceKeyWinsRace(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	now := time.Unix(1700000000, 0).UTC()
	rec := promo.Record{
		ID:              "r1",
		Text:            "B",
		ImageKey:        "img",
		LinkKey:         "link",
		BaselineText:    "A",
		LastNotifiedKey: "k2",
		ObservedAt:      now,
	}

	mock.ExpectExec("UPDATE promotions").
		WithArgs(rec.Text, rec.ImageKey, rec.LinkKey, rec.CompositeImageURL,
			rec.BaselineText, rec.LastNotifiedKey, rec.ObservedAt, rec.ID, "k1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	n, err := store.AdvanceKey(context.Background(), "k1", rec)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdvanceKeyLosesRace(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	rec := promo.Record{ID: "r1", LastNotifiedKey: "k2"}

	mock.ExpectExec("UPDATE promotions").
		WithArgs(rec.Text, rec.ImageKey, rec.LinkKey, rec.CompositeImageURL,
			rec.BaselineText, rec.LastNotifiedKey, rec.ObservedAt, rec.ID, "stale").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	n, err := store.AdvanceKey(context.Background(), "stale", rec)
	require.NoError(t, err)
	assert.Zero(t, n)
	require.NoError(t, mock.ExpectationsWereMet())
}
