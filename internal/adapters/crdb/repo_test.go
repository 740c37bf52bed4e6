package crdb_test

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/robertarktes/venue-seat-holds/internal/adapters/crdb"
	"github.com/robertarktes/venue-seat-holds/internal/domain"
)

func startCockroach(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	crdbContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "cockroachdb/cockroach:v24.1.1",
			Cmd:          []string{"start-single-node", "--insecure"},
			ExposedPorts: []string{"26257/tcp", "8080/tcp"},
			WaitingFor:   wait.ForHTTP("/health?ready=1").WithPort("8080"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { crdbContainer.Terminate(ctx) })

	host, err := crdbContainer.Host(ctx)
	require.NoError(t, err)
	port, err := crdbContainer.MappedPort(ctx, "26257")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, "postgresql://root@"+host+":"+port.Port()+"/defaultdb?sslmode=disable")
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestOutbox_SinkFetchMark(t *testing.T) {
	ctx := context.Background()
	repo := crdb.NewRepository(startCockroach(t))
	require.NoError(t, repo.EnsureSchema(ctx))

	hold := domain.NewHold(1, "a@example.com", []domain.Seat{{Row: 1, Number: 1, Quality: 5}}, time.Minute)
	ev := domain.NewHoldEvent(domain.EventHoldCreated, hold)

	sink := crdb.NewOutboxSink(repo)
	require.NoError(t, sink.Publish(ctx, ev))
	require.NoError(t, sink.Publish(ctx, ev))

	var pending []crdb.OutboxRecord
	err := repo.WithTx(ctx, func(tx pgx.Tx) error {
		var err error
		pending, err = repo.FetchPending(ctx, tx, 10)
		if err != nil {
			return err
		}
		ids := make([]uuid.UUID, len(pending))
		for i, rec := range pending {
			ids[i] = rec.ID
		}
		return repo.MarkPublished(ctx, tx, ids, time.Now())
	})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "hold.created", pending[0].EventType)
	assert.Equal(t, int64(1), pending[0].AggregateID)
	assert.Equal(t, ev.ID.String(), pending[0].DedupeKey)

	err = repo.WithTx(ctx, func(tx pgx.Tx) error {
		var err error
		pending, err = repo.FetchPending(ctx, tx, 10)
		return err
	})
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestOutbox_InsertDuplicateIsConflict(t *testing.T) {
	ctx := context.Background()
	repo := crdb.NewRepository(startCockroach(t))
	require.NoError(t, repo.EnsureSchema(ctx))

	rec := crdb.OutboxRecord{
		AggregateType: "hold",
		AggregateID:   7,
		EventType:     "hold.reserved",
		Payload:       []byte(`{}`),
		DedupeKey:     uuid.NewString(),
	}
	insert := func(tx pgx.Tx) error {
		rec.ID = uuid.New()
		return repo.InsertOutbox(ctx, tx, rec)
	}

	require.NoError(t, repo.WithTx(ctx, insert))
	err := repo.WithTx(ctx, insert)
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestRetryTx_SerializationFailure(t *testing.T) {
	ctx := context.Background()
	repo := crdb.NewRepository(startCockroach(t))

	calls := 0
	err := repo.RetryTx(ctx, func(tx pgx.Tx) error {
		calls++
		if calls == 1 {
			return &pgconn.PgError{Code: crdb.SerializationFailureCode, Message: "restart transaction"}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	calls = 0
	err = repo.RetryTx(ctx, func(tx pgx.Tx) error {
		calls++
		return &pgconn.PgError{Code: crdb.SerializationFailureCode, Message: "restart transaction"}
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrSerializationFailure))
	assert.Equal(t, 3, calls)

	calls = 0
	err = repo.RetryTx(ctx, func(tx pgx.Tx) error {
		calls++
		return errors.New("boom")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
