//go:build integration

package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/saturnino-fabrica-de-software/idmatch/internal/database"
	"github.com/saturnino-fabrica-de-software/idmatch/internal/domain"
)

func setupIntegrationTest(t *testing.T) (*pgxpool.Pool, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "idmatch_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connStr := fmt.Sprintf("postgres://test:test@%s:%s/idmatch_test?sslmode=disable", host, port.Port())

	sqlDB, err := database.OpenSQL(ctx, connStr)
	require.NoError(t, err)
	migrator, err := database.NewMigrator(sqlDB, "idmatch_test")
	require.NoError(t, err)
	require.NoError(t, migrator.Up())
	require.NoError(t, migrator.Close())

	db, err := database.NewPool(ctx, database.DefaultPoolConfig(connStr))
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}

	return db, cleanup
}

func TestReportRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupIntegrationTest(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewReportRepository(db)
	runID := uuid.New()

	output := sampleOutput(runID)
	require.NoError(t, repo.Save(ctx, output, time.Now()))

	t.Run("comparisons round trip in output order", func(t *testing.T) {
		records, err := repo.ListComparisons(ctx, runID)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, output.Applicant.Comparisons[0], records[0])
		assert.Equal(t, output.CoApplicants[0].Comparisons[0], records[1])
	})

	t.Run("primary face embedding stored as vector", func(t *testing.T) {
		var dims int
		err := db.QueryRow(ctx, `
			SELECT vector_dims(pf.embedding)
			FROM primary_faces pf
			INNER JOIN applicant_reports ar ON ar.id = pf.report_id
			WHERE ar.run_id = $1
		`, runID).Scan(&dims)
		require.NoError(t, err)
		assert.Equal(t, 3, dims)
	})

	t.Run("saving the same run twice fails", func(t *testing.T) {
		err := repo.Save(ctx, output, time.Now())
		assert.ErrorIs(t, err, ErrRunExists)
	})

	t.Run("unknown run", func(t *testing.T) {
		_, err := repo.ListComparisons(ctx, uuid.New())
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
