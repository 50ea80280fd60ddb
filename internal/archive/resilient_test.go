package archive_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexbridge-tech/bugspotter/internal/archive"
)

func strptr(s string) *string { return &s }

func newResilient(inner archive.Archiver, cfg archive.ResilientConfig) *archive.ResilientArchiver {
	cfg.Logger = zerolog.Nop()
	if cfg.RetryInterval == 0 {
		cfg.RetryInterval = time.Millisecond
	}
	return archive.NewResilientArchiver(inner, cfg)
}

func TestResilientArchiver_Success(t *testing.T) {
	inner := archive.NewInMemoryArchiver()
	resilient := newResilient(inner, archive.ResilientConfig{Name: "test"})

	result, err := resilient.ArchiveReportFiles(context.Background(),
		strptr("https://cdn.example.com/a.png"),
		strptr("https://cdn.example.com/a.replay"),
	)
	require.NoError(t, err)
	assert.Equal(t, 2, result.FilesArchived)
	assert.Equal(t, gobreaker.StateClosed, resilient.State())
	assert.Len(t, inner.Archived(), 2)
}

func TestResilientArchiver_RetriesTransientFailure(t *testing.T) {
	inner := archive.NewInMemoryArchiver()
	inner.FailAll = true
	resilient := newResilient(inner, archive.ResilientConfig{
		Name:       "test-retry",
		MaxRetries: 2,
	})

	_, err := resilient.ArchiveReportFiles(context.Background(), strptr("https://cdn.example.com/a.png"), nil)
	require.Error(t, err)

	// The backend recovers; the next call goes straight through.
	inner.FailAll = false
	result, err := resilient.ArchiveReportFiles(context.Background(), strptr("https://cdn.example.com/a.png"), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.FilesArchived)
}

func TestResilientArchiver_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	inner := archive.NewInMemoryArchiver()
	inner.FailAll = true
	resilient := newResilient(inner, archive.ResilientConfig{
		Name:       "test-breaker",
		MaxRetries: 1,
	})

	// Default trip: 5+ requests at 50%+ failure rate.
	for i := 0; i < 5; i++ {
		_, err := resilient.ArchiveReportFiles(context.Background(), strptr("https://cdn.example.com/a.png"), nil)
		require.Error(t, err)
	}

	assert.Equal(t, gobreaker.StateOpen, resilient.State())

	// Calls now fail fast without reaching the backend.
	before := len(inner.Archived())
	_, err := resilient.ArchiveReportFiles(context.Background(), strptr("https://cdn.example.com/b.png"), nil)
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, before, len(inner.Archived()))
}

func TestResilientArchiver_BreakerRecovers(t *testing.T) {
	inner := archive.NewInMemoryArchiver()
	inner.FailAll = true
	resilient := newResilient(inner, archive.ResilientConfig{
		Name:           "test-recovery",
		MaxRetries:     1,
		BreakerTimeout: 20 * time.Millisecond,
	})

	for i := 0; i < 5; i++ {
		_, _ = resilient.ArchiveReportFiles(context.Background(), strptr("https://cdn.example.com/a.png"), nil)
	}
	require.Equal(t, gobreaker.StateOpen, resilient.State())

	inner.FailAll = false
	time.Sleep(30 * time.Millisecond)

	result, err := resilient.ArchiveReportFiles(context.Background(), strptr("https://cdn.example.com/c.png"), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.FilesArchived)
	assert.Equal(t, gobreaker.StateClosed, resilient.State())
}

func TestResilientArchiver_ArchiveBatch(t *testing.T) {
	inner := archive.NewInMemoryArchiver()
	resilient := newResilient(inner, archive.ResilientConfig{Name: "test-batch"})

	result, err := resilient.ArchiveBatch(context.Background(), []archive.FileRef{
		{ScreenshotURL: strptr("https://cdn.example.com/1.png"), ReplayURL: strptr("https://cdn.example.com/1.replay")},
		{ScreenshotURL: strptr("https://cdn.example.com/2.png")},
		{},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.FilesArchived)
}
