package main

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Totarae/psabot/internal/config"
	"github.com/Totarae/psabot/internal/model"
)

func TestOpenJournal_FileMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	cfg := &config.Config{Mode: config.ModeFile, FileStoragePath: path}
	ctx := context.Background()

	j, err := openJournal(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	defer j.close()

	require.NoError(t, j.Record(ctx, &model.Resolution{ID: "a", UserID: 1, Started: time.Now()}))

	// новый журнал поднимает записи из файла
	reopened, err := openJournal(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	got, err := reopened.History(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}

func TestOpenJournal_MemoryMode(t *testing.T) {
	j, err := openJournal(context.Background(), &config.Config{Mode: config.ModeMemory}, zap.NewNop())
	require.NoError(t, err)
	assert.NoError(t, j.Ping(context.Background()))
}

func TestJournal_PingOverride(t *testing.T) {
	j, err := openJournal(context.Background(), &config.Config{Mode: config.ModeMemory}, zap.NewNop())
	require.NoError(t, err)

	down := errors.New("pool closed")
	j.ping = func(context.Context) error { return down }
	assert.ErrorIs(t, j.Ping(context.Background()), down)
}

func TestNewPipeline(t *testing.T) {
	cfg := &config.Config{
		GateBase:    "https://try2link.com",
		GateReferer: "https://newforex.online/",
		HTTPTimeout: time.Second,
	}
	p, err := newPipeline(cfg, nil, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, p)

	cfg.GateBase = "not a url"
	_, err = newPipeline(cfg, nil, zap.NewNop())
	assert.Error(t, err)
}

func TestRun_InvalidConfig(t *testing.T) {
	err := run(context.Background(), &config.Config{}, zap.NewNop())
	assert.Error(t, err)
}
