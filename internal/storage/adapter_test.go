package storage

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

type brokenStore struct{ err error }

func (b brokenStore) Read(context.Context, string) (string, bool, error) { return "", false, b.err }
func (b brokenStore) Write(context.Context, string, string) error        { return b.err }
func (b brokenStore) Remove(context.Context, string) error               { return b.err }

type failureCounter map[string]int

func (c failureCounter) RecordStorageFailure(op string) { c[op]++ }

func TestAdapterWrapsFailures(t *testing.T) {
	logs := &bytes.Buffer{}
	counter := failureCounter{}
	adapter := NewAdapter(brokenStore{err: errors.New("disk full")}, slog.New(slog.NewTextHandler(logs, nil)), counter)
	ctx := context.Background()

	value, found, err := adapter.Read(ctx, StateKey("pistachio"))
	require.ErrorIs(t, err, ErrReadFailed)
	require.Contains(t, err.Error(), "disk full")
	require.False(t, found)
	require.Empty(t, value)

	err = adapter.Write(ctx, StateKey("pistachio"), "{}")
	require.ErrorIs(t, err, ErrWriteFailed)
	require.Contains(t, err.Error(), "disk full")

	err = adapter.Remove(ctx, StateKey("pistachio"))
	require.ErrorIs(t, err, ErrRemoveFailed)

	require.Equal(t, failureCounter{"read": 1, "write": 1, "remove": 1}, counter)
	require.Contains(t, logs.String(), "storage operation failed")
	require.Contains(t, logs.String(), "inv:pistachio:v1")
}

func TestAdapterRejectsEmptyKey(t *testing.T) {
	adapter := NewAdapter(NewMemoryStore(), nil, nil)
	require.ErrorIs(t, adapter.Write(context.Background(), "", "x"), ErrEmptyKey)
	require.ErrorIs(t, adapter.Remove(context.Background(), ""), ErrEmptyKey)
	_, found, err := adapter.Read(context.Background(), "")
	require.NoError(t, err)
	require.False(t, found)
}

func TestAdapterPassesThrough(t *testing.T) {
	adapter := NewAdapter(NewMemoryStore(), nil, nil)
	ctx := context.Background()
	require.NoError(t, adapter.Write(ctx, "k", "v"))
	value, found, err := adapter.Read(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "v", value)
}
