// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SahinS14/CognitoForge/pkg/forgeapi"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func record(repo, run string, ts time.Time) forgeapi.SimulationRecord {
	return forgeapi.SimulationRecord{
		RepoID:    repo,
		RunID:     run,
		Timestamp: ts,
		Plan: forgeapi.AttackPlan{
			RepoID:          repo,
			OverallSeverity: forgeapi.SeverityHigh,
			Steps: []forgeapi.AttackStep{
				{StepNumber: 1, TechniqueID: "T1552", Severity: forgeapi.SeverityHigh, AffectedFiles: []string{"ci.yml"}},
			},
		},
		AI: &forgeapi.AIProvenance{Source: forgeapi.ProvenanceFallback},
	}
}

func TestStore_PutGet(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, store.Put(ctx, record("demo-1", "demo-1_1", ts)))

	got, err := store.Get(ctx, "demo-1", "demo-1_1")
	require.NoError(t, err)
	assert.Equal(t, "demo-1_1", got.RunID)
	assert.True(t, ts.Equal(got.Timestamp))
	assert.Equal(t, forgeapi.ProvenanceFallback, got.Provenance())
	assert.Equal(t, []string{"ci.yml"}, got.Plan.Steps[0].AffectedFiles)
}

func TestStore_GetMissing(t *testing.T) {
	store := openTestStore(t)
	_, err := store.Get(context.Background(), "demo-1", "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_InvalidKeys(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, store.Put(ctx, forgeapi.SimulationRecord{RepoID: "x"}), ErrInvalidKey)
	_, err := store.Get(ctx, "", "r")
	assert.ErrorIs(t, err, ErrInvalidKey)
	_, err = store.Latest(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidKey)
	_, err = store.Delete(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidKey)

	// A slash would let one repository's prefix reach into another's.
	assert.ErrorIs(t, store.Put(ctx, forgeapi.SimulationRecord{RepoID: "demo/x", RunID: "r"}), ErrInvalidKey)
	_, err = store.List(ctx, "demo/")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestStore_ListNewestFirstAndPrefixIsolation(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Put(ctx, record("demo", "demo_1", base)))
	require.NoError(t, store.Put(ctx, record("demo", "demo_3", base.Add(2*time.Hour))))
	require.NoError(t, store.Put(ctx, record("demo", "demo_2", base.Add(time.Hour))))
	require.NoError(t, store.Put(ctx, record("demo-1", "demo-1_1", base.Add(3*time.Hour))))

	runs, err := store.List(ctx, "demo")
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []string{"demo_3", "demo_2", "demo_1"}, []string{runs[0].RunID, runs[1].RunID, runs[2].RunID})

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.Equal(t, "demo-1_1", all[0].RunID)
}

func TestStore_Latest(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC()

	_, err := store.Latest(ctx, "demo-1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Put(ctx, record("demo-1", "a", base)))
	require.NoError(t, store.Put(ctx, record("demo-1", "b", base.Add(time.Minute))))

	latest, err := store.Latest(ctx, "demo-1")
	require.NoError(t, err)
	assert.Equal(t, "b", latest.RunID)
}

func TestStore_RecordIsIdempotent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	rec := record("demo-1", "r1", time.Now().UTC())

	require.NoError(t, store.Record(ctx, rec))
	require.NoError(t, store.Record(ctx, rec))

	runs, err := store.List(ctx, "demo-1")
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestStore_Delete(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.Put(ctx, record("demo-1", "r1", now)))
	require.NoError(t, store.Put(ctx, record("demo-1", "r2", now)))
	require.NoError(t, store.Put(ctx, record("other", "r1", now)))

	n, err := store.Delete(ctx, "demo-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	runs, err := store.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "other", runs[0].RepoID)
}

func TestStore_CancelledContext(t *testing.T) {
	store := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, store.Put(ctx, record("demo-1", "r1", time.Now())), context.Canceled)
}

func TestOpen_Persistent(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := Open(Config{Path: dir})
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, record("demo-1", "r1", time.Now().UTC())))
	assert.Equal(t, dir, store.Path())
	require.NoError(t, store.Close())

	reopened, err := Open(Config{Path: dir})
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, "demo-1", "r1")
	require.NoError(t, err)
	assert.Equal(t, "r1", got.RunID)
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
}
