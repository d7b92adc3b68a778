// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package history keeps a local copy of every simulation record the
// forge CLI has received, so past runs can be listed and re-read without
// the backend.
//
// Records live in an embedded BadgerDB under keys of the form
//
//	run/<repo_id>/<run_id>
//
// with the JSON-encoded forgeapi.SimulationRecord as value. Records are
// immutable: writing an existing key replaces it with identical content.
//
// License: BadgerDB is Apache 2.0 licensed (github.com/dgraph-io/badger).
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/SahinS14/CognitoForge/pkg/forgeapi"
	"github.com/SahinS14/CognitoForge/pkg/validation"
)

var (
	// ErrNotFound is returned when no record matches.
	ErrNotFound = errors.New("history: record not found")

	// ErrInvalidKey is returned for a repo or run id that is empty or
	// contains characters outside the identifier alphabet.
	ErrInvalidKey = errors.New("history: invalid repo id or run id")
)

const keyPrefix = "run/"

// Config holds configuration for a Store.
type Config struct {
	// Path is the database directory. Ignored when InMemory is true.
	Path string

	// InMemory keeps everything in RAM. Used by tests.
	InMemory bool

	// SyncWrites fsyncs every write.
	SyncWrites bool

	// Logger receives BadgerDB's internal messages. Nil silences them.
	Logger *slog.Logger
}

// DefaultConfig returns the CLI's on-disk configuration.
func DefaultConfig() Config {
	path := ".cognitoforge/history"
	if home, err := os.UserHomeDir(); err == nil {
		path = filepath.Join(home, path)
	}
	return Config{Path: path, SyncWrites: true}
}

// InMemoryConfig returns a configuration for tests.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// badgerLogger routes BadgerDB's printf-style logging into slog.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Store is the local run history. Safe for concurrent use.
type Store struct {
	db   *badger.DB
	path string
}

// Open opens (creating if needed) a history store.
//
// # Description
//
// BadgerDB holds an exclusive directory lock, so only one forge process
// can have the history open at a time.
//
// # Outputs
//
//   - *Store: Call Close when done
//   - error: Non-nil if the directory can't be created or opened
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("history: path is required for a persistent store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create history directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}

	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger.With("component", "history")})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	return &Store{db: db, path: cfg.Path}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database directory ("" in memory).
func (s *Store) Path() string {
	return s.path
}

func runKey(repoID, runID string) []byte {
	return []byte(keyPrefix + repoID + "/" + runID)
}

func repoPrefix(repoID string) []byte {
	if repoID == "" {
		return []byte(keyPrefix)
	}
	return []byte(keyPrefix + repoID + "/")
}

// Put stores rec under its repo and run id.
func (s *Store) Put(ctx context.Context, rec forgeapi.SimulationRecord) error {
	if !validation.IsIdentifier(rec.RepoID) || !validation.IsIdentifier(rec.RunID) {
		return ErrInvalidKey
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", rec.Key(), err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(runKey(rec.RepoID, rec.RunID), data)
	})
}

// Record implements the orchestrator's Recorder.
func (s *Store) Record(ctx context.Context, rec forgeapi.SimulationRecord) error {
	return s.Put(ctx, rec)
}

// Get returns one run.
func (s *Store) Get(ctx context.Context, repoID, runID string) (forgeapi.SimulationRecord, error) {
	var rec forgeapi.SimulationRecord
	if !validation.IsIdentifier(repoID) || !validation.IsIdentifier(runID) {
		return rec, ErrInvalidKey
	}
	if err := ctx.Err(); err != nil {
		return rec, err
	}

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(runKey(repoID, runID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return forgeapi.SimulationRecord{}, err
	}
	return rec, nil
}

// List returns the runs of repoID, or of every repository when repoID is
// empty, newest first.
func (s *Store) List(ctx context.Context, repoID string) ([]forgeapi.SimulationRecord, error) {
	if repoID != "" && !validation.IsIdentifier(repoID) {
		return nil, ErrInvalidKey
	}
	var out []forgeapi.SimulationRecord

	err := s.db.View(func(txn *badger.Txn) error {
		prefix := repoPrefix(repoID)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var rec forgeapi.SimulationRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return strings.Compare(out[i].RunID, out[j].RunID) > 0
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

// Latest returns the newest run of repoID.
func (s *Store) Latest(ctx context.Context, repoID string) (forgeapi.SimulationRecord, error) {
	if !validation.IsIdentifier(repoID) {
		return forgeapi.SimulationRecord{}, ErrInvalidKey
	}
	runs, err := s.List(ctx, repoID)
	if err != nil {
		return forgeapi.SimulationRecord{}, err
	}
	if len(runs) == 0 {
		return forgeapi.SimulationRecord{}, ErrNotFound
	}
	return runs[0], nil
}

// Delete removes every run of repoID and returns how many were removed.
func (s *Store) Delete(ctx context.Context, repoID string) (int, error) {
	if !validation.IsIdentifier(repoID) {
		return 0, ErrInvalidKey
	}

	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := repoPrefix(repoID)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}
