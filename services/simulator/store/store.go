// Copyright (C) 2025 Faultline Labs (oss@faultline.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package store persists the book/review library on BadgerDB.
//
// BadgerDB gives the workload endpoints low-latency embedded storage with no
// external dependency, keeping the whole service self-contained. Keys are
// prefix-partitioned:
//
//	book:<bookID>            → JSON-encoded Book
//	review:<bookID>:<id>     → JSON-encoded Review
//
// Use cases:
//   - The CRUD workload the injected faults decorate
//   - Seed data so dashboards have traffic-shaped content at first boot
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/faultline-io/faultline/services/simulator/datatypes"
)

const (
	bookPrefix   = "book:"
	reviewPrefix = "review:"
)

// ErrNotFound indicates a missing book or review.
var ErrNotFound = errors.New("store: not found")

// Config holds configuration for the library store.
type Config struct {
	// Path is the directory for BadgerDB files. Required unless InMemory.
	Path string

	// InMemory enables in-memory mode (no disk persistence). Useful for
	// testing.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// Logger receives BadgerDB's internal logging. Nil disables it.
	Logger *slog.Logger
}

// DefaultConfig returns production defaults: durable writes at the given
// path.
func DefaultConfig(path string) Config {
	return Config{Path: path, SyncWrites: true}
}

// InMemoryConfig returns a configuration for tests: in-memory, no fsync.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// Library is the badger-backed book/review store.
//
// # Thread Safety
//
// Safe for concurrent use; BadgerDB transactions provide isolation.
type Library struct {
	db  *badger.DB
	log *slog.Logger
}

// Open opens the library store with the given configuration.
//
// # Outputs
//
//   - *Library: ready-to-use store; caller must Close()
//   - error: invalid path or unopenable database
func Open(cfg Config) (*Library, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("store: path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("store: create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("store: open badger database: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Library{db: db, log: logger}, nil
}

// Close releases the underlying database. The store is unusable afterwards.
func (l *Library) Close() error {
	return l.db.Close()
}

// =============================================================================
// Books
// =============================================================================

// CreateBook stores a new book and returns it with a freshly minted id.
func (l *Library) CreateBook(req datatypes.BookRequest) (datatypes.Book, error) {
	now := time.Now().UnixMilli()
	book := datatypes.Book{
		ID:        uuid.NewString(),
		Title:     req.Title,
		Author:    req.Author,
		Year:      req.Year,
		Genre:     req.Genre,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := l.putJSON(bookPrefix+book.ID, book); err != nil {
		return datatypes.Book{}, err
	}
	return book, nil
}

// GetBook fetches a book by id.
//
// # Outputs
//
//   - datatypes.Book: the stored record
//   - error: ErrNotFound when the id is unknown
func (l *Library) GetBook(id string) (datatypes.Book, error) {
	var book datatypes.Book
	err := l.getJSON(bookPrefix+id, &book)
	return book, err
}

// UpdateBook replaces a book's mutable fields, preserving its creation time.
func (l *Library) UpdateBook(id string, req datatypes.BookRequest) (datatypes.Book, error) {
	book, err := l.GetBook(id)
	if err != nil {
		return datatypes.Book{}, err
	}
	book.Title = req.Title
	book.Author = req.Author
	book.Year = req.Year
	book.Genre = req.Genre
	book.UpdatedAt = time.Now().UnixMilli()

	if err := l.putJSON(bookPrefix+id, book); err != nil {
		return datatypes.Book{}, err
	}
	return book, nil
}

// DeleteBook removes a book and all of its reviews.
func (l *Library) DeleteBook(id string) error {
	if _, err := l.GetBook(id); err != nil {
		return err
	}
	return l.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(bookPrefix + id)); err != nil {
			return err
		}
		// Reviews are co-deleted so listings never dangle.
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(reviewPrefix + id + ":")
		var stale [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			stale = append(stale, it.Item().KeyCopy(nil))
		}
		for _, key := range stale {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListBooks returns all books ordered by title.
func (l *Library) ListBooks() ([]datatypes.Book, error) {
	var books []datatypes.Book
	err := l.scanJSON(bookPrefix, func(data []byte) error {
		var b datatypes.Book
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		books = append(books, b)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(books, func(i, j int) bool { return books[i].Title < books[j].Title })
	return books, nil
}

// =============================================================================
// Reviews
// =============================================================================

// CreateReview stores a review for an existing book.
//
// # Outputs
//
//   - datatypes.Review: the stored review
//   - error: ErrNotFound when the book does not exist
func (l *Library) CreateReview(bookID string, req datatypes.ReviewRequest) (datatypes.Review, error) {
	if _, err := l.GetBook(bookID); err != nil {
		return datatypes.Review{}, err
	}
	review := datatypes.Review{
		ID:        uuid.NewString(),
		BookID:    bookID,
		Rating:    req.Rating,
		Comment:   req.Comment,
		CreatedAt: time.Now().UnixMilli(),
	}
	key := reviewPrefix + bookID + ":" + review.ID
	if err := l.putJSON(key, review); err != nil {
		return datatypes.Review{}, err
	}
	return review, nil
}

// ListReviews returns all reviews for a book, newest first.
func (l *Library) ListReviews(bookID string) ([]datatypes.Review, error) {
	if _, err := l.GetBook(bookID); err != nil {
		return nil, err
	}
	var reviews []datatypes.Review
	err := l.scanJSON(reviewPrefix+bookID+":", func(data []byte) error {
		var r datatypes.Review
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		reviews = append(reviews, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(reviews, func(i, j int) bool { return reviews[i].CreatedAt > reviews[j].CreatedAt })
	return reviews, nil
}

// =============================================================================
// Seeding
// =============================================================================

// Seed inserts starter books when the store is empty, so the workload
// endpoints return traffic-shaped data at first boot.
func (l *Library) Seed() error {
	existing, err := l.ListBooks()
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	starter := []datatypes.BookRequest{
		{Title: "The Phoenix Project", Author: "Gene Kim", Year: 2013, Genre: "fiction"},
		{Title: "Site Reliability Engineering", Author: "Betsy Beyer", Year: 2016, Genre: "operations"},
		{Title: "Release It!", Author: "Michael Nygard", Year: 2018, Genre: "operations"},
		{Title: "Chaos Engineering", Author: "Casey Rosenthal", Year: 2020, Genre: "operations"},
	}
	for _, req := range starter {
		if _, err := l.CreateBook(req); err != nil {
			return err
		}
	}
	l.log.Info("seeded starter library", "books", len(starter))
	return nil
}

// =============================================================================
// Internal helpers
// =============================================================================

func (l *Library) putJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: encoding %s: %w", key, err)
	}
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

func (l *Library) getJSON(key string, v any) error {
	err := l.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(data []byte) error {
			return json.Unmarshal(data, v)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return err
}

func (l *Library) scanJSON(prefix string, fn func(data []byte) error) error {
	return l.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			if err := it.Item().Value(fn); err != nil {
				return err
			}
		}
		return nil
	})
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
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
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
