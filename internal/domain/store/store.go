// Package store holds the store directory consulted for timezone resolution.
package store

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested store does not exist.
var ErrNotFound = errors.New("store not found")

// Store is a merchant location. Its timezone anchors every date and
// time-window comparison the promotion engine performs.
type Store struct {
	ID       string
	Name     string
	Timezone string // IANA name, e.g. "America/Chicago"
}

// Location resolves the store's configured timezone. An empty timezone means
// UTC.
func (s *Store) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, errors.Wrapf(err, "load timezone %q", s.Timezone)
	}
	return loc, nil
}

// Repository defines read operations for the store directory.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Store, error)
}
