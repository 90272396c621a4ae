package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocation(t *testing.T) {
	s := &Store{ID: "s1", Timezone: "America/Chicago"}
	loc, err := s.Location()
	require.NoError(t, err)
	assert.Equal(t, "America/Chicago", loc.String())
}

func TestLocation_EmptyMeansUTC(t *testing.T) {
	s := &Store{ID: "s1"}
	loc, err := s.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLocation_UnknownZone(t *testing.T) {
	s := &Store{ID: "s1", Timezone: "Mars/Olympus_Mons"}
	_, err := s.Location()
	require.Error(t, err)
}
