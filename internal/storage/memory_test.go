package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorage(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()

	data := []byte(`{"id":"e1"}`)
	require.NoError(t, s.Put(ctx, "events/2026/01/02/e1.json", data, "application/json"))
	require.NoError(t, s.Put(ctx, "reports/r1.json", []byte(`{}`), "application/json"))
	data[0] = 'x'

	got, err := s.Get(ctx, "events/2026/01/02/e1.json")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"e1"}`, string(got))

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	ok, err := s.Exists(ctx, "reports/r1.json")
	require.NoError(t, err)
	assert.True(t, ok)

	keys, err := s.List(ctx, "events/")
	require.NoError(t, err)
	assert.Equal(t, []string{"events/2026/01/02/e1.json"}, keys)
}
