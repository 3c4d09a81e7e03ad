package storage

import (
	"context"
	"testing"
	"time"

	"github.com/dronehub/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryObjectStorage(t *testing.T) {
	s := NewMemoryObjectStorage("https://media.test")
	ctx := context.Background()

	_, err := s.Download(ctx, "missing")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	data := []byte("label")
	require.NoError(t, s.Upload(ctx, "labels/1.pdf", data, "application/pdf"))
	data[0] = 'X'

	got, err := s.Download(ctx, "labels/1.pdf")
	require.NoError(t, err)
	assert.Equal(t, "label", string(got))

	exists, err := s.ObjectExists(ctx, "labels/1.pdf")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, s.DeleteObject(ctx, "labels/1.pdf"))
	exists, err = s.ObjectExists(ctx, "labels/1.pdf")
	require.NoError(t, err)
	assert.False(t, exists)

	assert.Equal(t, "https://media.test/a.jpg", s.PublicURL("a.jpg"))
	url, exp, err := s.GenerateUploadURL(ctx, "a.jpg", "image/jpeg", time.Minute)
	require.NoError(t, err)
	assert.Contains(t, url, "https://media.test/upload/a.jpg")
	assert.True(t, exp.After(time.Now()))
}
