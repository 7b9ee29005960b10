package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBaseURLLocator_RejectsRelative(t *testing.T) {
	_, err := NewBaseURLLocator("/files")
	assert.Error(t, err)

	_, err = NewBaseURLLocator("://bad")
	assert.Error(t, err)
}

func TestBaseURLLocator_URL(t *testing.T) {
	l, err := NewBaseURLLocator("https://cdn.example.com/assets/")
	require.NoError(t, err)
	ctx := context.Background()

	got, err := l.URL(ctx, "p-1/source code.zip")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/assets/p-1/source%20code.zip", got)

	got, err = l.URL(ctx, "/p-1/README.md")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/assets/p-1/README.md", got)
}

func TestBaseURLLocator_RejectsBadKeys(t *testing.T) {
	l, err := NewBaseURLLocator("https://cdn.example.com")
	require.NoError(t, err)

	_, err = l.URL(context.Background(), "")
	assert.Error(t, err)

	_, err = l.URL(context.Background(), "p-1/../../etc/passwd")
	assert.Error(t, err)
}
