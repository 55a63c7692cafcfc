package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/sharegate/internal/models"
)

func TestRemoteFile(t *testing.T) {
	t.Cleanup(func() { uncheckedNames = false })

	rf, err := remoteFile("Multichunk", "multichunk-0a1b")
	require.NoError(t, err)
	assert.Equal(t, models.CategoryMultichunk, rf.Category())

	_, err = remoteFile("multichunk", "not-a-chunk")
	assert.ErrorIs(t, err, models.ErrInvalidPath)

	_, err = remoteFile("blobs", "x")
	assert.ErrorIs(t, err, models.ErrInvalidPath)

	uncheckedNames = true
	rf, err = remoteFile("multichunk", "not-a-chunk")
	require.NoError(t, err)
	assert.Equal(t, "not-a-chunk", rf.Name())
}
