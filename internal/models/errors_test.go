package models_test

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/TheMichaelB/sharegate/internal/models"
)

func TestStorageError(t *testing.T) {
	cause := fmt.Errorf("open share file: %w", os.ErrNotExist)
	err := models.NewStorageError(models.ErrNotFound, "download", "smb://host/share/repo/databases/x", cause)

	assert.Equal(t, "download smb://host/share/repo/databases/x: remote file not found: open share file: file does not exist", err.Error())
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.NotErrorIs(t, err, models.ErrIO)

	var se *models.StorageError
	wrapped := fmt.Errorf("sync: %w", err)
	assert.True(t, errors.As(wrapped, &se))
	assert.Equal(t, "download", se.Op)
}

func TestStorageErrorWithoutCause(t *testing.T) {
	err := models.NewStorageError(models.ErrInvalidPath, "move", "", nil)

	assert.Equal(t, "move: invalid path", err.Error())
	assert.ErrorIs(t, err, models.ErrInvalidPath)
}

func TestValidationError(t *testing.T) {
	err := &models.ValidationError{Missing: []string{"hostname", "share"}}

	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Contains(t, err.Error(), "hostname, share")
}

func TestCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{models.NewStorageError(models.ErrConnection, "connect", "", nil), models.ErrCodeConnection},
		{models.NewStorageError(models.ErrInit, "init", "", nil), models.ErrCodeInit},
		{models.NewStorageError(models.ErrNotFound, "download", "", nil), models.ErrCodeNotFound},
		{models.NewStorageError(models.ErrIO, "upload", "", nil), models.ErrCodeIO},
		{models.NewStorageError(models.ErrMove, "move", "", nil), models.ErrCodeMove},
		{models.NewStorageError(models.ErrInvalidPath, "list", "", nil), models.ErrCodeInvalidPath},
		{&models.ValidationError{Missing: []string{"share"}}, models.ErrCodeValidation},
		{errors.New("other"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, models.Code(tt.err))
		})
	}
}
