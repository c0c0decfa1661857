// Package store provides SQLite persistence for photos, tags, analysis
// metadata and settings.
package store

import (
	"context"
	"errors"

	"github.com/photomanager/api/internal/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Store is the persistence surface consumed by the pipeline and handlers.
// CreateTag, AddPhotoTag and SavePhotoMetadata are idempotent.
type Store interface {
	CreatePhoto(ctx context.Context, p *model.Photo) error
	GetPhotoByID(ctx context.Context, id int64) (*model.Photo, error)
	ListPhotos(ctx context.Context) ([]model.Photo, error)
	RenamePhoto(ctx context.Context, id int64, originalName string) error
	DeletePhoto(ctx context.Context, id int64) error

	CreateTag(ctx context.Context, name string) error
	GetTagByName(ctx context.Context, name string) (*model.Tag, error)
	ListTags(ctx context.Context) ([]model.Tag, error)
	AddPhotoTag(ctx context.Context, photoID, tagID int64) error
	GetPhotoTags(ctx context.Context, photoID int64) ([]model.Tag, error)
	RemovePhotoTag(ctx context.Context, photoID, tagID int64) error
	ClearPhotoTags(ctx context.Context, photoID int64) error

	SavePhotoMetadata(ctx context.Context, m *model.PhotoMetadata) error
	GetPhotoMetadata(ctx context.Context, photoID int64) (*model.PhotoMetadata, error)
	DeletePhotoMetadata(ctx context.Context, photoID int64) error

	// GetSetting returns "" without error when the key is absent.
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error

	Close() error
}
