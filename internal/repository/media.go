package repository

import (
	"context"
	"time"

	"athena-feed/internal/domain"
)

// MediaRepository tracks uploads on their way to object storage.
type MediaRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, media *domain.MediaUpload) error
	Get(ctx context.Context, id string) (*domain.MediaUpload, error)
	UpdateStatus(ctx context.Context, id string, status domain.MediaStatus, errorMessage *string) error
	MarkCompleted(ctx context.Context, id, objectKey, url string, uploadedAt time.Time) error
	ListByStatuses(ctx context.Context, statuses ...domain.MediaStatus) ([]domain.MediaUpload, error)
	Delete(ctx context.Context, id string) error
}
