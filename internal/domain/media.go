package domain

import "time"

type MediaStatus string

const (
	MediaStatusPending   MediaStatus = "pending"
	MediaStatusUploading MediaStatus = "uploading"
	MediaStatusCompleted MediaStatus = "completed"
	MediaStatusFailed    MediaStatus = "failed"
)

// MediaUpload tracks a user supplied file on its way to object storage.
type MediaUpload struct {
	ID           string
	OwnerID      string
	Status       MediaStatus
	FileName     string
	ContentType  string
	Size         int64
	LocalPath    string
	ObjectKey    string
	URL          string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	UploadedAt   *time.Time
}
