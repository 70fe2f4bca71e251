package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"athena-feed/internal/domain"
	"athena-feed/internal/media"
	"athena-feed/internal/repository"
	"athena-feed/internal/storage"
)

type UploadInput struct {
	OwnerID     string
	FileName    string
	ContentType string
	Body        io.Reader
}

// MediaView is an upload together with a temporary download URL once the
// object is stored.
type MediaView struct {
	Upload      *domain.MediaUpload
	DownloadURL string
}

type MediaConfig struct {
	StagingDir     string
	MaxUploadBytes int64
	URLExpiry      time.Duration
	Bucket         string
	KeyPrefix      string
}

// MediaService stages uploads locally and hands them to the upload manager.
type MediaService interface {
	Upload(ctx context.Context, in UploadInput) (*domain.MediaUpload, error)
	Get(ctx context.Context, id, viewerID string) (*MediaView, error)
	// Delete cancels a running upload and removes the record, the staged
	// file and the stored object. Cleanup problems are returned as warnings.
	Delete(ctx context.Context, id, actorID string) ([]string, error)
	// ListObjects lists what the owner has in object storage.
	ListObjects(ctx context.Context, ownerID string) ([]storage.ObjectInfo, error)
}

type mediaService struct {
	repo    repository.MediaRepository
	manager media.Manager
	store   storage.Service
	cfg     MediaConfig
	logger  *logrus.Logger
}

// NewMediaService returns a service whose operations fail with
// ErrStorageDisabled when manager or store is nil.
func NewMediaService(repo repository.MediaRepository, manager media.Manager, store storage.Service, cfg MediaConfig, logger *logrus.Logger) MediaService {
	if logger == nil {
		logger = logrus.New()
	}
	if cfg.URLExpiry <= 0 {
		cfg.URLExpiry = time.Hour
	}
	return &mediaService{repo: repo, manager: manager, store: store, cfg: cfg, logger: logger}
}

func (s *mediaService) enabled() bool {
	return s.manager != nil && s.store != nil
}

func (s *mediaService) Upload(ctx context.Context, in UploadInput) (*domain.MediaUpload, error) {
	if !s.enabled() {
		return nil, ErrStorageDisabled
	}
	name := filepath.Base(strings.ReplaceAll(strings.TrimSpace(in.FileName), "\\", "/"))
	if name == "" || name == "." || name == "/" {
		return nil, invalidf("file name is required")
	}
	if in.Body == nil {
		return nil, invalidf("file is required")
	}

	id := uuid.NewString()
	dir := filepath.Join(s.cfg.StagingDir, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	localPath := filepath.Join(dir, name)

	size, err := s.stage(localPath, in.Body)
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}

	upload := &domain.MediaUpload{
		ID:          id,
		OwnerID:     in.OwnerID,
		Status:      domain.MediaStatusPending,
		FileName:    name,
		ContentType: in.ContentType,
		Size:        size,
		LocalPath:   localPath,
	}
	if err := s.repo.Create(ctx, upload); err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}

	if err := s.manager.Enqueue(ctx, id); err != nil {
		s.logger.WithError(err).WithField("media_id", id).Warn("upload queued for resume")
	}
	s.logger.WithFields(logrus.Fields{"media_id": id, "user_id": in.OwnerID, "size": size}).Info("media staged")
	return upload, nil
}

// stage copies body to path, enforcing the configured size limit.
func (s *mediaService) stage(path string, body io.Reader) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create staged file: %w", err)
	}
	defer f.Close()

	r := body
	if s.cfg.MaxUploadBytes > 0 {
		r = io.LimitReader(body, s.cfg.MaxUploadBytes+1)
	}
	n, err := io.Copy(f, r)
	if err != nil {
		return 0, fmt.Errorf("write staged file: %w", err)
	}
	if s.cfg.MaxUploadBytes > 0 && n > s.cfg.MaxUploadBytes {
		return 0, invalidf("file exceeds %s", formatSize(s.cfg.MaxUploadBytes))
	}
	if n == 0 {
		return 0, invalidf("file is empty")
	}
	return n, f.Sync()
}

func (s *mediaService) Get(ctx context.Context, id, viewerID string) (*MediaView, error) {
	if !s.enabled() {
		return nil, ErrStorageDisabled
	}
	upload, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if upload.OwnerID != viewerID {
		return nil, fmt.Errorf("media %s: %w", id, repository.ErrNotFound)
	}

	view := &MediaView{Upload: upload}
	if upload.Status != domain.MediaStatusCompleted {
		return view, nil
	}
	bucket, key, err := storage.ParseLocation(upload.URL)
	if err != nil {
		return nil, err
	}
	view.DownloadURL, err = s.store.GetObjectURL(ctx, bucket, key, s.cfg.URLExpiry)
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *mediaService) Delete(ctx context.Context, id, actorID string) ([]string, error) {
	if !s.enabled() {
		return nil, ErrStorageDisabled
	}
	upload, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if upload.OwnerID != actorID {
		return nil, fmt.Errorf("media %s: %w", id, repository.ErrNotFound)
	}

	var warnings []string
	cancelCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.manager.Cancel(cancelCtx, id); err != nil &&
		!errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		warnings = append(warnings, fmt.Sprintf("cancel upload: %v", err))
	}

	if upload.URL != "" {
		bucket, key, err := storage.ParseLocation(upload.URL)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("parse location: %v", err))
		} else if prefix := path.Dir(key); prefix != "." {
			if err := s.store.DeletePrefix(ctx, bucket, prefix+"/"); err != nil {
				warnings = append(warnings, fmt.Sprintf("delete remote object: %v", err))
			}
		}
	}
	if dir := s.stagedDir(upload.LocalPath); dir != "" {
		if err := os.RemoveAll(dir); err != nil && !os.IsNotExist(err) {
			warnings = append(warnings, fmt.Sprintf("remove staged file: %v", err))
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return warnings, err
	}
	s.logger.WithFields(logrus.Fields{"media_id": id, "user_id": actorID}).Info("media deleted")
	return warnings, nil
}

// stagedDir returns the per-upload directory holding localPath, or "" when
// the path is not inside the staging root.
func (s *mediaService) stagedDir(localPath string) string {
	if localPath == "" || s.cfg.StagingDir == "" {
		return ""
	}
	root := filepath.Clean(s.cfg.StagingDir)
	dir := filepath.Dir(filepath.Clean(localPath))
	rel, err := filepath.Rel(root, dir)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return ""
	}
	return dir
}

func (s *mediaService) ListObjects(ctx context.Context, ownerID string) ([]storage.ObjectInfo, error) {
	if !s.enabled() {
		return nil, ErrStorageDisabled
	}
	if s.cfg.Bucket == "" {
		return nil, ErrStorageDisabled
	}
	prefix := ownerID + "/"
	if p := strings.Trim(s.cfg.KeyPrefix, "/"); p != "" {
		prefix = p + "/" + prefix
	}
	return s.store.ListObjects(ctx, s.cfg.Bucket, prefix)
}

func formatSize(b int64) string {
	const mib = 1 << 20
	if b >= mib && b%mib == 0 {
		return fmt.Sprintf("%d MiB", b/mib)
	}
	return fmt.Sprintf("%d bytes", b)
}
