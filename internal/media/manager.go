// Package media moves staged uploads to object storage in the background.
package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"athena-feed/internal/domain"
	"athena-feed/internal/repository"
	"athena-feed/internal/storage"
)

// Manager coordinates staged media uploads and their status lifecycle.
type Manager interface {
	Start(ctx context.Context) error
	Shutdown()
	Enqueue(ctx context.Context, mediaID string) error
	Resume(ctx context.Context) error
	Cancel(ctx context.Context, mediaID string) error
}

type Config struct {
	StagingDir    string
	MaxConcurrent int
	Bucket        string
	KeyPrefix     string
	Logger        *logrus.Logger
}

type manager struct {
	cfg     Config
	media   repository.MediaRepository
	storage storage.Service
	now     func() time.Time

	sem    chan struct{}
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	active map[string]*uploadHandle
}

type uploadHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

var ErrNotStarted = errors.New("media manager not started")

func NewManager(cfg Config, media repository.MediaRepository, store storage.Service) Manager {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 3
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &manager{
		cfg:     cfg,
		media:   media,
		storage: store,
		now:     time.Now,
		sem:     make(chan struct{}, cfg.MaxConcurrent),
		active:  make(map[string]*uploadHandle),
	}
}

func (m *manager) Start(ctx context.Context) error {
	if err := os.MkdirAll(m.cfg.StagingDir, 0o755); err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	m.mu.Lock()
	m.ctx, m.cancel = context.WithCancel(ctx)
	m.mu.Unlock()
	m.cfg.Logger.Infof("media manager started, staging dir: %s", m.cfg.StagingDir)
	return nil
}

func (m *manager) Shutdown() {
	m.mu.Lock()
	cancel := m.cancel
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
	m.cfg.Logger.Info("media manager stopped")
}

func (m *manager) Enqueue(ctx context.Context, mediaID string) error {
	upload, err := m.media.Get(ctx, mediaID)
	if err != nil {
		return err
	}
	return m.spawn(*upload)
}

// Resume re-queues uploads interrupted by a restart.
func (m *manager) Resume(ctx context.Context) error {
	uploads, err := m.media.ListByStatuses(ctx, domain.MediaStatusPending, domain.MediaStatusUploading)
	if err != nil {
		return err
	}
	for i := range uploads {
		if err := m.spawn(uploads[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *manager) spawn(upload domain.MediaUpload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ctx == nil {
		return ErrNotStarted
	}
	if _, ok := m.active[upload.ID]; ok {
		return nil
	}

	uploadCtx, cancel := context.WithCancel(m.ctx)
	handle := &uploadHandle{
		cancel: cancel,
		done:   make(chan struct{}),
	}
	m.active[upload.ID] = handle

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer func() {
			cancel()
			m.unregister(upload.ID)
			close(handle.done)
		}()
		select {
		case <-uploadCtx.Done():
			return
		case m.sem <- struct{}{}:
			defer func() { <-m.sem }()
			m.handleUpload(uploadCtx, &upload)
		}
	}()
	return nil
}

func (m *manager) unregister(id string) {
	m.mu.Lock()
	delete(m.active, id)
	m.mu.Unlock()
}

func (m *manager) Cancel(ctx context.Context, mediaID string) error {
	m.mu.Lock()
	handle, ok := m.active[mediaID]
	m.mu.Unlock()
	if !ok {
		return nil
	}

	handle.cancel()

	select {
	case <-handle.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *manager) handleUpload(ctx context.Context, upload *domain.MediaUpload) {
	logger := m.cfg.Logger.WithField("media_id", upload.ID)
	if upload.Status == domain.MediaStatusCompleted {
		logger.Debug("media already uploaded, skipping")
		return
	}

	if err := m.media.UpdateStatus(ctx, upload.ID, domain.MediaStatusUploading, nil); err != nil {
		logger.Errorf("update status failed: %v", err)
		return
	}
	upload.Status = domain.MediaStatusUploading

	if _, err := os.Stat(upload.LocalPath); err != nil {
		m.fail(ctx, upload.ID, fmt.Errorf("staged file missing: %w", err))
		return
	}

	key := storage.ObjectKey(m.cfg.KeyPrefix, upload.OwnerID, upload.ID, upload.FileName)
	progressLogger := newUploadProgressLogger(logger)
	opts := storage.UploadOptions{
		Bucket:           m.cfg.Bucket,
		Key:              key,
		ContentType:      upload.ContentType,
		ProgressCallback: progressLogger,
	}

	logger.Infof("upload started from %s", upload.LocalPath)
	dest, err := m.storage.UploadFile(ctx, upload.LocalPath, opts)
	if err != nil {
		if ctx.Err() != nil {
			logger.Info("upload cancelled")
			return
		}
		m.fail(ctx, upload.ID, fmt.Errorf("upload: %w", err))
		return
	}

	if err := m.media.MarkCompleted(ctx, upload.ID, key, dest, m.now()); err != nil {
		logger.Errorf("mark completed: %v", err)
		return
	}
	upload.Status = domain.MediaStatusCompleted

	if err := m.cleanupStaged(upload.LocalPath); err != nil {
		logger.Warnf("cleanup staged file: %v", err)
	}
	logger.Infof("media uploaded to %s", dest)
}

// cleanupStaged removes the per-upload staging directory, or just the file
// when it sits directly in the staging root.
func (m *manager) cleanupStaged(localPath string) error {
	dir := filepath.Clean(filepath.Dir(localPath))
	if dir == filepath.Clean(m.cfg.StagingDir) {
		return os.Remove(localPath)
	}
	return os.RemoveAll(dir)
}

func (m *manager) fail(ctx context.Context, mediaID string, failErr error) {
	msg := failErr.Error()
	if err := m.media.UpdateStatus(ctx, mediaID, domain.MediaStatusFailed, &msg); err != nil {
		m.cfg.Logger.WithField("media_id", mediaID).Errorf("persist failure status: %v", err)
	}
	m.cfg.Logger.WithField("media_id", mediaID).Error(msg)
}

func newUploadProgressLogger(logger *logrus.Entry) func(done, total int64) {
	var lastLog time.Time
	return func(done, total int64) {
		now := time.Now()
		if now.Sub(lastLog) < 500*time.Millisecond && done != total {
			return
		}
		lastLog = now
		if total == 0 {
			logger.Infof("upload progress: %s uploaded", formatBytes(done))
			return
		}
		percent := float64(done) / float64(total) * 100
		logger.Infof("upload progress: %.1f%% (%s/%s)", percent, formatBytes(done), formatBytes(total))
	}
}

func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%dB", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB",
		float64(b)/float64(div),
		"KMGTPE"[exp],
	)
}

var _ Manager = (*manager)(nil)
