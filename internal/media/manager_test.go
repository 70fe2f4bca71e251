package media

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"athena-feed/internal/domain"
	"athena-feed/internal/repository"
	"athena-feed/internal/storage"
)

type fakeMediaRepo struct {
	mu      sync.Mutex
	uploads map[string]domain.MediaUpload
}

func newFakeMediaRepo(uploads ...domain.MediaUpload) *fakeMediaRepo {
	r := &fakeMediaRepo{uploads: make(map[string]domain.MediaUpload)}
	for _, u := range uploads {
		r.uploads[u.ID] = u
	}
	return r
}

func (r *fakeMediaRepo) Init(context.Context) error { return nil }

func (r *fakeMediaRepo) Create(_ context.Context, m *domain.MediaUpload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.uploads[m.ID] = *m
	return nil
}

func (r *fakeMediaRepo) Get(_ context.Context, id string) (*domain.MediaUpload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.uploads[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &m, nil
}

func (r *fakeMediaRepo) UpdateStatus(_ context.Context, id string, status domain.MediaStatus, msg *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.uploads[id]
	m.Status = status
	m.ErrorMessage = ""
	if msg != nil {
		m.ErrorMessage = *msg
	}
	r.uploads[id] = m
	return nil
}

func (r *fakeMediaRepo) MarkCompleted(_ context.Context, id, key, url string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.uploads[id]
	m.Status = domain.MediaStatusCompleted
	m.ObjectKey = key
	m.URL = url
	m.LocalPath = ""
	m.UploadedAt = &at
	r.uploads[id] = m
	return nil
}

func (r *fakeMediaRepo) ListByStatuses(_ context.Context, statuses ...domain.MediaStatus) ([]domain.MediaUpload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.MediaUpload
	for _, m := range r.uploads {
		for _, s := range statuses {
			if m.Status == s {
				out = append(out, m)
			}
		}
	}
	return out, nil
}

func (r *fakeMediaRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.uploads[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.uploads, id)
	return nil
}

func (r *fakeMediaRepo) status(id string) domain.MediaUpload {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.uploads[id]
}

type fakeStorage struct {
	mu      sync.Mutex
	err     error
	block   chan struct{}
	uploads map[string]string
}

func (s *fakeStorage) UploadFile(ctx context.Context, localPath string, opts storage.UploadOptions) (string, error) {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if s.err != nil {
		return "", s.err
	}
	body, err := os.ReadFile(localPath)
	if err != nil {
		return "", err
	}
	if opts.ProgressCallback != nil {
		opts.ProgressCallback(int64(len(body)), int64(len(body)))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.uploads == nil {
		s.uploads = make(map[string]string)
	}
	s.uploads[opts.Key] = string(body)
	return storage.Location(opts.Bucket, opts.Key), nil
}

func (s *fakeStorage) ListObjects(context.Context, string, string) ([]storage.ObjectInfo, error) {
	return nil, nil
}

func (s *fakeStorage) DeletePrefix(context.Context, string, string) error { return nil }

func (s *fakeStorage) GetObjectURL(_ context.Context, bucket, key string, _ time.Duration) (string, error) {
	return "https://signed/" + bucket + "/" + key, nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func stage(t *testing.T, root, id, name, body string) string {
	t.Helper()
	dir := filepath.Join(root, id)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func waitForStatus(t *testing.T, repo *fakeMediaRepo, id string, want domain.MediaStatus) domain.MediaUpload {
	t.Helper()
	var got domain.MediaUpload
	require.Eventually(t, func() bool {
		got = repo.status(id)
		return got.Status == want
	}, 2*time.Second, 5*time.Millisecond)
	return got
}

func TestManager_UploadsAndCleansUp(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := t.TempDir()
	local := stage(t, root, "m1", "clip.mp4", "video-bytes")
	repo := newFakeMediaRepo(domain.MediaUpload{ID: "m1", OwnerID: "u1", FileName: "clip.mp4", LocalPath: local, Status: domain.MediaStatusPending})
	store := &fakeStorage{}

	m := NewManager(Config{StagingDir: root, Bucket: "media", KeyPrefix: "athena", Logger: quietLogger()}, repo, store)
	require.NoError(t, m.Start(context.Background()))
	require.NoError(t, m.Enqueue(context.Background(), "m1"))

	done := waitForStatus(t, repo, "m1", domain.MediaStatusCompleted)
	m.Shutdown()

	assert.Equal(t, "athena/u1/m1/clip.mp4", done.ObjectKey)
	assert.Equal(t, "s3://media/athena/u1/m1/clip.mp4", done.URL)
	assert.Equal(t, "video-bytes", store.uploads["athena/u1/m1/clip.mp4"])
	_, err := os.Stat(filepath.Join(root, "m1"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(root)
	assert.NoError(t, err, "staging root survives")
}

func TestManager_MarksFailures(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := t.TempDir()
	local := stage(t, root, "m1", "a.png", "png")
	repo := newFakeMediaRepo(
		domain.MediaUpload{ID: "m1", OwnerID: "u1", FileName: "a.png", LocalPath: local, Status: domain.MediaStatusPending},
		domain.MediaUpload{ID: "m2", OwnerID: "u1", FileName: "b.png", LocalPath: filepath.Join(root, "gone", "b.png"), Status: domain.MediaStatusUploading},
	)
	store := &fakeStorage{err: errors.New("access denied")}

	m := NewManager(Config{StagingDir: root, Bucket: "media", Logger: quietLogger()}, repo, store)
	require.NoError(t, m.Start(context.Background()))
	require.NoError(t, m.Resume(context.Background()))

	failed := waitForStatus(t, repo, "m1", domain.MediaStatusFailed)
	assert.Contains(t, failed.ErrorMessage, "access denied")
	missing := waitForStatus(t, repo, "m2", domain.MediaStatusFailed)
	assert.Contains(t, missing.ErrorMessage, "staged file missing")
	m.Shutdown()
}

func TestManager_CancelStopsUpload(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := t.TempDir()
	local := stage(t, root, "m1", "a.png", "png")
	repo := newFakeMediaRepo(domain.MediaUpload{ID: "m1", OwnerID: "u1", FileName: "a.png", LocalPath: local, Status: domain.MediaStatusPending})
	store := &fakeStorage{block: make(chan struct{})}

	m := NewManager(Config{StagingDir: root, Bucket: "media", MaxConcurrent: 1, Logger: quietLogger()}, repo, store)
	require.NoError(t, m.Start(context.Background()))
	require.NoError(t, m.Enqueue(context.Background(), "m1"))
	waitForStatus(t, repo, "m1", domain.MediaStatusUploading)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, m.Cancel(ctx, "m1"))

	assert.Equal(t, domain.MediaStatusUploading, repo.status("m1").Status, "cancelled uploads resume on restart")
	assert.NoError(t, m.Cancel(ctx, "m1"), "unknown ids are a no-op")
	m.Shutdown()
}

func TestManager_EnqueueBeforeStart(t *testing.T) {
	repo := newFakeMediaRepo(domain.MediaUpload{ID: "m1"})
	m := NewManager(Config{Logger: quietLogger()}, repo, &fakeStorage{})
	assert.ErrorIs(t, m.Enqueue(context.Background(), "m1"), ErrNotStarted)
	assert.ErrorIs(t, m.Enqueue(context.Background(), "missing"), repository.ErrNotFound)
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512B", formatBytes(512))
	assert.Equal(t, "1.5KiB", formatBytes(1536))
	assert.Equal(t, "2.0MiB", formatBytes(2<<20))
}
