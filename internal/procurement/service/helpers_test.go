package service

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/rasyendriar/machine-dashboard-app/internal/config"
	"github.com/rasyendriar/machine-dashboard-app/internal/procurement/repository"
	"github.com/rasyendriar/machine-dashboard-app/internal/shared/realtime"
	"github.com/rasyendriar/machine-dashboard-app/internal/testutil"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (n *recordingNotifier) Notify(_ context.Context, e realtime.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
	return nil
}

func (n *recordingNotifier) Events() []realtime.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]realtime.Event(nil), n.events...)
}

type fakeUploader struct {
	mu      sync.Mutex
	uploads map[string][]byte
	fail    error
}

func (u *fakeUploader) Upload(_ context.Context, name, _ string, r io.Reader, _ int64) (string, error) {
	if u.fail != nil {
		return "", u.fail
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.uploads == nil {
		u.uploads = make(map[string][]byte)
	}
	u.uploads[name] = data
	return "https://files.example.com/drawings/" + name, nil
}

type testEnv struct {
	db       *gorm.DB
	svc      *Services
	notifier *recordingNotifier
	uploader *fakeUploader
}

func testConfig() *config.Config {
	return &config.Config{
		Import: config.ImportConfig{KeylessPolicy: "isolate", PreviewTTL: time.Minute},
		Migration: config.MigrationConfig{
			Workers:       2,
			Timeout:       5 * time.Second,
			LegacyHosts:   []string{"googleusercontent.com"},
			MaxImageBytes: 1 << 20,
		},
	}
}

func setupServices(t *testing.T) *testEnv {
	t.Helper()
	return setupServicesWithConfig(t, testConfig())
}

func setupServicesWithConfig(t *testing.T, cfg *config.Config) *testEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	env := &testEnv{db: db, notifier: &recordingNotifier{}, uploader: &fakeUploader{}}
	env.svc = NewServices(repository.NewRepositories(db), nil, env.uploader, env.notifier, cfg, nil)
	return env
}
