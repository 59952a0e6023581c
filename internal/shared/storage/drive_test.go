package storage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rasyendriar/machine-dashboard-app/internal/config"
)

func TestNewDriveWithoutEndpoint(t *testing.T) {
	_, err := NewDrive(context.Background(), config.StorageConfig{Bucket: "drawings"})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestNilDriveUpload(t *testing.T) {
	var d *Drive
	if _, err := d.Upload(context.Background(), "a.png", "image/png", strings.NewReader("x"), 1); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestEscapePath(t *testing.T) {
	got := escapePath("drawings/drawing_1700000000000_front view.png")
	if got != "drawings/drawing_1700000000000_front%20view.png" {
		t.Fatalf("unexpected escaped path %q", got)
	}
}
