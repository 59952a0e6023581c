package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rasyendriar/machine-dashboard-app/internal/procurement/entity"
	"github.com/rasyendriar/machine-dashboard-app/internal/testutil"
)

func TestMigrateDrawings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/broken") {
			http.Error(w, "gone", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("\x89PNG fake image"))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.Migration.LegacyHosts = []string{strings.TrimPrefix(srv.URL, "http://")}
	env := setupServicesWithConfig(t, cfg)

	testutil.SeedMachinePurchase(t, env.db, &entity.MachinePurchase{ID: "m-ok", ItemName: "Base", DrawingImageURL: srv.URL + "/img/ok"})
	testutil.SeedMachinePurchase(t, env.db, &entity.MachinePurchase{ID: "m-bad", ItemName: "Arm", DrawingImageURL: srv.URL + "/img/broken"})
	testutil.SeedMachinePurchase(t, env.db, &entity.MachinePurchase{ID: "m-new", ItemName: "Cover", DrawingImageURL: "https://files.example.com/drawings/x.png"})

	result, err := env.svc.Migration.MigrateDrawings(context.Background())
	if err != nil {
		t.Fatalf("MigrateDrawings: %v", err)
	}
	if result.Total != 2 || result.Succeeded != 1 || result.Failed != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(result.Errors) != 1 || result.Errors[0].ID != "m-bad" {
		t.Fatalf("expected m-bad to fail: %+v", result.Errors)
	}

	ok, err := env.svc.MachinePurchase.Get(context.Background(), "m-ok")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !strings.HasPrefix(ok.DrawingImageURL, "https://files.example.com/drawings/drawing_") ||
		!strings.HasSuffix(ok.DrawingImageURL, "m-ok.png") {
		t.Fatalf("drawing not re-hosted: %q", ok.DrawingImageURL)
	}
	if len(env.uploader.uploads) != 1 {
		t.Fatalf("expected one upload, got %d", len(env.uploader.uploads))
	}
}

func TestImageExt(t *testing.T) {
	cases := []struct {
		contentType, url, want string
	}{
		{"image/jpeg", "https://x/y", ".jpg"},
		{"image/png; charset=binary", "https://x/y", ".png"},
		{"", "https://x/a/plan.webp?sz=200", ".webp"},
		{"", "https://lh3.googleusercontent.com/abc", ".img"},
	}
	for _, c := range cases {
		if got := imageExt(c.contentType, c.url); got != c.want {
			t.Fatalf("imageExt(%q, %q) = %q, want %q", c.contentType, c.url, got, c.want)
		}
	}
}
