package artwork_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"pokequest/internal/artwork"
	"pokequest/internal/model"
)

func TestNewRequiresConfig(t *testing.T) {
	if _, err := artwork.New(artwork.Config{SecretID: "id"}); !errors.Is(err, artwork.ErrMirrorUnavailable) {
		t.Fatalf("expected ErrMirrorUnavailable, got %v", err)
	}
}

func TestObjectKey(t *testing.T) {
	item := model.CollectibleItem{ID: 122, Name: "Mr. Mime", ImageRef: "https://img/122.png?v=2"}
	if got := artwork.ObjectKey("artwork", item); got != "artwork/122_mr._mime.png" {
		t.Fatalf("ObjectKey() = %q", got)
	}
	item.ImageRef = "https://img/noext"
	if got := artwork.ObjectKey("a", item); got != "a/122_mr._mime.png" {
		t.Fatalf("ObjectKey() default ext = %q", got)
	}
}

func TestMirrorUploadsToBucket(t *testing.T) {
	var mu sync.Mutex
	uploads := map[string]string{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/source/25.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write([]byte("\x89PNG fake"))
		case r.Method == http.MethodPut:
			if r.Header.Get("Authorization") == "" {
				t.Errorf("expected signed upload request")
			}
			body, _ := io.ReadAll(r.Body)
			mu.Lock()
			uploads[r.URL.Path] = string(body)
			mu.Unlock()
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	mirror, err := artwork.New(artwork.Config{
		SecretID:     "id",
		SecretKey:    "key",
		BucketURL:    srv.URL,
		PublicDomain: "https://cdn.example.com/",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ref, err := mirror.Mirror(context.Background(), model.CollectibleItem{ID: 25, Name: "Pikachu", ImageRef: srv.URL + "/source/25.png"})
	if err != nil {
		t.Fatalf("Mirror() error = %v", err)
	}
	if ref != "https://cdn.example.com/artwork/25_pikachu.png" {
		t.Fatalf("unexpected public url %q", ref)
	}
	mu.Lock()
	defer mu.Unlock()
	if got := uploads["/artwork/25_pikachu.png"]; !strings.HasPrefix(got, "\x89PNG") {
		t.Fatalf("expected uploaded image bytes, got %q", got)
	}
}

func TestMirrorBrokenImage(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	mirror, err := artwork.New(artwork.Config{SecretID: "id", SecretKey: "key", BucketURL: srv.URL, PublicDomain: "https://cdn"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := mirror.Mirror(context.Background(), model.CollectibleItem{ID: 1, ImageRef: srv.URL + "/missing.png"}); err == nil {
		t.Fatalf("expected error for broken image ref")
	}
	if _, err := mirror.Mirror(context.Background(), model.CollectibleItem{ID: 1}); err == nil {
		t.Fatalf("expected error for missing image ref")
	}
}
