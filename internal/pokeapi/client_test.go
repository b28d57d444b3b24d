package pokeapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v2/pokemon/25":
			_, _ = w.Write([]byte(`{
				"id": 25,
				"name": "pikachu",
				"species": {"url": "` + srv.URL + `/api/v2/pokemon-species/25/"},
				"sprites": {
					"front_default": "https://img/front/25.png",
					"other": {"official-artwork": {"front_default": "https://img/art/25.png"}}
				},
				"types": [{"slot": 1, "type": {"name": "electric"}}]
			}`))
		case "/api/v2/pokemon-species/25/":
			_, _ = w.Write([]byte(`{"flavor_text_entries": [
				{"flavor_text": "ピカチュウ", "language": {"name": "ja"}},
				{"flavor_text": "When several of\nthese POKéMON\fgather, their\nelectricity could\nbuild and cause\nlightning storms.", "language": {"name": "en"}},
				{"flavor_text": "second english", "language": {"name": "en"}}
			]}`))
		case "/api/v2/pokemon-species/0/":
			_, _ = w.Write([]byte(`{"flavor_text_entries": [{"flavor_text": "x", "language": {"name": "fr"}}]}`))
		case "/api/v2/pokemon/500":
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`upstream down`))
		case "/api/v2/pokemon/501":
			_, _ = w.Write([]byte(`{"id": 501`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchItemDetail(t *testing.T) {
	srv := newTestServer(t)
	client, err := NewClient(Config{BaseURL: srv.URL + "/"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	detail, err := client.FetchItemDetail(context.Background(), 25)
	if err != nil {
		t.Fatalf("FetchItemDetail() error = %v", err)
	}
	if detail.Item.Name != "Pikachu" {
		t.Fatalf("expected title-cased name, got %q", detail.Item.Name)
	}
	if detail.Item.ImageRef != "https://img/art/25.png" {
		t.Fatalf("expected official artwork, got %q", detail.Item.ImageRef)
	}
	if detail.Item.Category != "electric" {
		t.Fatalf("expected category electric, got %q", detail.Item.Category)
	}
	if !strings.HasSuffix(detail.DescriptionRef, "/api/v2/pokemon-species/25/") {
		t.Fatalf("unexpected description ref %q", detail.DescriptionRef)
	}
}

func TestFetchItemDescriptionUsesFirstEnglishEntry(t *testing.T) {
	srv := newTestServer(t)
	client, err := NewClient(Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	got, err := client.FetchItemDescription(context.Background(), srv.URL+"/api/v2/pokemon-species/25/")
	if err != nil {
		t.Fatalf("FetchItemDescription() error = %v", err)
	}
	want := "When several of these POKéMON gather, their electricity could build and cause lightning storms."
	if got != want {
		t.Fatalf("expected %q got %q", want, got)
	}

	got, err = client.FetchItemDescription(context.Background(), "/api/v2/pokemon-species/0/")
	if err != nil {
		t.Fatalf("FetchItemDescription(relative) error = %v", err)
	}
	if got != DefaultDescription {
		t.Fatalf("expected default description, got %q", got)
	}
}

func TestFetchErrors(t *testing.T) {
	srv := newTestServer(t)
	client, err := NewClient(Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	if _, err := client.FetchItemDetail(context.Background(), 500); err == nil || !strings.Contains(err.Error(), "status=503") {
		t.Fatalf("expected status error, got %v", err)
	}
	if _, err := client.FetchItemDetail(context.Background(), 501); !errors.Is(err, ErrInvalidResponse) {
		t.Fatalf("expected ErrInvalidResponse, got %v", err)
	}
	if _, err := client.FetchItemDetail(context.Background(), 9999); err == nil {
		t.Fatalf("expected not found error")
	}
	if _, err := client.FetchItemDescription(context.Background(), " "); !errors.Is(err, ErrInvalidResponse) {
		t.Fatalf("expected ErrInvalidResponse for empty ref, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.FetchItemDetail(ctx, 25); err == nil {
		t.Fatalf("expected error for cancelled context")
	}
}

func TestCleanFlavorText(t *testing.T) {
	if got := cleanFlavorText("a\nb\fc"); got != "a b c" {
		t.Fatalf("cleanFlavorText() = %q", got)
	}
	if got := truncate("abcdef", 3); got != "abc..." {
		t.Fatalf("truncate() = %q", got)
	}
}

func TestTitleName(t *testing.T) {
	for in, want := range map[string]string{
		"pikachu":    "Pikachu",
		"mr-mime":    "Mr-Mime",
		"tapu-koko":  "Tapu-Koko",
		" bulbasaur": "Bulbasaur",
		"":           "",
	} {
		if got := titleName(in); got != want {
			t.Errorf("titleName(%q) = %q, want %q", in, got, want)
		}
	}
}
