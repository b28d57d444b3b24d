// Package pokeapi fetches collectible details from a PokeAPI compatible
// service.
package pokeapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"pokequest/internal/catch"
	"pokequest/internal/model"
)

const (
	DefaultBaseURL     = "https://pokeapi.co"
	DefaultDescription = "No description available."

	maxBodyBytes = 4 << 20
)

var ErrInvalidResponse = errors.New("invalid pokeapi response")

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	tracer     trace.Tracer
}

var _ catch.Provider = (*Client)(nil)

func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("parse pokeapi base url: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		tracer:     otel.Tracer("pokequest/pokeapi"),
	}, nil
}

type pokemonResponse struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Species struct {
		URL string `json:"url"`
	} `json:"species"`
	Sprites struct {
		FrontDefault string `json:"front_default"`
		Other        map[string]struct {
			FrontDefault string `json:"front_default"`
		} `json:"other"`
	} `json:"sprites"`
	Types []struct {
		Slot int `json:"slot"`
		Type struct {
			Name string `json:"name"`
		} `json:"type"`
	} `json:"types"`
}

type speciesResponse struct {
	FlavorTextEntries []struct {
		FlavorText string `json:"flavor_text"`
		Language   struct {
			Name string `json:"name"`
		} `json:"language"`
	} `json:"flavor_text_entries"`
}

// FetchItemDetail loads /api/v2/pokemon/{id}. The returned DescriptionRef is
// the species URL.
func (c *Client) FetchItemDetail(ctx context.Context, id int) (catch.Detail, error) {
	ctx, span := c.tracer.Start(ctx, "pokeapi.FetchItemDetail", trace.WithAttributes(attribute.Int("item_id", id)))
	defer span.End()

	var resp pokemonResponse
	if err := c.getJSON(ctx, c.baseURL+"/api/v2/pokemon/"+strconv.Itoa(id), &resp); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return catch.Detail{}, err
	}
	if strings.TrimSpace(resp.Name) == "" || resp.Species.URL == "" {
		err := fmt.Errorf("%w: pokemon %d has no name or species", ErrInvalidResponse, id)
		span.SetStatus(codes.Error, err.Error())
		return catch.Detail{}, err
	}
	if resp.ID == 0 {
		resp.ID = id
	}

	image := resp.Sprites.FrontDefault
	if art, ok := resp.Sprites.Other["official-artwork"]; ok && art.FrontDefault != "" {
		image = art.FrontDefault
	}
	category := ""
	if len(resp.Types) > 0 {
		category = resp.Types[0].Type.Name
	}
	return catch.Detail{
		Item: model.CollectibleItem{
			ID:       resp.ID,
			Name:     titleName(resp.Name),
			ImageRef: image,
			Category: category,
		},
		DescriptionRef: resp.Species.URL,
	}, nil
}

// FetchItemDescription returns the first English flavor text of the species
// at ref, or DefaultDescription when there is none.
func (c *Client) FetchItemDescription(ctx context.Context, ref string) (string, error) {
	ctx, span := c.tracer.Start(ctx, "pokeapi.FetchItemDescription")
	defer span.End()

	target, err := c.resolve(ref)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	var resp speciesResponse
	if err := c.getJSON(ctx, target, &resp); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	for _, entry := range resp.FlavorTextEntries {
		if entry.Language.Name != "en" {
			continue
		}
		if text := cleanFlavorText(entry.FlavorText); text != "" {
			return text, nil
		}
	}
	return DefaultDescription, nil
}

func (c *Client) resolve(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("%w: empty description reference", ErrInvalidResponse)
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse description reference: %w", err)
	}
	if u.IsAbs() {
		return ref, nil
	}
	return c.baseURL + "/" + strings.TrimLeft(ref, "/"), nil
}

func (c *Client) getJSON(ctx context.Context, target string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("pokeapi request failed, status=%d body=%s", resp.StatusCode, truncate(strings.TrimSpace(string(body)), 200))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

// titleName builds a fresh Caser per call; Casers are not safe for
// concurrent use.
func titleName(name string) string {
	return cases.Title(language.English).String(strings.TrimSpace(name))
}

func cleanFlavorText(s string) string {
	s = strings.NewReplacer("\n", " ", "\f", " ").Replace(s)
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
