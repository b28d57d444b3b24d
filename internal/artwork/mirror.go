// Package artwork copies collectible images into a Tencent COS bucket so the
// collection does not depend on third-party image hosts.
package artwork

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	cos "github.com/tencentyun/cos-go-sdk-v5"

	"pokequest/internal/model"
)

var ErrMirrorUnavailable = errors.New("artwork mirror is not configured")

var objectNamePattern = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

const maxImageBytes = 8 << 20

type Config struct {
	SecretID     string
	SecretKey    string
	Region       string
	Bucket       string
	PublicDomain string
	// BucketURL overrides the endpoint derived from Bucket and Region.
	BucketURL string
	Prefix    string
	Timeout   time.Duration
}

// Enabled reports whether enough is configured to upload.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.SecretID) != "" &&
		strings.TrimSpace(c.SecretKey) != "" &&
		(strings.TrimSpace(c.Bucket) != "" || strings.TrimSpace(c.BucketURL) != "") &&
		strings.TrimSpace(c.PublicDomain) != ""
}

type Mirror struct {
	cos          *cos.Client
	download     *http.Client
	prefix       string
	publicDomain string
}

func New(cfg Config) (*Mirror, error) {
	if !cfg.Enabled() {
		return nil, ErrMirrorUnavailable
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "ap-hongkong"
	}
	rawBucketURL := strings.TrimSpace(cfg.BucketURL)
	if rawBucketURL == "" {
		rawBucketURL = fmt.Sprintf("https://%s.cos.%s.myqcloud.com", strings.TrimSpace(cfg.Bucket), region)
	}
	bucketURL, err := url.Parse(rawBucketURL)
	if err != nil {
		return nil, fmt.Errorf("parse bucket url: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	prefix := strings.Trim(strings.TrimSpace(cfg.Prefix), "/")
	if prefix == "" {
		prefix = "artwork"
	}

	client := cos.NewClient(&cos.BaseURL{BucketURL: bucketURL}, &http.Client{
		Timeout: cfg.Timeout,
		Transport: &cos.AuthorizationTransport{
			SecretID:  strings.TrimSpace(cfg.SecretID),
			SecretKey: strings.TrimSpace(cfg.SecretKey),
		},
	})
	return &Mirror{
		cos:          client,
		download:     &http.Client{Timeout: cfg.Timeout},
		prefix:       prefix,
		publicDomain: strings.TrimRight(strings.TrimSpace(cfg.PublicDomain), "/"),
	}, nil
}

// Mirror downloads the item's image and stores it under a key derived from
// the item id, returning the public URL. Mirroring the same item twice
// overwrites the same object.
func (m *Mirror) Mirror(ctx context.Context, item model.CollectibleItem) (string, error) {
	if strings.TrimSpace(item.ImageRef) == "" {
		return "", errors.New("item has no image")
	}
	data, contentType, err := m.fetch(ctx, item.ImageRef)
	if err != nil {
		return "", err
	}

	key := ObjectKey(m.prefix, item)
	opt := &cos.ObjectPutOptions{
		ObjectPutHeaderOptions: &cos.ObjectPutHeaderOptions{
			ContentType: contentType,
		},
	}
	if _, err := m.cos.Object.Put(ctx, key, bytes.NewReader(data), opt); err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return m.publicDomain + "/" + key, nil
}

func (m *Mirror) fetch(ctx context.Context, ref string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := m.download.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("download image failed, status=%d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, "", err
	}
	if len(data) == 0 {
		return nil, "", errors.New("image is empty")
	}
	if len(data) > maxImageBytes {
		return nil, "", fmt.Errorf("image exceeds %d bytes", maxImageBytes)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return data, contentType, nil
}

func ObjectKey(prefix string, item model.CollectibleItem) string {
	ext := path.Ext(path.Base(strings.SplitN(item.ImageRef, "?", 2)[0]))
	if ext == "" || len(ext) > 5 {
		ext = ".png"
	}
	name := objectNamePattern.ReplaceAllString(strings.ToLower(strings.TrimSpace(item.Name)), "_")
	if name == "" {
		name = "item"
	}
	return fmt.Sprintf("%s/%d_%s%s", prefix, item.ID, name, ext)
}
