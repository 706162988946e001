// Package imagehost validates post images and uploads them to the external
// image host, which answers with a public URL.
package imagehost

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/d60-Lab/skycial/config"
)

// DefaultMaxBytes 默认图片大小上限 2 MiB
const DefaultMaxBytes int64 = 2 << 20

var (
	ErrInvalidImage  = errors.New("image must be png, jpeg or webp")
	ErrImageTooLarge = errors.New("image is too large")
	ErrUploadFailed  = errors.New("image upload failed")
)

var allowedTypes = []string{"image/png", "image/jpeg", "image/webp"}

// Validate sniffs the content type from the bytes themselves and enforces the
// size limit. It returns the detected MIME type.
func Validate(data []byte, maxBytes int64) (string, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if int64(len(data)) > maxBytes {
		return "", fmt.Errorf("%w: %d bytes, limit %d", ErrImageTooLarge, len(data), maxBytes)
	}
	if len(data) == 0 {
		return "", ErrInvalidImage
	}
	mt := mimetype.Detect(data)
	for _, t := range allowedTypes {
		if mt.Is(t) {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: got %s", ErrInvalidImage, mt.String())
}

type Uploader interface {
	Upload(ctx context.Context, data []byte, name string) (string, error)
}

// Client 图床上传客户端（imgbb 兼容接口：multipart 字段 image，key 走 query）
type Client struct {
	endpoint string
	apiKey   string
	maxBytes int64
	http     *http.Client
}

func New(cfg config.ImageHostConfig) *Client {
	return &Client{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		maxBytes: cfg.MaxBytes,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

type uploadResponse struct {
	Success bool `json:"success"`
	Data    struct {
		URL string `json:"url"`
	} `json:"data"`
}

func (c *Client) Upload(ctx context.Context, data []byte, name string) (string, error) {
	if _, err := Validate(data, c.maxBytes); err != nil {
		return "", err
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("image", name)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("image host endpoint: %w", err)
	}
	q := u.Query()
	q.Set("key", c.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: status %d: %s", ErrUploadFailed, resp.StatusCode, bytes.TrimSpace(msg))
	}
	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrUploadFailed, err)
	}
	if !out.Success || out.Data.URL == "" {
		return "", fmt.Errorf("%w: no url in response", ErrUploadFailed)
	}
	return out.Data.URL, nil
}
