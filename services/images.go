package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"closetapi/apperrors"
)

const (
	DefaultImageFetchTimeout = 15 * time.Second
	DefaultImageMaxBytes     = 10 << 20
)

type ImagePayload struct {
	Data     []byte
	MIMEType string
}

func (p *ImagePayload) Base64() string {
	return base64.StdEncoding.EncodeToString(p.Data)
}

func (p *ImagePayload) DataURL() string {
	return fmt.Sprintf("data:%s;base64,%s", p.MIMEType, p.Base64())
}

// ImageFetcher retrieves an image for tagging. Every failure is a FETCH error.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) (*ImagePayload, error)
}

type HTTPImageFetcher struct {
	Client   *http.Client
	Timeout  time.Duration
	MaxBytes int64
}

func NewHTTPImageFetcher(timeout time.Duration, maxBytes int64) *HTTPImageFetcher {
	if timeout <= 0 {
		timeout = DefaultImageFetchTimeout
	}
	if maxBytes <= 0 {
		maxBytes = DefaultImageMaxBytes
	}
	return &HTTPImageFetcher{
		Client:   &http.Client{},
		Timeout:  timeout,
		MaxBytes: maxBytes,
	}
}

func (f *HTTPImageFetcher) Fetch(ctx context.Context, url string) (*ImagePayload, error) {
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperrors.NewFetchError(url, err)
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, apperrors.NewFetchError(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperrors.NewFetchError(url, fmt.Errorf("status code %d", resp.StatusCode))
	}

	maxBytes := f.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultImageMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, apperrors.NewFetchError(url, err)
	}
	if int64(len(data)) > maxBytes {
		return nil, apperrors.NewFetchError(url, fmt.Errorf("image larger than %d bytes", maxBytes))
	}
	if len(data) == 0 {
		return nil, apperrors.NewFetchError(url, fmt.Errorf("empty body"))
	}

	mimeType := imageMIMEType(resp.Header.Get("Content-Type"), data)
	if mimeType == "" {
		return nil, apperrors.NewFetchError(url, fmt.Errorf("unsupported content type %q", resp.Header.Get("Content-Type")))
	}
	log.Ctx(ctx).Debug().Str("url", url).Str("mime_type", mimeType).Int("bytes", len(data)).Msg("image downloaded")
	return &ImagePayload{Data: data, MIMEType: mimeType}, nil
}

// imageMIMEType prefers the declared content type and falls back to sniffing.
// Returns "" when neither looks like an image.
func imageMIMEType(header string, data []byte) string {
	if mediaType, _, err := mime.ParseMediaType(header); err == nil && strings.HasPrefix(mediaType, "image/") {
		return mediaType
	}
	if sniffed := http.DetectContentType(data); strings.HasPrefix(sniffed, "image/") {
		return sniffed
	}
	return ""
}
