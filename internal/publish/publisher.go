// Package publish uploads finished artifacts to durable object storage,
// degrading to inline delivery when the upload fails.
package publish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

// Result is the outcome of one publish attempt. Exactly one of URL or
// Image is set: a durable URL on success, the raw bytes plus the recorded
// error otherwise. The artifact is never dropped.
type Result struct {
	URL   string
	Image []byte
	Err   error
}

// Config locates the S3-compatible store.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Publisher uploads artifacts to one bucket. A nil client (storage not
// configured) makes every publish fall back to inline delivery, which
// keeps the caller-facing contract intact on storage-less deployments.
type Publisher struct {
	client *minio.Client
	cfg    Config
	log    zerolog.Logger
	now    func() time.Time
}

var errNotConfigured = errors.New("object storage not configured")

// New builds a Publisher. An empty endpoint yields a disabled publisher
// rather than an error.
func New(cfg Config, log zerolog.Logger) (*Publisher, error) {
	p := &Publisher{cfg: cfg, log: log, now: time.Now}
	if cfg.Endpoint == "" {
		log.Warn().Msg("object storage not configured, artifacts will be delivered inline")
		return p, nil
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}
	p.client = client
	return p, nil
}

// Publish uploads the artifact under a unique key and returns its public
// URL. On any failure the raw bytes come back alongside the recorded
// error; the job still succeeds, the caller delivers the image inline.
func (p *Publisher) Publish(ctx context.Context, data []byte, suggestedName string) Result {
	if p.client == nil {
		return Result{Image: data, Err: errNotConfigured}
	}

	key := fmt.Sprintf("generated_images/%d_%s", p.now().UnixMilli(), suggestedName)
	_, err := p.client.PutObject(ctx, p.cfg.Bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "image/png"})
	if err != nil {
		p.log.Error().Err(err).Str("key", key).Msg("artifact upload failed, falling back to inline delivery")
		return Result{Image: data, Err: err}
	}

	url := fmt.Sprintf("%s/%s/%s", p.client.EndpointURL(), p.cfg.Bucket, key)
	p.log.Info().Str("url", url).Msg("artifact published")
	return Result{URL: url}
}
