package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/JoergFritschi-crypto/garden-climate/internal/domain"
)

// Config addresses an S3-compatible bucket.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Archive stores the raw datasets reports were computed from. It implements
// pipeline.DatasetArchive.
type Archive struct {
	client *minio.Client
	bucket string
	logger *slog.Logger
}

// New creates the archive client and makes sure the bucket exists.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Archive, error) {
	client, err := minio.New(sanitizeEndpoint(cfg.Endpoint), &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       cfg.UseSSL,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("init archive client: %w", err)
	}

	a := &Archive{client: client, bucket: cfg.Bucket, logger: logger}
	if err := a.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket %s: %w", cfg.Bucket, err)
	}
	logger.Info("dataset archive enabled", "endpoint", cfg.Endpoint, "bucket", cfg.Bucket)
	return a, nil
}

func (a *Archive) ensureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err == nil && exists {
		return nil
	}
	err = a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{})
	if err != nil && minio.ToErrorResponse(err).Code != "BucketAlreadyOwnedByYou" {
		return err
	}
	return nil
}

// Put writes ds as a JSON array under the location key and period.
func (a *Archive) Put(ctx context.Context, key domain.LocationKey, period domain.Period, ds domain.Dataset) error {
	payload, err := json.Marshal(ds)
	if err != nil {
		return fmt.Errorf("encode dataset %s: %w", key, err)
	}

	name := ObjectName(key, period)
	info, err := a.client.PutObject(ctx, a.bucket, name, bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{
		ContentType:      "application/json",
		DisableMultipart: len(payload) < 5*1024*1024,
		UserMetadata: map[string]string{
			"location-key": string(key),
			"records":      fmt.Sprint(len(ds)),
		},
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", name, err)
	}

	a.logger.Debug("dataset archived", "object", name, "size", info.Size, "records", len(ds))
	return nil
}

// CheckReadiness verifies the bucket is reachable.
func (a *Archive) CheckReadiness(ctx context.Context) error {
	if _, err := a.client.BucketExists(ctx, a.bucket); err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	return nil
}

// ObjectName is datasets/<location key>/<start>_<end>.json. Commas in the key
// are kept; they are valid in S3 object names.
func ObjectName(key domain.LocationKey, period domain.Period) string {
	return fmt.Sprintf("datasets/%s/%s_%s.json", key, period.Start.String(), period.End.String())
}

// sanitizeEndpoint strips scheme and path, which minio.New does not accept.
func sanitizeEndpoint(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "https://"), "http://")
	host, _, _ := strings.Cut(raw, "/")
	return host
}
