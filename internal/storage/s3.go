package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"vurc_dashboard/ingestion/internal/dataset"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// Config holds object storage configuration. Endpoint is set for
// S3-compatible stores such as Cloudflare R2.
type Config struct {
	Bucket          string
	Key             string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// ObjectStore uploads the dataset to an S3-compatible bucket
type ObjectStore struct {
	client *s3.Client
	bucket string
	key    string
}

// NewObjectStore creates an object store client. Static credentials are used
// when given, otherwise the default AWS credential chain applies.
func NewObjectStore(ctx context.Context, cfg Config) (*ObjectStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load object storage config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
		// R2 and most S3-compatible stores reject the default trailing checksums
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})

	key := cfg.Key
	if key == "" {
		key = "rankings/dashboard_data.csv"
	}

	return &ObjectStore{client: client, bucket: cfg.Bucket, key: key}, nil
}

// Name identifies the publisher in logs and metrics
func (s *ObjectStore) Name() string {
	return "s3"
}

// jsonKey places the JSON rows next to the CSV object
func (s *ObjectStore) jsonKey() string {
	return strings.TrimSuffix(s.key, ".csv") + ".json"
}

// Publish uploads the CSV and the JSON rows
func (s *ObjectStore) Publish(ctx context.Context, ds *dataset.Dataset) error {
	csvData, err := ds.CSV()
	if err != nil {
		return fmt.Errorf("failed to encode csv: %w", err)
	}
	jsonData, err := ds.JSON()
	if err != nil {
		return err
	}

	if err := s.put(ctx, s.key, csvData, "text/csv"); err != nil {
		return err
	}
	if err := s.put(ctx, s.jsonKey(), jsonData, "application/json"); err != nil {
		return err
	}

	log.Info().
		Str("bucket", s.bucket).
		Str("key", s.key).
		Int("bytes", len(csvData)).
		Msg("Snapshot uploaded to object storage")
	return nil
}

func (s *ObjectStore) put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("no-cache"),
		Metadata:     map[string]string{"generator": "vurc-ratings"},
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}
