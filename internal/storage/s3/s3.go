// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package s3 implements a catalog root over an S3 or MinIO bucket prefix.
package s3

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/ManuGH/streamconnect/internal/catalog"
	"github.com/ManuGH/streamconnect/internal/log"
	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

const defaultPresignTTL = 15 * time.Minute

// Config describes an S3 root.
type Config struct {
	ID         string
	Bucket     string
	Prefix     string
	Endpoint   string // empty uses AWS endpoints
	Region     string
	AccessKey  string // empty uses the default credential chain
	SecretKey  string
	IncludeExt []string
	PresignTTL time.Duration
}

// API is the subset of the S3 client the root uses.
type API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Presigner produces presigned GET requests.
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Root serves videos from a bucket prefix.
type Root struct {
	cfg       Config
	client    API
	presigner Presigner
	logger    zerolog.Logger
}

var (
	_ catalog.Root    = (*Root)(nil)
	_ catalog.Locator = (*Root)(nil)
)

// New builds a root with an SDK client for cfg.
func New(ctx context.Context, cfg Config) (*Root, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewWithClient(cfg, client, s3.NewPresignClient(client)), nil
}

// NewWithClient builds a root over an existing client. presigner may be nil,
// in which case durations are not probed for this root.
func NewWithClient(cfg Config, client API, presigner Presigner) *Root {
	if cfg.PresignTTL <= 0 {
		cfg.PresignTTL = defaultPresignTTL
	}
	cfg.Prefix = strings.TrimPrefix(cfg.Prefix, "/")
	if cfg.Prefix != "" && !strings.HasSuffix(cfg.Prefix, "/") {
		cfg.Prefix += "/"
	}
	return &Root{
		cfg:       cfg,
		client:    client,
		presigner: presigner,
		logger:    log.WithComponent("storage.s3").With().Str(log.FieldRootID, cfg.ID).Logger(),
	}
}

func (r *Root) ID() string   { return r.cfg.ID }
func (r *Root) Kind() string { return "s3" }

// List pages through the prefix.
func (r *Root) List(ctx context.Context) ([]catalog.Object, error) {
	start := time.Now()
	p := s3.NewListObjectsV2Paginator(r.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(r.cfg.Bucket),
		Prefix: aws.String(r.cfg.Prefix),
	})

	var objects []catalog.Object
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list s3://%s/%s: %w", r.cfg.Bucket, r.cfg.Prefix, err)
		}
		for _, o := range page.Contents {
			full := aws.ToString(o.Key)
			key := strings.TrimPrefix(full, r.cfg.Prefix)
			if key == "" || strings.HasSuffix(key, "/") {
				continue
			}
			if !allowedExtension(path.Ext(key), r.cfg.IncludeExt) {
				continue
			}
			objects = append(objects, catalog.Object{
				Key:     key,
				Path:    "s3://" + r.cfg.Bucket + "/" + full,
				Size:    aws.ToInt64(o.Size),
				ModTime: aws.ToTime(o.LastModified),
			})
		}
	}

	r.logger.Debug().
		Int("objects", len(objects)).
		Dur("took", time.Since(start)).
		Msg("listed bucket prefix")
	return objects, nil
}

// Open streams the object body.
func (r *Root) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.cfg.Bucket),
		Key:    aws.String(r.cfg.Prefix + key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	return out.Body, nil
}

// Locate returns a presigned URL ffprobe can read.
func (r *Root) Locate(ctx context.Context, key string) (string, error) {
	if r.presigner == nil {
		return "", fmt.Errorf("no presigner for root %s", r.cfg.ID)
	}
	req, err := r.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.cfg.Bucket),
		Key:    aws.String(r.cfg.Prefix + key),
	}, s3.WithPresignExpires(r.cfg.PresignTTL))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, nil
}

func allowedExtension(ext string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if strings.EqualFold(ext, a) {
			return true
		}
	}
	return false
}
