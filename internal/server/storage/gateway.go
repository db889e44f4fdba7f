// Package storage is the object storage gateway: list, upload and download
// against a single S3-compatible bucket.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"iter"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmitrijs2005/duplofs/internal/common"
	"github.com/dmitrijs2005/duplofs/internal/logging"
	"github.com/dmitrijs2005/duplofs/internal/server/config"
	"github.com/dmitrijs2005/duplofs/internal/server/models"
)

// fallbackRegion is used for generic providers that ignore the region but
// still require one for request signing.
const fallbackRegion = "us-east-1"

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// objectAPI is the subset of *s3.Client used by the gateway.
type objectAPI interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// objectUploader is satisfied by *manager.Uploader.
type objectUploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// Observer receives one call per completed storage operation.
type Observer interface {
	Observe(op string, bytes int64, err error, dur time.Duration)
}

type nopObserver struct{}

func (nopObserver) Observe(string, int64, error, time.Duration) {}

// Options describe the bucket and how to reach it.
type Options struct {
	Provider      string
	AccessKey     string
	SecretKey     string
	Region        string
	Bucket        string
	Endpoint      string
	PublicBaseURL string
}

// OptionsFromConfig maps server settings onto gateway options.
func OptionsFromConfig(c *config.Config) Options {
	return Options{
		Provider:      c.S3Provider,
		AccessKey:     c.S3AccessKey,
		SecretKey:     c.S3SecretKey,
		Region:        c.S3Region,
		Bucket:        c.S3Bucket,
		Endpoint:      c.StorageEndpoint(),
		PublicBaseURL: c.S3PublicBaseURL,
	}
}

// Gateway talks to one bucket. It is safe for concurrent use.
type Gateway struct {
	client   objectAPI
	uploader objectUploader
	bucket   string
	region   string
	urls     urlBuilder
	logger   logging.Logger
	observer Observer
	tracer   trace.Tracer
}

// NewGateway builds an S3 client from opts. observer may be nil.
func NewGateway(ctx context.Context, opts Options, logger logging.Logger, observer Observer) (*Gateway, error) {
	region := opts.Region
	if region == "" {
		region = fallbackRegion
	}

	cfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKey,
			opts.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load storage config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.Provider == config.ProviderGeneric
		// S3-compatible providers do not all accept the default CRC checksums.
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})

	return newGateway(client, manager.NewUploader(client), opts, logger, observer), nil
}

func newGateway(client objectAPI, uploader objectUploader, opts Options, logger logging.Logger, observer Observer) *Gateway {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Gateway{
		client:   client,
		uploader: uploader,
		bucket:   opts.Bucket,
		region:   opts.Region,
		urls:     newURLBuilder(opts),
		logger:   logger.With("module", "storage"),
		observer: observer,
		tracer:   otel.Tracer(common.ServiceName + "/storage"),
	}
}

// Bucket returns the bucket name.
func (g *Gateway) Bucket() string { return g.bucket }

// Region returns the configured region.
func (g *Gateway) Region() string { return g.region }

// PublicURL returns the unauthenticated URL of key. It is only reachable for
// objects uploaded with a public-read ACL.
func (g *Gateway) PublicURL(key string) string { return g.urls.objectURL(key) }

// ListFiles returns a lazy sequence over every object in the bucket. Pages
// are requested as the sequence is consumed. A provider failure is yielded
// once, wrapped in common.ErrProvider, and ends the sequence. Each range over
// the result issues a fresh listing.
func (g *Gateway) ListFiles(ctx context.Context) iter.Seq2[models.StoredFile, error] {
	return func(yield func(models.StoredFile, error) bool) {
		ctx, span := g.tracer.Start(ctx, "storage.ListFiles",
			trace.WithAttributes(attribute.String("storage.bucket", g.bucket)))
		defer span.End()

		start := time.Now()
		var count int64
		var listErr error
		defer func() {
			span.SetAttributes(attribute.Int64("storage.objects", count))
			g.observer.Observe("list", 0, listErr, time.Since(start))
		}()

		p := s3.NewListObjectsV2Paginator(g.client, &s3.ListObjectsV2Input{
			Bucket: aws.String(g.bucket),
		})

		for p.HasMorePages() {
			page, err := p.NextPage(ctx)
			if err != nil {
				listErr = providerError("list objects", err)
				recordError(span, listErr)
				g.logger.Error(ctx, "list objects failed", "bucket", g.bucket, "error", err)
				yield(models.StoredFile{}, listErr)
				return
			}

			for _, obj := range page.Contents {
				count++
				if !yield(g.toStoredFile(obj), nil) {
					return
				}
			}
		}
	}
}

// UploadFile stores body under name with a public-read ACL. An existing
// object with the same name is replaced.
func (g *Gateway) UploadFile(ctx context.Context, name string, body io.Reader, contentType string) (err error) {
	if name == "" {
		return common.ErrEmptyFilename
	}

	ctx, span := g.tracer.Start(ctx, "storage.UploadFile",
		trace.WithAttributes(
			attribute.String("storage.bucket", g.bucket),
			attribute.String("storage.key", name),
		))
	defer span.End()

	if body == nil {
		body = bytes.NewReader(nil)
	}
	counter := &countingReader{r: body}
	start := time.Now()
	defer func() { g.observer.Observe("upload", counter.n, err, time.Since(start)) }()

	input := &s3.PutObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(name),
		Body:   counter,
		ACL:    types.ObjectCannedACLPublicRead,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err = g.uploader.Upload(ctx, input); err != nil {
		err = providerError("upload "+name, err)
		recordError(span, err)
		return err
	}

	g.logger.Info(ctx, "file uploaded", "name", name, "bytes", counter.n)
	return nil
}

// DownloadFile opens the object stored under name. A missing object yields
// common.ErrorNotFound; other failures are wrapped in common.ErrProvider.
func (g *Gateway) DownloadFile(ctx context.Context, name string) (content *models.FileContent, err error) {
	ctx, span := g.tracer.Start(ctx, "storage.DownloadFile",
		trace.WithAttributes(
			attribute.String("storage.bucket", g.bucket),
			attribute.String("storage.key", name),
		))
	defer span.End()

	start := time.Now()
	defer func() {
		var n int64
		if content != nil && content.Size > 0 {
			n = content.Size
		}
		g.observer.Observe("download", n, err, time.Since(start))
	}()

	if name == "" {
		return nil, fmt.Errorf("object %q: %w", name, common.ErrorNotFound)
	}

	out, err := g.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("object %q: %w", name, common.ErrorNotFound)
		}
		err = providerError("get "+name, err)
		recordError(span, err)
		return nil, err
	}

	size := int64(-1)
	if out.ContentLength != nil {
		size = *out.ContentLength
	}

	return &models.FileContent{
		Name:        name,
		Body:        out.Body,
		Size:        size,
		ContentType: aws.ToString(out.ContentType),
	}, nil
}

func (g *Gateway) toStoredFile(obj types.Object) models.StoredFile {
	key := aws.ToString(obj.Key)
	return models.StoredFile{
		Name:         key,
		Size:         aws.ToInt64(obj.Size),
		URL:          g.urls.objectURL(key),
		IsImage:      IsImage(key),
		LastModified: aws.ToTime(obj.LastModified),
	}
}

func providerError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", common.ErrProvider, op, err)
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// countingReader tracks bytes handed to the uploader.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
