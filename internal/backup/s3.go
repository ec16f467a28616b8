package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/indipendencepark/sana-intraprendenza/internal/domain"
	"github.com/indipendencepark/sana-intraprendenza/internal/store"
)

type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Archive keeps one object per day under prefix; later saves on the same
// day overwrite it.
type S3Archive struct {
	client s3API
	bucket string
	prefix string
	now    func() time.Time
}

type S3Options struct {
	Bucket    string
	Region    string
	Endpoint  string
	Prefix    string
	AccessKey string
	SecretKey string
}

func NewS3Archive(ctx context.Context, opts S3Options) (*S3Archive, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("backup/s3: bucket is not configured")
	}
	if opts.Region == "" {
		opts.Region = "eu-south-1"
	}

	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(opts.Region),
	}
	if opts.AccessKey != "" && opts.SecretKey != "" {
		loadOpts = append(loadOpts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}
	cfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("backup/s3: load config: %w", err)
	}

	clientOpts := []func(*s3.Options){}
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		})
	}

	return newS3Archive(s3.NewFromConfig(cfg, clientOpts...), opts.Bucket, opts.Prefix), nil
}

func newS3Archive(client s3API, bucket, prefix string) *S3Archive {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = "minibar"
	}
	return &S3Archive{
		client: client,
		bucket: bucket,
		prefix: prefix,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (a *S3Archive) key(day time.Time) string {
	return fmt.Sprintf("%s/%s.json", a.prefix, day.Format("2006-01-02"))
}

func (a *S3Archive) Save(ctx context.Context, state domain.State) error {
	body, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode archive: %w", err)
	}
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(a.key(a.now())),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("backup/s3: put: %w", err)
	}
	return nil
}

// Latest returns the newest day's document. Keys sort by date, so the
// greatest key across every listing page wins.
func (a *S3Archive) Latest(ctx context.Context) (*domain.State, error) {
	pages := s3.NewListObjectsV2Paginator(a.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(a.bucket),
		Prefix: aws.String(a.prefix + "/"),
	})
	var newest string
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("backup/s3: list: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(key, ".json") && key > newest {
				newest = key
			}
		}
	}
	if newest == "" {
		return nil, store.ErrNotFound
	}

	obj, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(newest),
	})
	if err != nil {
		return nil, fmt.Errorf("backup/s3: get: %w", err)
	}
	defer obj.Body.Close()

	body, err := io.ReadAll(obj.Body)
	if err != nil {
		return nil, err
	}
	var state domain.State
	if err := json.Unmarshal(body, &state); err != nil {
		return nil, fmt.Errorf("decode archive: %w", err)
	}
	return &state, nil
}
