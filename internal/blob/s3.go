// Package blob archives raw CSV uploads to S3.
package blob

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"cdr_api/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// PutObjectAPI is the part of *s3.Client the archive needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archive writes each upload to <prefix>/yyyy/mm/dd/<uuid>.csv.
type Archive struct {
	client PutObjectAPI
	bucket string
	prefix string
	now    func() time.Time
	newID  func() string
}

func NewArchive(client PutObjectAPI, bucket, prefix string) *Archive {
	return &Archive{
		client: client,
		bucket: bucket,
		prefix: prefix,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Open builds an Archive from the default AWS credential chain. It returns
// nil, nil when no bucket is configured.
func Open(ctx context.Context, cfg *config.Configuration) (*Archive, error) {
	if cfg.S3_Bucket == "" {
		return nil, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewArchive(s3.NewFromConfig(awsCfg), cfg.S3_Bucket, cfg.S3_Prefix), nil
}

// ObjectKey builds the key for an upload received at t.
func ObjectKey(prefix string, t time.Time, id string) string {
	t = t.UTC()
	return path.Join(prefix, fmt.Sprintf("%04d", t.Year()), fmt.Sprintf("%02d", t.Month()), fmt.Sprintf("%02d", t.Day()), id+".csv")
}

// Store uploads body and returns its key.
func (a *Archive) Store(ctx context.Context, body []byte) (string, error) {
	key := ObjectKey(a.prefix, a.now(), a.newID())
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return "", fmt.Errorf("put s3://%s/%s: %w", a.bucket, key, err)
	}
	return key, nil
}
