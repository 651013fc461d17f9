// Package remote implements the remote fetch orchestrator (C8): Y/M/D
// discovery against an S3 bucket (optionally merged with a flat manifest),
// a 2-day AWS-flush buffer, per-day fetch-then-extract, and calendar-aware
// month/year progress aggregation.
package remote

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dandi/s3logextraction/pkg/apperr"
)

// S3Client is the subset of S3 operations the orchestrator needs. Abstracted
// behind an interface so discovery and fetch logic can be exercised with a
// fake in tests, matching the teacher's pattern of isolating outbound
// network calls behind a narrow interface.
type S3Client interface {
	// ListCommonPrefixes lists the "directory" names one level below prefix
	// (a delimited listing), stripping the trailing slash.
	ListCommonPrefixes(ctx context.Context, bucket, prefix string) ([]string, error)
	// ListObjectKeys lists every object key under prefix (no delimiter).
	ListObjectKeys(ctx context.Context, bucket, prefix string) ([]string, error)
	// Download streams one object to destPath.
	Download(ctx context.Context, bucket, key, destPath string) error
}

// awsS3Client is the production S3Client backed by aws-sdk-go-v2.
type awsS3Client struct {
	client *s3.Client
}

// NewAWSClient loads the default AWS configuration (environment, shared
// config/credentials files, EC2/ECS instance metadata, in that order) and
// constructs the S3 client.
func NewAWSClient(ctx context.Context) (S3Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, apperr.ConfigError("new_aws_client", "failed to load AWS configuration").Wrap(err)
	}
	return &awsS3Client{client: s3.NewFromConfig(cfg)}, nil
}

func (c *awsS3Client) ListCommonPrefixes(ctx context.Context, bucket, prefix string) ([]string, error) {
	var names []string
	paginator := s3.NewListObjectsV2Paginator(c.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, apperr.New("REMOTE_LIST_FAILED", "remote", "list_common_prefixes", "failed to list S3 prefixes").
				WithMetadata("bucket", bucket).WithMetadata("prefix", prefix).Wrap(err)
		}
		for _, commonPrefix := range page.CommonPrefixes {
			name := trimPrefixSuffix(aws.ToString(commonPrefix.Prefix), prefix)
			if name != "" {
				names = append(names, name)
			}
		}
	}
	return names, nil
}

func (c *awsS3Client) ListObjectKeys(ctx context.Context, bucket, prefix string) ([]string, error) {
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(c.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, apperr.New("REMOTE_LIST_FAILED", "remote", "list_object_keys", "failed to list S3 objects").
				WithMetadata("bucket", bucket).WithMetadata("prefix", prefix).Wrap(err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

func (c *awsS3Client) Download(ctx context.Context, bucket, key, destPath string) error {
	resp, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return apperr.New("REMOTE_DOWNLOAD_FAILED", "remote", "download", "failed to fetch S3 object").
			WithMetadata("bucket", bucket).WithMetadata("key", key).Wrap(err)
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return apperr.New("REMOTE_DOWNLOAD_FAILED", "remote", "download", "failed to create destination directory").
			WithMetadata("dest_path", destPath).Wrap(err)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return apperr.New("REMOTE_DOWNLOAD_FAILED", "remote", "download", "failed to create destination file").
			WithMetadata("dest_path", destPath).Wrap(err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return apperr.New("REMOTE_DOWNLOAD_FAILED", "remote", "download", "failed to write destination file").
			WithMetadata("dest_path", destPath).Wrap(err)
	}
	return nil
}

func trimPrefixSuffix(full, prefix string) string {
	if len(full) <= len(prefix) {
		return ""
	}
	name := full[len(prefix):]
	if len(name) > 0 && name[len(name)-1] == '/' {
		name = name[:len(name)-1]
	}
	return name
}
