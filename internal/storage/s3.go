package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ignite/newsletter/internal/domain"
)

// S3API is the subset of *s3.Client used here.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// IssueArchive writes published issues to S3 as JSON documents.
type IssueArchive struct {
	client S3API
	bucket string
	prefix string
}

// NewIssueArchive creates an archive writing under prefix in bucket.
func NewIssueArchive(client S3API, bucket, prefix string) *IssueArchive {
	if prefix == "" {
		prefix = "newsletters"
	}
	return &IssueArchive{client: client, bucket: bucket, prefix: prefix}
}

// ObjectKey returns the key an issue is stored under.
func (a *IssueArchive) ObjectKey(issue domain.PublishedIssue) string {
	return path.Join(a.prefix, issue.PublishedAt.UTC().Format("2006/01/02"), issue.ID.String()+".json")
}

// Archive saves issue to S3.
func (a *IssueArchive) Archive(ctx context.Context, issue domain.PublishedIssue) error {
	data, err := json.MarshalIndent(issue, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling issue: %w", err)
	}

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(a.ObjectKey(issue)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("putting object to S3: %w", err)
	}
	return nil
}
