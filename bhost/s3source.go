package bhost

import (
	"context"
	"io"

	"github.com/advdv/bserve"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cockroachdb/errors"
)

// S3API is the part of the S3 client used by [S3Source].
type S3API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source serves the objects of a bucket as resources. Object keys are namespaced with "/".
type S3Source struct {
	client S3API
	bucket string
	prefix string
}

// NewS3Source lists only the keys below prefix, which should match the root given to [bserve.NewResources].
func NewS3Source(client S3API, bucket, prefix string) *S3Source {
	return &S3Source{client: client, bucket: bucket, prefix: prefix}
}

func (s *S3Source) Separator() string { return "/" }

func (s *S3Source) List(ctx context.Context) ([]string, error) {
	var keys []string

	pages := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})

	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to list objects in bucket %q", s.bucket)
		}

		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if key == "" || key[len(key)-1] == '/' {
				continue
			}

			keys = append(keys, key)
		}
	}

	return keys, nil
}

func (s *S3Source) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get object %q", name)
	}

	return out.Body, nil
}

var _ bserve.ResourceSource = &S3Source{}
