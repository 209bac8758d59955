package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/yairfalse/warden/pkg/resource"
)

const listBucketsPageSize = 1000

// Storage reads and updates S3 bucket versioning.
type Storage struct {
	client S3API
}

// NewStorage wraps an S3 client.
func NewStorage(client S3API) *Storage {
	return &Storage{client: client}
}

// ListBuckets returns every bucket owned by the caller.
func (s *Storage) ListBuckets(ctx context.Context) ([]resource.Bucket, error) {
	input := &s3.ListBucketsInput{MaxBuckets: aws.Int32(listBucketsPageSize)}

	var buckets []resource.Bucket
	for {
		output, err := s.client.ListBuckets(ctx, input)
		if err != nil {
			return nil, wrapError("s3", "ListBuckets", "", err)
		}

		for _, b := range output.Buckets {
			buckets = append(buckets, resource.Bucket{
				Name:   aws.ToString(b.Name),
				Region: aws.ToString(b.BucketRegion),
			})
		}

		if aws.ToString(output.ContinuationToken) == "" {
			break
		}
		input.ContinuationToken = output.ContinuationToken
	}

	return buckets, nil
}

// Versioning returns the bucket's versioning status. A bucket that never had
// versioning configured reports resource.VersioningOff.
func (s *Storage) Versioning(ctx context.Context, bucket string) (resource.VersioningStatus, error) {
	output, err := s.client.GetBucketVersioning(ctx, &s3.GetBucketVersioningInput{Bucket: aws.String(bucket)})
	if err != nil {
		return resource.VersioningOff, wrapError("s3", "GetBucketVersioning", bucket, err)
	}
	return resource.VersioningStatus(output.Status), nil
}

// EnableVersioning turns versioning on.
func (s *Storage) EnableVersioning(ctx context.Context, bucket string) error {
	_, err := s.client.PutBucketVersioning(ctx, &s3.PutBucketVersioningInput{
		Bucket: aws.String(bucket),
		VersioningConfiguration: &s3types.VersioningConfiguration{
			Status: s3types.BucketVersioningStatusEnabled,
		},
	})
	return wrapError("s3", "PutBucketVersioning", bucket, err)
}
