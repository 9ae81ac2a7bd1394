package media

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/google/uuid"
)

// S3Uploader stores media objects in a single S3 bucket. Object keys are
// date-prefixed so a bucket listing stays navigable.
type S3Uploader struct {
	Bucket   string
	uploader *s3manager.Uploader
	client   *s3.S3
}

func NewS3Uploader(region, bucket string) (*S3Uploader, error) {
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is empty")
	}
	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return nil, fmt.Errorf("aws session: %w", err)
	}
	return &S3Uploader{
		Bucket:   bucket,
		uploader: s3manager.NewUploader(sess),
		client:   s3.New(sess),
	}, nil
}

func (u *S3Uploader) Upload(ctx context.Context, name, contentType string, body io.Reader) (*Asset, error) {
	key := fmt.Sprintf("%s/%s%s",
		time.Now().UTC().Format("2006/01/02"),
		uuid.NewString(),
		path.Ext(name),
	)

	out, err := u.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(u.Bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 upload: %w", err)
	}

	return &Asset{PublicID: key, URL: out.Location}, nil
}

func (u *S3Uploader) Delete(ctx context.Context, publicID string) error {
	if publicID == "" {
		return nil
	}
	_, err := u.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(u.Bucket),
		Key:    aws.String(publicID),
	})
	if err != nil {
		return fmt.Errorf("s3 delete: %w", err)
	}
	return nil
}
