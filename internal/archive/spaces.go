// Package archive stores raw detail-page HTML in S3-compatible object
// storage for later re-analysis when selectors drift.
package archive

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/sirupsen/logrus"

	"gigleads/internal/config"
)

// SpacesArchiver uploads one HTML object per listing to a DigitalOcean
// Spaces (S3-compatible) bucket.
type SpacesArchiver struct {
	client     *s3.S3
	bucketName string
	logger     *logrus.Logger
}

// NewSpacesArchiver configures the S3 client against the Spaces endpoint.
func NewSpacesArchiver(cfg *config.Config, logger *logrus.Logger) (*SpacesArchiver, error) {
	if cfg.Archive.AccessKeyID == "" || cfg.Archive.AccessKeySecret == "" {
		return nil, fmt.Errorf("archive credentials are required")
	}
	if cfg.Archive.BucketName == "" {
		return nil, fmt.Errorf("archive bucket name is required")
	}

	endpoint := fmt.Sprintf("https://%s.digitaloceanspaces.com", cfg.Archive.Region)

	sess, err := session.NewSession(&aws.Config{
		Credentials: credentials.NewStaticCredentials(
			cfg.Archive.AccessKeyID,
			cfg.Archive.AccessKeySecret,
			"",
		),
		Endpoint:         aws.String(endpoint),
		Region:           aws.String(cfg.Archive.Region),
		S3ForcePathStyle: aws.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create archive session: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"bucket":   cfg.Archive.BucketName,
		"endpoint": endpoint,
	}).Info("HTML archiver initialized")

	return &SpacesArchiver{
		client:     s3.New(sess),
		bucketName: cfg.Archive.BucketName,
		logger:     logger,
	}, nil
}

// ArchiveListing uploads the raw HTML of one listing's detail page.
func (a *SpacesArchiver) ArchiveListing(ctx context.Context, listingID, html string) error {
	objectKey := fmt.Sprintf("listings/raw/%s.html", listingID)

	_, err := a.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucketName),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader([]byte(html)),
		ContentType: aws.String("text/html; charset=utf-8"),
		ACL:         aws.String("private"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", objectKey, err)
	}

	a.logger.WithFields(logrus.Fields{
		"listing_id": listingID,
		"object_key": objectKey,
		"size_bytes": len(html),
	}).Debug("Archived detail HTML")
	return nil
}
