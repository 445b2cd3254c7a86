// Package s3sink is a Sink implementation that stages a resumable
// download on local disk (S3 objects cannot be written out of order)
// and, on Finalize, ships the finished file to S3 via the SDK's
// managed uploader -- "download resumably to disk, then publish to
// object storage."
package s3sink

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/tanq16/fetchctl/internal/sink/filesink"
)

// Destination identifies the S3 object the staged file is uploaded to
// once the download completes.
type Destination struct {
	Bucket  string
	Key     string
	Profile string
}

// Sink stages writes in a local file and uploads it to S3 on Close.
type Sink struct {
	local *filesink.Sink
	dest  Destination

	uploaded bool
}

// Open creates (or reopens, for resume) localPath as the staging file
// for an eventual upload to dest.
func Open(localPath string, dest Destination) (*Sink, error) {
	local, err := filesink.Open(localPath)
	if err != nil {
		return nil, err
	}
	return &Sink{local: local, dest: dest}, nil
}

func (s *Sink) Write(p []byte) (int, error) { return s.local.Write(p) }

func (s *Sink) Seek(offset int64, whence int) (int64, error) { return s.local.Seek(offset, whence) }

func (s *Sink) Flush() error { return s.local.Flush() }

// Close flushes and uploads the staged file to S3, then removes the
// local copy. Safe to call more than once; the upload only happens
// once.
func (s *Sink) Close() error {
	if s.uploaded {
		return nil
	}
	path := s.local.Path()
	if err := s.local.Close(); err != nil {
		return err
	}
	if err := s.upload(path); err != nil {
		return err
	}
	s.uploaded = true
	return os.Remove(path)
}

func (s *Sink) upload(path string) error {
	var opts []func(*config.LoadOptions) error
	if s.dest.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(s.dest.Profile))
	}
	cfg, err := config.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return fmt.Errorf("loading AWS config: %w", err)
	}
	client := s3.NewFromConfig(cfg)
	uploader := manager.NewUploader(client)

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = uploader.Upload(context.Background(), &s3.PutObjectInput{
		Bucket: aws.String(s.dest.Bucket),
		Key:    aws.String(s.dest.Key),
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("uploading to s3://%s/%s: %w", s.dest.Bucket, s.dest.Key, err)
	}
	return nil
}
