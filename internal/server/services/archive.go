package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/refinery/internal/logging"
	"github.com/dmitrijs2005/refinery/internal/server/config"
	"github.com/dmitrijs2005/refinery/internal/server/models"
	"github.com/dmitrijs2005/refinery/internal/timex"
	"github.com/google/uuid"
)

// ObjectPutter is the part of the S3 client the archive needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// NewS3Client builds an S3 client from the archive settings. Static
// credentials are used when an access key is configured, otherwise the
// default AWS credential chain applies.
func NewS3Client(ctx context.Context, c *config.Config) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(c.S3Region),
	}
	if c.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.S3AccessKey, c.S3SecretKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if c.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(c.S3BaseEndpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// ArchiveResult describes an uploaded archive object.
type ArchiveResult struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	Count  int    `json:"count"`
}

type archivedEvent struct {
	ID          string    `json:"id"`
	Origin      string    `json:"origin"`
	Identity    *string   `json:"identity"`
	Kind        string    `json:"kind"`
	Description string    `json:"description"`
	Severity    string    `json:"severity"`
	CreatedAt   time.Time `json:"created_at"`
}

// ArchiveService exports pages of the security event log to object storage.
type ArchiveService struct {
	audit  *AuditService
	client ObjectPutter
	bucket string
	clock  timex.Clock
	log    logging.Logger
}

func NewArchiveService(audit *AuditService, client ObjectPutter, bucket string, clock timex.Clock, log logging.Logger) *ArchiveService {
	return &ArchiveService{
		audit:  audit,
		client: client,
		bucket: bucket,
		clock:  clock,
		log:    log.With("module", "archive"),
	}
}

func (s *ArchiveService) objectKey() string {
	d := s.clock.Now().UTC()
	return fmt.Sprintf("security-events/%d/%02d/%02d/%s.json", d.Year(), d.Month(), d.Day(), uuid.New())
}

// Archive uploads the events selected by f as a JSON array and records an
// events_archived event.
func (s *ArchiveService) Archive(ctx context.Context, actor Actor, f models.EventFilter) (*ArchiveResult, error) {
	events, _, err := s.audit.List(ctx, f)
	if err != nil {
		return nil, err
	}

	out := make([]archivedEvent, 0, len(events))
	for _, e := range events {
		out = append(out, archivedEvent{
			ID:          e.ID,
			Origin:      e.Origin,
			Identity:    e.Identity,
			Kind:        string(e.Kind),
			Description: e.Description,
			Severity:    string(e.Severity),
			CreatedAt:   e.CreatedAt,
		})
	}
	body, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}

	key := s.objectKey()
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("error uploading archive: %w", err)
	}

	res := &ArchiveResult{Bucket: s.bucket, Key: key, Count: len(out)}
	s.log.Info(ctx, "security events archived", "key", key, "count", res.Count)

	var identity *string
	if actor.Name != "" {
		identity = &actor.Name
	}
	if err := s.audit.Record(ctx, &models.SecurityEvent{
		Origin:      actor.Origin,
		Identity:    identity,
		Kind:        models.EventEventsArchived,
		Severity:    models.SeverityLow,
		Description: fmt.Sprintf("%d events archived to s3://%s/%s", res.Count, s.bucket, key),
	}); err != nil {
		s.log.Error(ctx, "failed to record security event", "kind", models.EventEventsArchived, "error", err)
	}

	return res, nil
}
