package services

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/refinery/internal/logging"
	"github.com/dmitrijs2005/refinery/internal/server/config"
	"github.com/dmitrijs2005/refinery/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	in   *s3.PutObjectInput
	body []byte
	err  error
}

func (f *fakePutter) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.in = in
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.body = b
	return &s3.PutObjectOutput{}, nil
}

func TestArchive(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	for _, sev := range []models.Severity{models.SeverityLow, models.SeverityCritical, models.SeverityCritical} {
		require.NoError(t, e.audit.Record(ctx, &models.SecurityEvent{Origin: "10.0.0.1", Kind: models.EventInjectionAttempt, Severity: sev}))
	}

	putter := &fakePutter{}
	svc := NewArchiveService(e.audit, putter, "audit-bucket", e.clock, logging.Discard())

	res, err := svc.Archive(ctx, Actor{Name: "sec", Origin: "10.9.9.9"}, models.EventFilter{Severity: models.SeverityCritical})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)
	assert.Equal(t, "audit-bucket", res.Bucket)
	assert.True(t, strings.HasPrefix(res.Key, "security-events/2024/05/15/"), res.Key)

	require.NotNil(t, putter.in)
	assert.Equal(t, "audit-bucket", aws.ToString(putter.in.Bucket))
	assert.Equal(t, res.Key, aws.ToString(putter.in.Key))

	var body []map[string]any
	require.NoError(t, json.Unmarshal(putter.body, &body))
	require.Len(t, body, 2)
	assert.Equal(t, "critical", body[0]["severity"])

	evs := e.events(t, models.EventEventsArchived)
	require.Len(t, evs, 1)
	assert.Equal(t, "sec", *evs[0].Identity)
}

func TestArchive_UploadError(t *testing.T) {
	e := newEnv(t)
	svc := NewArchiveService(e.audit, &fakePutter{err: errBoom}, "b", e.clock, logging.Discard())

	_, err := svc.Archive(context.Background(), Actor{Name: "sec"}, models.EventFilter{})
	assert.ErrorIs(t, err, errBoom)
	assert.Empty(t, e.events(t, models.EventEventsArchived))
}

func TestNewS3Client(t *testing.T) {
	c := &config.Config{}
	c.LoadDefaults()
	c.S3AccessKey = "key"
	c.S3SecretKey = "secret"
	c.S3BaseEndpoint = "http://127.0.0.1:9000"

	client, err := NewS3Client(context.Background(), c)
	require.NoError(t, err)
	assert.NotNil(t, client)

	var _ ObjectPutter = client
}
