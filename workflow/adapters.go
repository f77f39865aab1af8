package workflow

import (
	"context"
	"path"

	"github.com/bizcheckau/reports_backend/config"
	"github.com/bizcheckau/reports_backend/utils"
)

// RawStore keeps upstream documents as received.
type RawStore interface {
	Save(ctx context.Context, key string, raw []byte) error
	Read(ctx context.Context, key string) ([]byte, error)
}

// Publisher announces reports whose rows are stored.
type Publisher interface {
	PublishReportReady(ctx context.Context, msg config.ReportReadyMessage) error
}

// GCSRawStore stores raw documents in one bucket.
type GCSRawStore struct {
	Bucket string
}

func (s GCSRawStore) Save(ctx context.Context, key string, raw []byte) error {
	return utils.SaveObjectToGCS(ctx, s.Bucket, key, raw, "application/json")
}

func (s GCSRawStore) Read(ctx context.Context, key string) ([]byte, error) {
	return utils.ReadObjectFromGCS(ctx, s.Bucket, key)
}

// RawPayloadKey is the object key of a report's upstream document.
func RawPayloadKey(uuid string) string {
	return path.Join("reports", uuid+".json")
}

type PubSubPublisher struct{}

func (PubSubPublisher) PublishReportReady(ctx context.Context, msg config.ReportReadyMessage) error {
	_, err := config.PublishReportReady(ctx, msg)
	return err
}
