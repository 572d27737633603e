package ingest

import (
	"context"
	"log/slog"

	"github.com/King47-code/safe-ride-backend/internal/geo"
	"github.com/King47-code/safe-ride-backend/internal/models"
	"github.com/King47-code/safe-ride-backend/internal/observability"
)

// Publisher is the slice of KafkaProducer the recorder depends on, kept
// narrow so tests can substitute a fake.
type Publisher interface {
	PublishLocation(loc models.DriverLocation) error
}

// Recorder fans one driver position report into the live geo index (serving
// nearby queries) and the kafka pipeline (feeding the consumer fleet). Both
// legs are best effort; a failed leg is logged and the other still runs.
// The websocket channel and the internal HTTP endpoint share this path.
type Recorder struct {
	Index    geo.DriverIndex
	Producer Publisher // optional; nil when kafka is not configured
	Logger   *slog.Logger
}

func (r *Recorder) Record(ctx context.Context, loc models.DriverLocation) {
	if r.Index != nil {
		r.Index.Upsert(loc)
	}
	if r.Producer != nil {
		if err := r.Producer.PublishLocation(loc); err != nil {
			r.Logger.Warn("location publish failed", "driver_id", loc.DriverID, "error", err)
		}
	}
	observability.LocationReports.Inc()
}
