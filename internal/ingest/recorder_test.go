package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/King47-code/safe-ride-backend/internal/geo"
	"github.com/King47-code/safe-ride-backend/internal/models"
)

type fakePublisher struct {
	published []models.DriverLocation
	err       error
}

func (f *fakePublisher) PublishLocation(loc models.DriverLocation) error {
	f.published = append(f.published, loc)
	return f.err
}

func report() models.DriverLocation {
	return models.DriverLocation{
		DriverID: "d1",
		Loc:      models.Coordinate{Lat: 5.6, Lng: -0.18},
		Online:   true,
		Updated:  time.Now().UTC(),
	}
}

func TestRecorderFeedsIndexAndPipeline(t *testing.T) {
	idx := geo.NewIndex()
	pub := &fakePublisher{}
	rec := &Recorder{Index: idx, Producer: pub, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	rec.Record(context.Background(), report())

	got := idx.Nearby(5.6, -0.18, 1)
	if len(got) != 1 || got[0].DriverID != "d1" {
		t.Fatalf("index not updated: %+v", got)
	}
	if len(pub.published) != 1 || pub.published[0].DriverID != "d1" {
		t.Fatalf("pipeline not fed: %+v", pub.published)
	}
}

func TestRecorderSurvivesPublishFailure(t *testing.T) {
	idx := geo.NewIndex()
	pub := &fakePublisher{err: errors.New("broker down")}
	rec := &Recorder{Index: idx, Producer: pub, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	rec.Record(context.Background(), report())

	if got := idx.Nearby(5.6, -0.18, 1); len(got) != 1 {
		t.Fatalf("index leg skipped after publish failure")
	}
}

func TestRecorderWithoutProducer(t *testing.T) {
	idx := geo.NewIndex()
	rec := &Recorder{Index: idx, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	rec.Record(context.Background(), report())

	if got := idx.Nearby(5.6, -0.18, 1); len(got) != 1 {
		t.Fatalf("index not updated without producer")
	}
}
