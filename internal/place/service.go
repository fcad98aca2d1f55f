package place

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/ssherwood/placeservice/internal/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/ssherwood/placeservice/internal/place"

type Service struct {
	store     Store
	publisher Publisher
	images    ImageStore
	// also reject out-of-range coordinates
	strict    bool
	tracer    trace.Tracer
	mutations metric.Int64Counter
}

type ServiceOption func(*Service)

func WithPublisher(p Publisher) ServiceOption {
	return func(s *Service) { s.publisher = p }
}

func WithImageStore(images ImageStore) ServiceOption {
	return func(s *Service) { s.images = images }
}

func WithStrictCoordinates(strict bool) ServiceOption {
	return func(s *Service) { s.strict = strict }
}

func NewService(store Store, opts ...ServiceOption) *Service {
	s := &Service{
		store:     store,
		publisher: LogPublisher{},
		tracer:    otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(s)
	}

	counter, err := otel.Meter(instrumentationName).Int64Counter("place.mutations",
		metric.WithDescription("The number of successful place mutations"),
		metric.WithUnit("{mutation}"))
	if err != nil {
		slog.Warn("Unable to create place.mutations counter", config.ErrAttr(err))
	}
	s.mutations = counter
	return s
}

func (s *Service) Create(ctx context.Context, p *Place) (*Place, error) {
	ctx, span := s.tracer.Start(ctx, "place.Create", trace.WithAttributes(attribute.String("place.name", p.Name)))
	defer span.End()

	if err := s.check(p); err != nil {
		return nil, recordErr(span, err)
	}

	created, err := s.store.Create(ctx, p)
	if err != nil {
		return nil, recordErr(span, err)
	}

	s.changed(ctx, NewEvent(EventCreated, created.Name, created))
	return created, nil
}

func (s *Service) Get(ctx context.Context, name string) (*Place, error) {
	ctx, span := s.tracer.Start(ctx, "place.Get", trace.WithAttributes(attribute.String("place.name", name)))
	defer span.End()

	p, err := s.store.Get(ctx, name)
	if err != nil {
		return nil, recordErr(span, err)
	}
	return p, nil
}

func (s *Service) List(ctx context.Context) ([]Place, error) {
	ctx, span := s.tracer.Start(ctx, "place.List")
	defer span.End()

	places, err := s.store.List(ctx)
	if err != nil {
		return nil, recordErr(span, err)
	}
	span.SetAttributes(attribute.Int("place.count", len(places)))
	return places, nil
}

// Update replaces the place stored under name. An empty Image keeps the stored image,
// so updates sent in the legacy form do not drop it.
func (s *Service) Update(ctx context.Context, name string, p *Place) (*Place, error) {
	ctx, span := s.tracer.Start(ctx, "place.Update", trace.WithAttributes(attribute.String("place.name", name)))
	defer span.End()

	if err := s.check(p); err != nil {
		return nil, recordErr(span, err)
	}

	if p.Image == "" {
		current, err := s.store.Get(ctx, name)
		if err != nil {
			return nil, recordErr(span, err)
		}
		replacement := *p
		replacement.Image = current.Image
		p = &replacement
	}

	updated, err := s.store.Update(ctx, name, p)
	if err != nil {
		return nil, recordErr(span, err)
	}

	// keyed by the new name so later events for the place share its partition
	event := NewEvent(EventUpdated, updated.Name, updated)
	if updated.Name != name {
		event.PreviousName = name
	}
	s.changed(ctx, event)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, name string) error {
	ctx, span := s.tracer.Start(ctx, "place.Delete", trace.WithAttributes(attribute.String("place.name", name)))
	defer span.End()

	if err := s.store.Delete(ctx, name); err != nil {
		return recordErr(span, err)
	}

	s.changed(ctx, NewEvent(EventDeleted, name, nil))
	return nil
}

// PutImage stores the image asset and points the place at it.
func (s *Service) PutImage(ctx context.Context, name string, r io.Reader, size int64, contentType string) (*Place, error) {
	ctx, span := s.tracer.Start(ctx, "place.PutImage", trace.WithAttributes(attribute.String("place.name", name)))
	defer span.End()

	if s.images == nil {
		return nil, recordErr(span, ErrImagesDisabled)
	}

	p, err := s.store.Get(ctx, name)
	if err != nil {
		return nil, recordErr(span, err)
	}

	key, err := s.images.PutImage(ctx, name, r, size, contentType)
	if err != nil {
		return nil, recordErr(span, err)
	}
	previous := p.Image
	p.Image = key

	updated, err := s.store.Update(ctx, name, p)
	if err != nil {
		s.removeImage(ctx, key)
		return nil, recordErr(span, err)
	}

	if previous != key && isImageKey(previous) {
		s.removeImage(ctx, previous)
	}

	s.changed(ctx, NewEvent(EventUpdated, updated.Name, updated))
	return updated, nil
}

// removeImage deletes an object no place refers to any more. Failures leave an orphan
// and are only logged.
func (s *Service) removeImage(ctx context.Context, key string) {
	if err := s.images.DeleteImage(ctx, key); err != nil {
		slog.Warn("Unable to remove place image", slog.String("image.key", key), config.ErrAttr(err))
	}
}

func (s *Service) GetImage(ctx context.Context, name string) (io.ReadCloser, string, error) {
	ctx, span := s.tracer.Start(ctx, "place.GetImage", trace.WithAttributes(attribute.String("place.name", name)))
	defer span.End()

	if s.images == nil {
		return nil, "", recordErr(span, ErrImagesDisabled)
	}

	p, err := s.store.Get(ctx, name)
	if err != nil {
		return nil, "", recordErr(span, err)
	}
	if p.Image == "" {
		return nil, "", recordErr(span, fmt.Errorf("%w: %s has no image", ErrNotFound, name))
	}

	body, contentType, err := s.images.GetImage(ctx, p.Image)
	if err != nil {
		return nil, "", recordErr(span, err)
	}
	return body, contentType, nil
}

func (s *Service) check(p *Place) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if s.strict {
		return p.CheckCoordinates()
	}
	return nil
}

// changed counts the mutation and publishes it. A failed publish does not undo the
// mutation.
func (s *Service) changed(ctx context.Context, e Event) {
	if s.mutations != nil {
		s.mutations.Add(ctx, 1, metric.WithAttributes(attribute.String("event.type", string(e.Type))))
	}
	if err := s.publisher.Publish(ctx, e); err != nil {
		slog.Warn("Unable to publish place event",
			slog.String("event.type", string(e.Type)), slog.String("place.name", e.Name), config.ErrAttr(err))
	}
}

func recordErr(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
