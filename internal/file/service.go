package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/ndunkgo99/Viyey-worker/internal/docstore"
	"github.com/ndunkgo99/Viyey-worker/internal/shortener"
	"github.com/ndunkgo99/Viyey-worker/internal/stats"
	"github.com/ndunkgo99/Viyey-worker/internal/storage"
)

// ErrInvalidInput is returned before any remote call when the request is unusable.
var ErrInvalidInput = errors.New("invalid input")

// Step names a stage of an orchestration.
type Step string

const (
	StepStoreObject     Step = "store object"
	StepShortenLink     Step = "shorten link"
	StepPersistMetadata Step = "persist metadata"
	StepAdjustAggregate Step = "adjust aggregate"
	StepLookupMetadata  Step = "lookup metadata"
	StepDeleteObject    Step = "delete object"
	StepDeleteMetadata  Step = "delete metadata"
)

// StepError is a failed required step. Compensation holds the error of the
// rollback attempted afterwards, if that failed too; it never replaces Err.
type StepError struct {
	Step         Step
	Err          error
	Compensation error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Outcome records how an optional step ended.
type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// UploadInput is a single incoming file.
type UploadInput struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// UploadResult is returned once the object and its metadata are committed.
type UploadResult struct {
	Record    Record
	Shorten   Outcome
	Aggregate Outcome
}

// DeleteResult is returned once the metadata document is gone.
type DeleteResult struct {
	ID string
	// SizeBytes is the size taken off the aggregate; 0 when no metadata existed.
	SizeBytes int64
	Message   string
	Lookup    Outcome
	Object    Outcome
	Aggregate Outcome
}

// Timeouts bound individual remote calls.
type Timeouts struct {
	// Remote applies to metadata, shortener, aggregate and delete calls.
	Remote time.Duration
	// Transfer applies to the call carrying the file bytes.
	Transfer time.Duration
}

// Service runs upload and delete orchestrations. Steps run strictly in order.
// Only storing the object or persisting its metadata fails an upload, and only
// deleting the metadata fails a delete.
type Service struct {
	storage    storage.Storage
	docs       docstore.Store
	shortener  shortener.Shortener
	counter    *stats.Counter
	collection string
	timeouts   Timeouts
	logger     log.Logger
	now        func() time.Time
}

// NewService creates a file Service.
func NewService(
	store storage.Storage,
	docs docstore.Store,
	short shortener.Shortener,
	counter *stats.Counter,
	collection string,
	timeouts Timeouts,
	logger log.Logger,
) *Service {
	if short == nil {
		short = shortener.Disabled{}
	}
	return &Service{
		storage:    store,
		docs:       docs,
		shortener:  short,
		counter:    counter,
		collection: collection,
		timeouts:   timeouts,
		logger:     logger,
		now:        time.Now,
	}
}

// Upload stores the object, optionally shortens its public URL, persists the
// metadata record and bumps the aggregate.
func (s *Service) Upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	if strings.TrimSpace(in.Name) == "" || in.Body == nil {
		return nil, fmt.Errorf("%w: file is required", ErrInvalidInput)
	}
	if in.Size < 0 {
		return nil, fmt.Errorf("%w: negative size", ErrInvalidInput)
	}
	logger := log.With(s.logger, "file", in.Name, "size", humanize.Bytes(uint64(in.Size)))

	loc, err := s.storeObject(ctx, in, logger)
	if err != nil {
		countStep(StepStoreObject, OutcomeFailed)
		level.Error(logger).Log("msg", "upload aborted", "step", StepStoreObject, "err", err)
		return nil, err
	}
	countStep(StepStoreObject, OutcomeOK)
	logger = log.With(logger, "file_id", loc.Key)

	shortURL, shortened := s.shorten(ctx, loc.URL, logger)

	rec := Record{
		ID:         loc.Key,
		Name:       in.Name,
		SizeBytes:  in.Size,
		Storage:    loc,
		ShortURL:   shortURL,
		UploadedAt: s.now().UTC(),
	}

	if err := s.within(ctx, s.timeouts.Remote, func(ctx context.Context) error {
		return s.docs.Patch(ctx, s.path(rec.ID), rec.document())
	}); err != nil {
		countStep(StepPersistMetadata, OutcomeFailed)
		stepErr := &StepError{Step: StepPersistMetadata, Err: err}
		stepErr.Compensation = s.compensate(ctx, loc, logger)
		level.Error(logger).Log("msg", "upload aborted", "step", StepPersistMetadata, "err", err)
		return nil, stepErr
	}
	countStep(StepPersistMetadata, OutcomeOK)

	aggregate := s.adjust(ctx, rec.SizeBytes, 1, logger)

	level.Info(logger).Log("msg", "file uploaded",
		"backend", loc.Backend,
		"shorten", shortened,
		"aggregate", aggregate,
	)
	return &UploadResult{Record: rec, Shorten: shortened, Aggregate: aggregate}, nil
}

// Delete removes the object, its metadata document and its share of the aggregate.
// A missing object or metadata document does not fail the call.
func (s *Service) Delete(ctx context.Context, id string) (*DeleteResult, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: fileId is required", ErrInvalidInput)
	}
	if strings.Contains(id, "/") {
		return nil, fmt.Errorf("%w: malformed fileId", ErrInvalidInput)
	}
	logger := log.With(s.logger, "file_id", id)
	res := &DeleteResult{ID: id}

	loc := s.storage.Locate(id)
	var doc docstore.Document
	err := s.within(ctx, s.timeouts.Remote, func(ctx context.Context) error {
		var err error
		doc, err = s.docs.Get(ctx, s.path(id))
		return err
	})
	switch {
	case err == nil:
		rec := recordFromDocument(id, doc)
		res.SizeBytes = rec.SizeBytes
		loc.Key = rec.Storage.Key
		res.Lookup = OutcomeOK
	case errors.Is(err, docstore.ErrNotFound):
		level.Warn(logger).Log("msg", "no metadata for file, deleting with size 0")
		res.Lookup = OutcomeSkipped
	default:
		level.Warn(logger).Log("msg", "metadata lookup failed, deleting with size 0", "err", err)
		res.Lookup = OutcomeFailed
	}
	countStep(StepLookupMetadata, res.Lookup)

	if err := s.within(ctx, s.timeouts.Remote, func(ctx context.Context) error {
		return s.storage.Delete(ctx, loc)
	}); err != nil {
		level.Error(logger).Log("msg", "object delete failed, continuing", "key", loc.Key, "err", err)
		res.Object = OutcomeFailed
	} else {
		res.Object = OutcomeOK
	}
	countStep(StepDeleteObject, res.Object)

	if err := s.within(ctx, s.timeouts.Remote, func(ctx context.Context) error {
		return s.docs.Delete(ctx, s.path(id))
	}); err != nil {
		countStep(StepDeleteMetadata, OutcomeFailed)
		level.Error(logger).Log("msg", "delete aborted", "step", StepDeleteMetadata, "err", err)
		return nil, &StepError{Step: StepDeleteMetadata, Err: err}
	}
	countStep(StepDeleteMetadata, OutcomeOK)

	res.Aggregate = s.adjust(ctx, -res.SizeBytes, -1, logger)
	res.Message = fmt.Sprintf("File %s deleted", id)

	level.Info(logger).Log("msg", "file deleted",
		"size", humanize.Bytes(uint64(res.SizeBytes)),
		"object", res.Object,
		"aggregate", res.Aggregate,
	)
	return res, nil
}

// storeObject writes the bytes using whichever upload capability the backend has.
func (s *Service) storeObject(ctx context.Context, in UploadInput, logger log.Logger) (storage.Locator, error) {
	obj := storage.Object{Name: in.Name, ContentType: in.ContentType, Size: in.Size, Body: in.Body}

	switch backend := s.storage.(type) {
	case storage.TwoPhaseUploader:
		var loc storage.Locator
		if err := s.within(ctx, s.timeouts.Remote, func(ctx context.Context) error {
			var err error
			loc, err = backend.Reserve(ctx, in.Name)
			return err
		}); err != nil {
			return storage.Locator{}, &StepError{Step: StepStoreObject, Err: fmt.Errorf("reserve: %w", err)}
		}

		if err := s.within(ctx, s.timeouts.Transfer, func(ctx context.Context) error {
			return backend.Upload(ctx, loc, obj)
		}); err != nil {
			stepErr := &StepError{Step: StepStoreObject, Err: fmt.Errorf("upload: %w", err)}
			stepErr.Compensation = s.compensate(ctx, loc, log.With(logger, "file_id", loc.Key))
			return storage.Locator{}, stepErr
		}
		return loc, nil

	case storage.DirectUploader:
		var loc storage.Locator
		if err := s.within(ctx, s.timeouts.Transfer, func(ctx context.Context) error {
			var err error
			loc, err = backend.Put(ctx, obj)
			return err
		}); err != nil {
			return storage.Locator{}, &StepError{Step: StepStoreObject, Err: err}
		}
		return loc, nil
	}

	return storage.Locator{}, &StepError{
		Step: StepStoreObject,
		Err:  fmt.Errorf("storage backend %T has no upload capability", s.storage),
	}
}

// shorten never fails the upload; a failure or a disabled shortener yields "".
func (s *Service) shorten(ctx context.Context, target string, logger log.Logger) (string, Outcome) {
	var link string
	err := s.within(ctx, s.timeouts.Remote, func(ctx context.Context) error {
		var err error
		link, err = s.shortener.Shorten(ctx, target)
		return err
	})

	switch {
	case err == nil:
		countStep(StepShortenLink, OutcomeOK)
		return link, OutcomeOK
	case errors.Is(err, shortener.ErrDisabled):
		countStep(StepShortenLink, OutcomeSkipped)
		return "", OutcomeSkipped
	default:
		countStep(StepShortenLink, OutcomeFailed)
		level.Warn(logger).Log("msg", "link shortening failed, continuing without short url", "err", err)
		return "", OutcomeFailed
	}
}

// adjust never fails the surrounding operation; the aggregate is allowed to drift.
func (s *Service) adjust(ctx context.Context, deltaBytes, deltaCount int64, logger log.Logger) Outcome {
	err := s.within(ctx, s.timeouts.Remote, func(ctx context.Context) error {
		_, err := s.counter.Adjust(ctx, deltaBytes, deltaCount)
		return err
	})
	if err != nil {
		countStep(StepAdjustAggregate, OutcomeFailed)
		level.Warn(logger).Log("msg", "aggregate adjustment failed",
			"delta_bytes", deltaBytes,
			"delta_count", deltaCount,
			"err", err,
		)
		return OutcomeFailed
	}
	countStep(StepAdjustAggregate, OutcomeOK)
	return OutcomeOK
}

// compensate deletes an object committed by an earlier step. It runs even if the
// caller's context is already cancelled. A failure leaves an orphaned object that
// has to be reconciled by an operator, so it is logged with the object key.
func (s *Service) compensate(ctx context.Context, loc storage.Locator, logger log.Logger) error {
	err := s.within(context.WithoutCancel(ctx), s.timeouts.Remote, func(ctx context.Context) error {
		return s.storage.Delete(ctx, loc)
	})
	if err != nil {
		compensationsTotal.WithLabelValues("failed").Inc()
		level.Error(logger).Log("msg", "compensating delete failed, object orphaned",
			"backend", loc.Backend,
			"library", loc.Library,
			"key", loc.Key,
			"err", err,
		)
		return err
	}
	compensationsTotal.WithLabelValues("ok").Inc()
	level.Info(logger).Log("msg", "compensating delete succeeded", "key", loc.Key)
	return nil
}

func (s *Service) within(ctx context.Context, d time.Duration, fn func(context.Context) error) error {
	if d <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return fn(ctx)
}

func (s *Service) path(id string) string {
	return docstore.Path(s.collection, id)
}
