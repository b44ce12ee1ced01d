package audit

import (
	"context"
	"time"

	"github.com/nerrad567/coursebook-gateway/internal/broker"
	"github.com/nerrad567/coursebook-gateway/internal/infrastructure/logging"
	"github.com/nerrad567/coursebook-gateway/internal/pending"
)

// DefaultQueueSize bounds the number of records waiting to be written.
const DefaultQueueSize = 256

// Recorder queues audit records and writes them serially from Run.
// Enqueueing never blocks: when the queue is full the record is dropped
// with a warning.
//
// It implements pending.Observer and broker.FailureObserver.
type Recorder struct {
	repo   Repository
	logger *logging.Logger
	queue  chan *Record
}

// NewRecorder creates a Recorder over repo with the given queue size.
func NewRecorder(repo Repository, logger *logging.Logger, size int) *Recorder {
	if logger == nil {
		logger = logging.Discard()
	}
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Recorder{
		repo:   repo,
		logger: logger.With("component", "audit"),
		queue:  make(chan *Record, size),
	}
}

// Enqueue offers rec to the writer.
func (r *Recorder) Enqueue(rec *Record) {
	select {
	case r.queue <- rec:
	default:
		r.logger.Warn("audit queue full, dropping record",
			"action", rec.Action,
			"disposition", rec.Disposition,
		)
	}
}

// EntryClosed implements pending.Observer.
func (r *Recorder) EntryClosed(c pending.Closure) {
	r.Enqueue(&Record{
		CorrelationID: c.ID,
		Action:        string(c.Kind),
		Disposition:   string(c.Disposition),
		Status:        c.Status,
		WaitMS:        float64(c.Age.Microseconds()) / 1000,
	})
}

// PublishFailed implements broker.FailureObserver.
func (r *Recorder) PublishFailed(routingKey string, kind broker.PublishErrorKind) {
	r.Enqueue(&Record{
		Action:      "PUBLISH",
		Disposition: DispositionPublishFailed,
		RoutingKey:  routingKey,
		Detail:      kind.String(),
	})
}

// Run writes queued records until ctx is done, then drains what is left.
func (r *Recorder) Run(ctx context.Context) {
	for {
		select {
		case rec := <-r.queue:
			r.write(rec)
		case <-ctx.Done():
			for {
				select {
				case rec := <-r.queue:
					r.write(rec)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(rec *Record) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.repo.Create(ctx, rec); err != nil {
		r.logger.Error("audit write failed",
			"action", rec.Action,
			"disposition", rec.Disposition,
			"error", err,
		)
	}
}
