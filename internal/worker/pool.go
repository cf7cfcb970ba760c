package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/infra"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueReceipt    = "jobs:receipt"
	QueueStockAlert = "jobs:stock_alert"

	JobReceipt    = "receipt"
	JobStockAlert = "stock_alert"

	maxAttempts = 3
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Processor handles one job type. A returned error triggers a retry and,
// once attempts are exhausted, a move to the dead letter queue.
type Processor interface {
	Process(ctx context.Context, raw json.RawMessage) error
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueReceipt schedules the PDF receipt of a committed purchase.
func (d *Dispatcher) EnqueueReceipt(ctx context.Context, purchaseID uint) error {
	return d.enqueue(ctx, QueueReceipt, JobReceipt, ReceiptJobPayload{PurchaseID: purchaseID})
}

// EnqueueStockAlert schedules a low-stock mail for a product.
func (d *Dispatcher) EnqueueStockAlert(ctx context.Context, productID uuid.UUID) error {
	return d.enqueue(ctx, QueueStockAlert, JobStockAlert, StockAlertJobPayload{ProductID: productID.String()})
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	encoded, err := encodeJob(jobType, payload)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

func encodeJob(jobType string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Job{Type: jobType, Payload: data})
}

// Pool consumes the job queues with a fixed number of goroutines.
type Pool struct {
	rdb      *redis.Client
	handlers map[string]Processor
	metrics  *infra.Metrics
	backoff  time.Duration

	// pollBackoff is the pause after a failed BRPOP, e.g. while Redis is down.
	pollBackoff time.Duration
}

func NewPool(rdb *redis.Client, metrics *infra.Metrics) *Pool {
	return &Pool{
		rdb:         rdb,
		handlers:    make(map[string]Processor),
		metrics:     metrics,
		backoff:     time.Second,
		pollBackoff: time.Second,
	}
}

// Register binds a processor to a job type. Must be called before Start.
func (p *Pool) Register(jobType string, proc Processor) {
	p.handlers[jobType] = proc
}

// Start launches numWorkers goroutines consuming both queues.
// Each goroutine blocks on BRPOP, so idle workers use no CPU.
func (p *Pool) Start(ctx context.Context, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		go p.run(ctx, i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func (p *Pool) run(ctx context.Context, id int) {
	queues := []string{QueueReceipt, QueueStockAlert}
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop: waits up to 5s then loops to check ctx
			result, err := p.rdb.BRPop(ctx, 5*time.Second, queues...).Result()
			if errors.Is(err, redis.Nil) {
				continue
			}
			if err != nil {
				if ctx.Err() != nil {
					continue
				}
				log.Warn().Err(err).Int("worker", id).Msg("dequeue failed")
				select {
				case <-ctx.Done():
				case <-time.After(p.pollBackoff):
				}
				continue
			}
			if len(result) < 2 {
				continue
			}
			p.process(ctx, result[0], result[1])
		}
	}
}

func (p *Pool) process(ctx context.Context, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		return
	}
	proc, ok := p.handlers[job.Type]
	if !ok {
		SendToDLQ(ctx, p.rdb, queue, job, "no processor registered", 0)
		return
	}

	err := withRetry(ctx, maxAttempts, p.backoff, func(attempt int) error {
		if err := proc.Process(ctx, job.Payload); err != nil {
			log.Warn().Err(err).Str("type", job.Type).Int("attempt", attempt+1).Msg("job attempt failed")
			return err
		}
		return nil
	})
	p.metrics.RecordJob(job.Type, err == nil)
	if err != nil {
		SendToDLQ(ctx, p.rdb, queue, job, fmt.Sprintf("%v", err), maxAttempts)
		return
	}
	log.Debug().Str("type", job.Type).Str("queue", queue).Msg("job processed")
}
