package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/suPer8Hu/mirror/internal/ai"
	"github.com/suPer8Hu/mirror/internal/config"
	"github.com/suPer8Hu/mirror/internal/db"
	"github.com/suPer8Hu/mirror/internal/logging"
	"github.com/suPer8Hu/mirror/internal/memory"
	"github.com/suPer8Hu/mirror/internal/store/rabbitmq"
)

const (
	maxAttempts = 3
	retryDelay  = 5 * time.Second
	jobTimeout  = 30 * time.Second
)

type recorder interface {
	Record(ctx context.Context, userID uint64, turn ai.Message) (bool, error)
}

type retrier interface {
	Retry(ctx context.Context, body []byte, attempt int, delay time.Duration) error
}

var errBadMessage = errors.New("bad message")

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		_, _ = os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatal("db migrate", zap.Error(err))
	}

	rec := memory.NewRecorder(memory.NewRepo(gdb), memory.DefaultExtractor())

	pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
	if err != nil {
		log.Fatal("rabbit publisher", zap.Error(err))
	}
	defer pub.Close()

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatal("rabbit dial", zap.Error(err))
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatal("rabbit channel", zap.Error(err))
	}
	defer ch.Close()

	if err := rabbitmq.DeclareTopology(ch, cfg.RabbitQueue); err != nil {
		log.Fatal("queue declare", zap.Error(err))
	}

	//  strict concurrency control
	concurrency := cfg.WorkerConcurrency
	if err := ch.Qos(concurrency, 0, false); err != nil {
		log.Fatal("qos", zap.Error(err))
	}

	msgs, err := ch.Consume(cfg.RabbitQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatal("consume", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("worker started", zap.String("queue", cfg.RabbitQueue), zap.Int("concurrency", concurrency))

	// worker pool
	jobs := make(chan amqp.Delivery, concurrency*2)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			wlog := log.With(zap.Int("worker", workerID))
			for d := range jobs {
				start := time.Now()
				stored := runJob(wlog, rec, pub, deliveryAcker{d}, d.Body, rabbitmq.Attempt(d.Headers))
				if stored {
					wlog.Debug("memory stored")
				}
				if time.Since(start) > 2*time.Second {
					wlog.Warn("slow memory job", zap.Duration("cost", time.Since(start)))
				}
			}
		}(i)
	}

	// dispatcher
	for {
		select {
		case <-ctx.Done():
			log.Info("worker shutting down")
			close(jobs)
			wg.Wait()
			return

		case d, ok := <-msgs:
			if !ok {
				log.Warn("delivery channel closed")
				close(jobs)
				wg.Wait()
				return
			}
			jobs <- d
		}
	}
}

// handleJob decodes one delivery and runs the inline recorder on it.
func handleJob(ctx context.Context, rec recorder, body []byte) (bool, error) {
	job, err := rabbitmq.DecodeJob(body)
	if err != nil {
		return false, errors.Join(errBadMessage, err)
	}
	role := job.Role
	if role == "" {
		role = ai.RoleUser
	}
	return rec.Record(ctx, job.UserID, ai.Message{Role: role, Content: job.Content})
}

type acker interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// runJob handles one delivery under its own deadline, detached from the
// shutdown signal, so jobs already handed to a worker finish during a drain.
func runJob(log *zap.Logger, rec recorder, r retrier, a acker, body []byte, attempt int) bool {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	stored, err := handleJob(ctx, rec, body)
	settleWith(ctx, log, r, a, body, attempt, err)
	return stored
}

// settleWith acks successes, requeues jobs interrupted by cancellation, retries
// transient failures up to maxAttempts and dead-letters everything else.
func settleWith(ctx context.Context, log *zap.Logger, r retrier, a acker, body []byte, attempt int, err error) {
	if err == nil {
		if aerr := a.Ack(false); aerr != nil {
			log.Error("ack failed", zap.Error(aerr))
		}
		return
	}
	if errors.Is(err, context.Canceled) {
		log.Warn("memory job interrupted, requeueing", zap.Error(err))
		_ = a.Nack(false, true)
		return
	}
	if errors.Is(err, errBadMessage) || attempt+1 >= maxAttempts {
		log.Error("memory job dead-lettered", zap.Int("attempt", attempt), zap.Error(err))
		_ = a.Nack(false, false)
		return
	}
	if rerr := r.Retry(ctx, body, attempt+1, retryDelay); rerr != nil {
		log.Error("retry publish failed", zap.Error(rerr))
		_ = a.Nack(false, false)
		return
	}
	log.Warn("memory job failed, retrying", zap.Int("attempt", attempt+1), zap.Error(err))
	_ = a.Ack(false)
}

type deliveryAcker struct{ d amqp.Delivery }

func (a deliveryAcker) Ack(multiple bool) error          { return a.d.Ack(multiple) }
func (a deliveryAcker) Nack(multiple, requeue bool) error { return a.d.Nack(multiple, requeue) }
