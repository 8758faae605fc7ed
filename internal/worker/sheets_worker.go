package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"skyline/internal/database"
	"skyline/internal/domain"
	"skyline/internal/metrics"
	"skyline/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	redisQueueKey = "sheets:queue"
	deadLetterKey = "sheets:deadletter"
)

type Options struct {
	Retry         RetryPolicy
	RatePerSecond float64
	Burst         int
	PollInterval  time.Duration
	BatchSize     int
}

// SheetsWorker mirrors booking changes into Google Sheets. Tasks are persisted
// in sync_queue first and then handed over through Redis or an in-memory
// channel; the table is polled for anything missed or due for retry.
type SheetsWorker struct {
	db           *database.DB
	sheets       domain.SheetsWriter
	redis        *redis.Client
	retryPolicy  RetryPolicy
	limiter      *rate.Limiter
	queue        chan models.SyncTask
	pollInterval time.Duration
	batchSize    int
	logger       zerolog.Logger
}

func NewSheetsWorker(
	db *database.DB,
	sheets domain.SheetsWriter,
	redisClient *redis.Client,
	opts Options,
	logger *zerolog.Logger,
) *SheetsWorker {
	if opts.Retry.MaxRetries == 0 {
		opts.Retry.MaxRetries = 5
	}
	if opts.Retry.InitialDelay == 0 {
		opts.Retry.InitialDelay = 2 * time.Second
	}
	if opts.Retry.MaxDelay == 0 {
		opts.Retry.MaxDelay = time.Minute
	}
	if opts.Retry.BackoffFactor == 0 {
		opts.Retry.BackoffFactor = 2
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 20
	}

	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}

	return &SheetsWorker{
		db:           db,
		sheets:       sheets,
		redis:        redisClient,
		retryPolicy:  opts.Retry,
		limiter:      rate.NewLimiter(limit, burst),
		queue:        make(chan models.SyncTask, 128),
		pollInterval: opts.PollInterval,
		batchSize:    opts.BatchSize,
		logger:       logger.With().Str("component", "sheets-worker").Logger(),
	}
}

// EnqueueTask persists a task and schedules it for the worker loop.
func (w *SheetsWorker) EnqueueTask(ctx context.Context, taskType string, bookingID int64, booking *models.Booking, status string) error {
	if taskType == "" {
		return errors.New("task type is required")
	}
	if bookingID == 0 && booking != nil {
		bookingID = booking.ID
	}
	if bookingID == 0 {
		return errors.New("booking id is required")
	}

	payload, err := json.Marshal(models.SyncPayload{Booking: booking, Status: status})
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	task := models.SyncTask{
		TaskType:  taskType,
		BookingID: bookingID,
		Payload:   string(payload),
		Status:    models.SyncStatusPending,
	}
	if err := w.db.CreateSyncTask(ctx, &task); err != nil {
		return fmt.Errorf("persist sync task: %w", err)
	}

	if w.redis != nil {
		err := w.pushRedis(ctx, redisQueueKey, &task)
		if err == nil {
			return nil
		}
		w.logger.Warn().Err(err).Int64("task_id", task.ID).Msg("Redis push failed, using memory queue")
	}

	select {
	case w.queue <- task:
	default:
		w.logger.Warn().Int64("task_id", task.ID).Msg("Memory queue full, task left for polling")
	}
	return nil
}

// Start runs the worker loop until ctx is done.
func (w *SheetsWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("Sheets worker started")
	defer w.logger.Info().Msg("Sheets worker stopped")

	if n, err := w.FailedCount(ctx); err != nil {
		w.logger.Warn().Err(err).Msg("Failed to count dead sync tasks")
	} else if n > 0 {
		w.logger.Warn().Int("failed_tasks", n).Msg("Sync tasks exhausted their retries and need a resync")
	}

	for ctx.Err() == nil {
		if t, ok := w.tryLocalQueue(); ok {
			w.processTask(ctx, &t)
			continue
		}

		if t, ok := w.tryRedis(ctx); ok {
			w.processTask(ctx, &t)
			continue
		}

		if w.ProcessPending(ctx) == 0 {
			select {
			case <-ctx.Done():
			case <-time.After(w.pollInterval):
			}
		}
	}
}

// FailedCount returns how many tasks have exhausted their retries.
func (w *SheetsWorker) FailedCount(ctx context.Context) (int, error) {
	tasks, err := w.db.GetFailedSyncTasks(ctx)
	if err != nil {
		return 0, err
	}
	return len(tasks), nil
}

// ProcessPending handles one batch of due tasks from sync_queue and returns
// how many it picked up.
func (w *SheetsWorker) ProcessPending(ctx context.Context) int {
	tasks, err := w.db.GetPendingSyncTasks(ctx, w.batchSize)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Error().Err(err).Msg("Failed to fetch pending sync tasks")
		}
		return 0
	}
	for i := range tasks {
		if ctx.Err() != nil {
			return i
		}
		w.processTask(ctx, &tasks[i])
	}
	return len(tasks)
}

func (w *SheetsWorker) tryLocalQueue() (models.SyncTask, bool) {
	select {
	case t := <-w.queue:
		return t, true
	default:
		return models.SyncTask{}, false
	}
}

func (w *SheetsWorker) tryRedis(ctx context.Context) (models.SyncTask, bool) {
	if w.redis == nil {
		return models.SyncTask{}, false
	}
	res, err := w.redis.BRPop(ctx, time.Second, redisQueueKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			w.logger.Warn().Err(err).Msg("Redis BRPOP failed")
		}
		return models.SyncTask{}, false
	}
	if len(res) != 2 {
		return models.SyncTask{}, false
	}

	var task models.SyncTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.logger.Error().Err(err).Msg("Failed to decode task from redis")
		return models.SyncTask{}, false
	}
	return task, true
}

func (w *SheetsWorker) processTask(ctx context.Context, task *models.SyncTask) {
	log := w.logger.With().Int64("task_id", task.ID).Str("task_type", task.TaskType).Int64("booking_id", task.BookingID).Logger()

	var payload models.SyncPayload
	if err := json.Unmarshal([]byte(task.Payload), &payload); err != nil {
		w.failTask(ctx, task, fmt.Errorf("decode payload: %w", err))
		return
	}

	if err := w.limiter.Wait(ctx); err != nil {
		return
	}

	if err := w.handleSheetTask(ctx, task, payload); err != nil {
		log.Warn().Err(err).Int("attempt", task.RetryCount+1).Msg("Sheets task failed")
		w.retryOrFail(ctx, task, err)
		return
	}

	metrics.IncSyncTask("completed")
	if err := w.db.UpdateSyncTaskStatus(ctx, task.ID, models.SyncStatusCompleted, "", nil); err != nil {
		log.Error().Err(err).Msg("Failed to mark task completed")
	}
}

// handleSheetTask writes the booking as it is stored now, so a retried task
// never overwrites a newer change. The queued payload is used only when the
// row is gone.
func (w *SheetsWorker) handleSheetTask(ctx context.Context, task *models.SyncTask, payload models.SyncPayload) error {
	switch task.TaskType {
	case models.TaskUpsert, models.TaskUpdateStatus:
	default:
		return fmt.Errorf("unknown task type: %s", task.TaskType)
	}

	current, err := w.db.GetBooking(ctx, task.BookingID)
	switch {
	case err == nil:
	case errors.Is(err, database.ErrBookingNotFound):
		current = nil
	default:
		return fmt.Errorf("load booking: %w", err)
	}

	if task.TaskType == models.TaskUpsert {
		booking := payload.Booking
		if current != nil {
			booking = current
		}
		if booking == nil {
			return errors.New("booking payload missing")
		}
		return w.sheets.UpsertBooking(ctx, booking)
	}

	status := payload.Status
	if current != nil {
		status = current.Status
	}
	if status == "" {
		return errors.New("status missing")
	}
	return w.sheets.UpdateBookingStatus(ctx, task.BookingID, status)
}

func (w *SheetsWorker) retryOrFail(ctx context.Context, task *models.SyncTask, cause error) {
	attempt := task.RetryCount + 1
	if w.retryPolicy.Exhausted(attempt) {
		w.failTask(ctx, task, cause)
		return
	}

	metrics.IncSyncTask("retry")
	next := time.Now().UTC().Add(w.retryPolicy.NextDelay(attempt))
	if err := w.db.UpdateSyncTaskStatus(ctx, task.ID, models.SyncStatusRetry, cause.Error(), &next); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("Failed to schedule retry")
	}
}

func (w *SheetsWorker) failTask(ctx context.Context, task *models.SyncTask, cause error) {
	metrics.IncSyncTask("failed")
	w.logger.Error().Err(cause).Int64("task_id", task.ID).Msg("Sheets task failed permanently")

	if err := w.db.UpdateSyncTaskStatus(ctx, task.ID, models.SyncStatusFailed, cause.Error(), nil); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("Failed to mark task failed")
	}
	if w.redis != nil {
		if err := w.pushRedis(ctx, deadLetterKey, task); err != nil {
			w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("Dead letter push failed")
		}
	}
}

func (w *SheetsWorker) pushRedis(ctx context.Context, key string, task *models.SyncTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, key, data).Err()
}
