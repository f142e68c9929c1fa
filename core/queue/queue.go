package queue

import (
	"context"
	"fmt"

	"winetour-api/core/logger"

	"github.com/hibiken/asynq"
)

const QueueCalendar = "calendar"

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func (c RedisConfig) clientOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: c.Addr, Password: c.Password, DB: c.DB}
}

// Enqueuer is the producer side used by services.
type Enqueuer interface {
	Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) error
}

type Client struct {
	client *asynq.Client
}

func NewClient(cfg RedisConfig) *Client {
	return &Client{client: asynq.NewClient(cfg.clientOpt())}
}

func (c *Client) Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) error {
	info, err := c.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		logger.Error("Queue:Enqueue:Error", "type", task.Type(), "error", err)
		return fmt.Errorf("enqueue %s: %w", task.Type(), err)
	}
	logger.Info("Queue:Enqueue:Success", "type", task.Type(), "id", info.ID, "queue", info.Queue)
	return nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// Worker runs the asynq server that consumes background tasks.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

func NewWorker(cfg RedisConfig, concurrency int) *Worker {
	if concurrency <= 0 {
		concurrency = 10
	}
	server := asynq.NewServer(cfg.clientOpt(), asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			QueueCalendar: 6,
			"default":     4,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.Error("Queue:Worker:TaskFailed", "type", task.Type(), "error", err)
		}),
	})
	return &Worker{server: server, mux: asynq.NewServeMux()}
}

func (w *Worker) Handle(pattern string, handler asynq.Handler) {
	w.mux.Handle(pattern, handler)
}

func (w *Worker) Start() error {
	return w.server.Start(w.mux)
}

func (w *Worker) Shutdown() {
	w.server.Shutdown()
}

// Scheduler enqueues periodic tasks on a cron spec.
type Scheduler struct {
	scheduler *asynq.Scheduler
}

func NewScheduler(cfg RedisConfig) *Scheduler {
	return &Scheduler{scheduler: asynq.NewScheduler(cfg.clientOpt(), &asynq.SchedulerOpts{
		PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
			if err != nil {
				logger.Error("Queue:Scheduler:EnqueueError", "error", err)
			}
		},
	})}
}

func (s *Scheduler) Register(cronspec, taskType string, opts ...asynq.Option) error {
	id, err := s.scheduler.Register(cronspec, asynq.NewTask(taskType, nil), opts...)
	if err != nil {
		return fmt.Errorf("register %s: %w", taskType, err)
	}
	logger.Info("Queue:Scheduler:Registered", "type", taskType, "cron", cronspec, "entry_id", id)
	return nil
}

func (s *Scheduler) Start() error {
	return s.scheduler.Start()
}

func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
}
