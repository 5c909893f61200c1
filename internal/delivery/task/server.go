package task

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/vogiaan1904/ticketbottle-boxoffice/config"
	"github.com/vogiaan1904/ticketbottle-boxoffice/pkg/logger"
)

func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}
}

type Server struct {
	srv *asynq.Server
	mux *asynq.ServeMux
}

func NewServer(redisOpt asynq.RedisClientOpt, concurrency int, h *Handlers, l logger.Logger) *Server {
	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				QueueCritical: 6,
				QueueDefault:  3,
			},
			Logger: &asynqLogger{l: l},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, t *asynq.Task, err error) {
				l.Errorw(ctx, "Task failed",
					"type", t.Type(),
					"error", err,
				)
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeAdmissionExpire, h.HandleAdmissionExpire)

	return &Server{srv: srv, mux: mux}
}

// Start returns once the workers are up.
func (s *Server) Start() error {
	if err := s.srv.Start(s.mux); err != nil {
		return fmt.Errorf("asynq server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown() {
	s.srv.Shutdown()
}

type asynqLogger struct {
	l logger.Logger
}

func (a *asynqLogger) Debug(args ...any) { a.l.Debug(context.Background(), args...) }
func (a *asynqLogger) Info(args ...any)  { a.l.Info(context.Background(), args...) }
func (a *asynqLogger) Warn(args ...any)  { a.l.Warn(context.Background(), args...) }
func (a *asynqLogger) Error(args ...any) { a.l.Error(context.Background(), args...) }
func (a *asynqLogger) Fatal(args ...any) { a.l.Fatal(context.Background(), args...) }
