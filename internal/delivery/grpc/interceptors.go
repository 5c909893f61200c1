package grpc

import (
	"context"
	"runtime/debug"
	"strings"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/auth"
	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/metrics"
	"github.com/vogiaan1904/ticketbottle-boxoffice/pkg/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type tokenParser interface {
	ParseAccessToken(token string) (string, error)
}

// AuthInterceptor resolves the bearer token in the authorization metadata for
// BoxOffice methods. A missing or bad token leaves the context anonymous and
// the method answers Unauthenticated.
func AuthInterceptor(p tokenParser) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !strings.HasPrefix(info.FullMethod, "/"+ServiceName+"/") {
			return handler(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if ok {
			for _, v := range md.Get("authorization") {
				token, found := strings.CutPrefix(v, "Bearer ")
				if !found {
					continue
				}
				if uid, err := p.ParseAccessToken(token); err == nil {
					ctx = auth.WithUserID(ctx, uid)
					break
				}
			}
		}

		return handler(ctx, req)
	}
}

// InterceptorLogger adapts the service logger to the middleware logger.
func InterceptorLogger(l logger.Logger) logging.Logger {
	return logging.LoggerFunc(func(ctx context.Context, lvl logging.Level, msg string, fields ...any) {
		switch lvl {
		case logging.LevelDebug:
			l.Debugw(ctx, msg, fields...)
		case logging.LevelInfo:
			l.Infow(ctx, msg, fields...)
		case logging.LevelWarn:
			l.Warnw(ctx, msg, fields...)
		default:
			l.Errorw(ctx, msg, fields...)
		}
	})
}

func RecoveryOpt(m *metrics.Metrics, l logger.Logger) recovery.Option {
	return recovery.WithRecoveryHandlerContext(func(ctx context.Context, p any) error {
		m.PanicsRecovered.Inc()
		l.Errorw(ctx, "Recovered from panic",
			"panic", p,
			"stack", string(debug.Stack()),
		)
		return status.Errorf(codes.Internal, "Internal server error")
	})
}
