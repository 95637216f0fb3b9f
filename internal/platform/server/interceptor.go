package server

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/ogurasousui/codex-grpc-payroll/internal/platform/logging"
)

// RequestIDMetadataKey はリクエスト ID を受け渡すメタデータキーです。
const RequestIDMetadataKey = "x-request-id"

// RequestLoggingInterceptor はリクエスト ID を付与し、メソッドごとの結果と所要時間を記録します。
func RequestLoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		requestID := incomingRequestID(ctx)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		reqLogger := logger.With(zap.String("request_id", requestID))
		ctx = logging.WithRequestID(ctx, requestID)
		ctx = logging.WithLogger(ctx, reqLogger)
		_ = grpc.SetHeader(ctx, metadata.Pairs(RequestIDMetadataKey, requestID))

		start := time.Now()
		resp, err := next(ctx, req)

		reqLogger.Info("grpc request",
			zap.String("method", info.FullMethod),
			zap.String("code", status.Code(err).String()),
			zap.Duration("latency", time.Since(start)),
		)

		return resp, err
	}
}

func incomingRequestID(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get(RequestIDMetadataKey); len(values) > 0 {
		return values[0]
	}
	return ""
}
