package handler

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ogurasousui/codex-grpc-payroll/internal/core/payroll"
	"github.com/ogurasousui/codex-grpc-payroll/internal/platform/logging"
)

const internalErrorMessage = "internal error"

// toStatusError はエラー分類を gRPC ステータスに変換します。
// 永続化層や未分類のエラーは詳細をログに残し、クライアントには汎用メッセージのみ返します。
func (h *PayrollGrpcHandler) toStatusError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}

	switch payroll.KindOf(err) {
	case payroll.InvalidInputKind:
		return status.Error(codes.InvalidArgument, err.Error())
	case payroll.NotFoundKind:
		return status.Error(codes.NotFound, err.Error())
	case payroll.InvalidStateKind:
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		logging.FromContext(ctx, h.logger).Error("payroll request failed",
			zap.String("kind", payroll.KindOf(err).String()),
			zap.Error(err),
		)
		return status.Error(codes.Internal, internalErrorMessage)
	}
}
