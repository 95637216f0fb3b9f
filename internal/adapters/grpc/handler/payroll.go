package handler

import (
	"context"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/ogurasousui/codex-grpc-payroll/internal/core/payroll"
)

// PayrollGrpcHandler は PayrollService の gRPC 実装です。
type PayrollGrpcHandler struct {
	svc    payroll.UseCase
	logger *zap.Logger
}

var _ PayrollServiceServer = (*PayrollGrpcHandler)(nil)

// NewPayrollGrpcHandler は PayrollGrpcHandler を生成します。
func NewPayrollGrpcHandler(svc payroll.UseCase, logger *zap.Logger) *PayrollGrpcHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PayrollGrpcHandler{svc: svc, logger: logger}
}

// GetEmployeeSalary は社員の照合済み給与を返します。
func (h *PayrollGrpcHandler) GetEmployeeSalary(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	result, err := h.svc.GetEmployeeSalary(ctx, req.GetValue())
	if err != nil {
		return nil, h.toStatusError(ctx, err)
	}
	return toEmployeeSalaryStruct(result), nil
}

// ListEmployeeSalaries は全社員の照合済み給与を返します。
func (h *PayrollGrpcHandler) ListEmployeeSalaries(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	results, err := h.svc.ListAllWithSalaries(ctx)
	if err != nil {
		return nil, h.toStatusError(ctx, err)
	}

	values := make([]*structpb.Value, 0, len(results))
	for _, r := range results {
		values = append(values, structpb.NewStructValue(toEmployeeSalaryStruct(r)))
	}
	return &structpb.ListValue{Values: values}, nil
}

// SearchEmployees は {field, value} で社員を検索します。
func (h *PayrollGrpcHandler) SearchEmployees(ctx context.Context, req *structpb.Struct) (*structpb.ListValue, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	found, err := h.svc.SearchEmployees(ctx, textField(req, "field"), textField(req, "value"))
	if err != nil {
		return nil, h.toStatusError(ctx, err)
	}
	return toEmployeeList(found), nil
}

// UpdateEmployee は {identity, name, sex, category, years} で社員を更新し、再計算した給与を返します。
func (h *PayrollGrpcHandler) UpdateEmployee(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	result, err := h.svc.UpdateEmployee(ctx, payroll.EmployeeInput{
		Identity: textField(req, "identity"),
		Name:     textField(req, "name"),
		Sex:      textField(req, "sex"),
		Category: textField(req, "category"),
		Years:    textField(req, "years"),
	})
	if err != nil {
		return nil, h.toStatusError(ctx, err)
	}
	return toEmployeeSalaryStruct(result), nil
}

// SetSalary は {identity, amount} で給与額を直接保存します。
func (h *PayrollGrpcHandler) SetSalary(ctx context.Context, req *structpb.Struct) (*wrapperspb.BoolValue, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	amount, err := decimal.NewFromString(textField(req, "amount"))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "amount must be a decimal number")
	}

	ok, err := h.svc.SetSalary(ctx, textField(req, "identity"), amount)
	if err != nil {
		return nil, h.toStatusError(ctx, err)
	}
	return wrapperspb.Bool(ok), nil
}

// GetEmployee は社員を返します。
func (h *PayrollGrpcHandler) GetEmployee(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	emp, err := h.svc.GetEmployee(ctx, req.GetValue())
	if err != nil {
		return nil, h.toStatusError(ctx, err)
	}
	return toEmployeeStruct(emp), nil
}

// ListEmployees は全社員を返します。
func (h *PayrollGrpcHandler) ListEmployees(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	employees, err := h.svc.ListEmployees(ctx)
	if err != nil {
		return nil, h.toStatusError(ctx, err)
	}
	return toEmployeeList(employees), nil
}

// textField は文字列または数値のフィールドを文字列で返します。存在しない場合は空文字列です。
func textField(s *structpb.Struct, key string) string {
	v, ok := s.GetFields()[key]
	if !ok || v == nil {
		return ""
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return kind.StringValue
	case *structpb.Value_NumberValue:
		return strconv.FormatFloat(kind.NumberValue, 'f', -1, 64)
	case *structpb.Value_BoolValue:
		return strconv.FormatBool(kind.BoolValue)
	default:
		return ""
	}
}

func toEmployeeFields(e *payroll.Employee) map[string]*structpb.Value {
	return map[string]*structpb.Value{
		"identity": structpb.NewStringValue(e.Identity()),
		"name":     structpb.NewStringValue(e.Name()),
		"sex":      structpb.NewStringValue(e.Sex()),
		"category": structpb.NewNumberValue(float64(e.Category())),
		"years":    structpb.NewNumberValue(float64(e.Years())),
	}
}

func toEmployeeStruct(e *payroll.Employee) *structpb.Struct {
	return &structpb.Struct{Fields: toEmployeeFields(e)}
}

func toEmployeeList(employees []*payroll.Employee) *structpb.ListValue {
	values := make([]*structpb.Value, 0, len(employees))
	for _, e := range employees {
		values = append(values, structpb.NewStructValue(toEmployeeStruct(e)))
	}
	return &structpb.ListValue{Values: values}
}

func toEmployeeSalaryStruct(es *payroll.EmployeeSalary) *structpb.Struct {
	fields := toEmployeeFields(es.Employee)
	fields["salary"] = structpb.NewStringValue(es.Salary.StringFixed(2))
	fields["salary_source"] = structpb.NewStringValue(string(es.Source))
	return &structpb.Struct{Fields: fields}
}
