package handler

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// PayrollServiceName は gRPC 上のサービス名です。
const PayrollServiceName = "payroll.v1.PayrollService"

// PayrollServiceServer は PayrollService のサーバー側インターフェースです。
// メッセージは well-known types のみで構成されます。
type PayrollServiceServer interface {
	GetEmployeeSalary(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	ListEmployeeSalaries(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	SearchEmployees(context.Context, *structpb.Struct) (*structpb.ListValue, error)
	UpdateEmployee(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetSalary(context.Context, *structpb.Struct) (*wrapperspb.BoolValue, error)
	GetEmployee(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	ListEmployees(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
}

// PayrollServiceDesc は PayrollService の grpc.ServiceDesc です。
var PayrollServiceDesc = grpc.ServiceDesc{
	ServiceName: PayrollServiceName,
	HandlerType: (*PayrollServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("GetEmployeeSalary", newMessage[wrapperspb.StringValue], PayrollServiceServer.GetEmployeeSalary),
		unary("ListEmployeeSalaries", newMessage[emptypb.Empty], PayrollServiceServer.ListEmployeeSalaries),
		unary("SearchEmployees", newMessage[structpb.Struct], PayrollServiceServer.SearchEmployees),
		unary("UpdateEmployee", newMessage[structpb.Struct], PayrollServiceServer.UpdateEmployee),
		unary("SetSalary", newMessage[structpb.Struct], PayrollServiceServer.SetSalary),
		unary("GetEmployee", newMessage[wrapperspb.StringValue], PayrollServiceServer.GetEmployee),
		unary("ListEmployees", newMessage[emptypb.Empty], PayrollServiceServer.ListEmployees),
	},
	Streams: []grpc.StreamDesc{},
}

// RegisterPayrollServiceServer は srv を registrar に登録します。
func RegisterPayrollServiceServer(registrar grpc.ServiceRegistrar, srv PayrollServiceServer) {
	registrar.RegisterService(&PayrollServiceDesc, srv)
}

func newMessage[T any]() *T {
	return new(T)
}

func fullMethod(method string) string {
	return "/" + PayrollServiceName + "/" + method
}

func unary[Req proto.Message, Resp proto.Message](
	method string,
	newReq func() Req,
	call func(PayrollServiceServer, context.Context, Req) (Resp, error),
) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := newReq()
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(PayrollServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: fullMethod(method),
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(PayrollServiceServer), ctx, req.(Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// PayrollServiceClient は PayrollService のクライアントです。
type PayrollServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewPayrollServiceClient は PayrollServiceClient を生成します。
func NewPayrollServiceClient(cc grpc.ClientConnInterface) *PayrollServiceClient {
	return &PayrollServiceClient{cc: cc}
}

// GetEmployeeSalary は社員 1 人の照合済み給与を取得します。
func (c *PayrollServiceClient) GetEmployeeSalary(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod("GetEmployeeSalary"), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ListEmployeeSalaries は全社員の照合済み給与を取得します。
func (c *PayrollServiceClient) ListEmployeeSalaries(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, fullMethod("ListEmployeeSalaries"), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// SearchEmployees は項目の部分一致で社員を検索します。
func (c *PayrollServiceClient) SearchEmployees(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, fullMethod("SearchEmployees"), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateEmployee は社員を更新し給与を再計算します。
func (c *PayrollServiceClient) UpdateEmployee(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod("UpdateEmployee"), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// SetSalary は給与額を直接保存します。
func (c *PayrollServiceClient) SetSalary(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error) {
	out := new(wrapperspb.BoolValue)
	if err := c.cc.Invoke(ctx, fullMethod("SetSalary"), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// GetEmployee は識別子で社員を取得します。
func (c *PayrollServiceClient) GetEmployee(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod("GetEmployee"), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ListEmployees は全社員を取得します。
func (c *PayrollServiceClient) ListEmployees(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, fullMethod("ListEmployees"), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
