package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "mirador.classify.v1.ClassifyEngine"

// Full method names.
const (
	MethodIngestRecords  = "/" + ServiceName + "/IngestRecords"
	MethodEvaluateQuery  = "/" + ServiceName + "/EvaluateQuery"
	MethodApplyFilters   = "/" + ServiceName + "/ApplyFilters"
	MethodGetCounts      = "/" + ServiceName + "/GetCounts"
	MethodReloadPatterns = "/" + ServiceName + "/ReloadPatterns"
	MethodHealthCheck    = "/" + ServiceName + "/HealthCheck"
)

// ClassifyEngineServer is the server API for the ClassifyEngine service.
// Payloads are google.protobuf.Struct documents; see the Decode/Encode
// helpers for their shape.
type ClassifyEngineServer interface {
	IngestRecords(context.Context, *structpb.Struct) (*structpb.Struct, error)
	EvaluateQuery(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ApplyFilters(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetCounts(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ReloadPatterns(context.Context, *structpb.Struct) (*structpb.Struct, error)
	HealthCheck(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// UnimplementedClassifyEngineServer can be embedded for forward compatibility.
type UnimplementedClassifyEngineServer struct{}

func (UnimplementedClassifyEngineServer) IngestRecords(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method IngestRecords not implemented")
}

func (UnimplementedClassifyEngineServer) EvaluateQuery(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method EvaluateQuery not implemented")
}

func (UnimplementedClassifyEngineServer) ApplyFilters(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method ApplyFilters not implemented")
}

func (UnimplementedClassifyEngineServer) GetCounts(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetCounts not implemented")
}

func (UnimplementedClassifyEngineServer) ReloadPatterns(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method ReloadPatterns not implemented")
}

func (UnimplementedClassifyEngineServer) HealthCheck(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method HealthCheck not implemented")
}

type unaryMethod func(ClassifyEngineServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// unaryHandler adapts a server method to grpc's MethodDesc handler shape.
func unaryHandler(fullMethod string, call unaryMethod) func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		server := srv.(ClassifyEngineServer)
		if interceptor == nil {
			return call(server, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(server, ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ClassifyEngineServiceDesc is the grpc.ServiceDesc for the ClassifyEngine service.
var ClassifyEngineServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ClassifyEngineServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "IngestRecords", Handler: unaryHandler(MethodIngestRecords, ClassifyEngineServer.IngestRecords)},
		{MethodName: "EvaluateQuery", Handler: unaryHandler(MethodEvaluateQuery, ClassifyEngineServer.EvaluateQuery)},
		{MethodName: "ApplyFilters", Handler: unaryHandler(MethodApplyFilters, ClassifyEngineServer.ApplyFilters)},
		{MethodName: "GetCounts", Handler: unaryHandler(MethodGetCounts, ClassifyEngineServer.GetCounts)},
		{MethodName: "ReloadPatterns", Handler: unaryHandler(MethodReloadPatterns, ClassifyEngineServer.ReloadPatterns)},
		{MethodName: "HealthCheck", Handler: unaryHandler(MethodHealthCheck, ClassifyEngineServer.HealthCheck)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "mirador/classify/v1/classify.proto",
}

// RegisterClassifyEngineServer registers srv on s.
func RegisterClassifyEngineServer(s grpc.ServiceRegistrar, srv ClassifyEngineServer) {
	s.RegisterService(&ClassifyEngineServiceDesc, srv)
}

// ClassifyEngineClient is a thin client for the ClassifyEngine service.
type ClassifyEngineClient struct {
	cc grpc.ClientConnInterface
}

// NewClassifyEngineClient wraps a client connection.
func NewClassifyEngineClient(cc grpc.ClientConnInterface) *ClassifyEngineClient {
	return &ClassifyEngineClient{cc: cc}
}

// Call invokes one of the Method* endpoints.
func (c *ClassifyEngineClient) Call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
