// Package roiv1 defines the mirador.roi.v1.ROIEngine gRPC service. Messages are
// google.protobuf.Struct documents so the service needs no generated message types.
package roiv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "mirador.roi.v1.ROIEngine"

const (
	ROIEngine_AnalyzeCorrelations_FullMethodName = "/" + ServiceName + "/AnalyzeCorrelations"
	ROIEngine_RecordObservations_FullMethodName  = "/" + ServiceName + "/RecordObservations"
	ROIEngine_GetWorkloadHistory_FullMethodName  = "/" + ServiceName + "/GetWorkloadHistory"
)

// ROIEngineClient is the client API for the ROIEngine service.
type ROIEngineClient interface {
	AnalyzeCorrelations(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	RecordObservations(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetWorkloadHistory(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type roiEngineClient struct {
	cc grpc.ClientConnInterface
}

// NewROIEngineClient wraps a client connection.
func NewROIEngineClient(cc grpc.ClientConnInterface) ROIEngineClient {
	return &roiEngineClient{cc}
}

func (c *roiEngineClient) AnalyzeCorrelations(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ROIEngine_AnalyzeCorrelations_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *roiEngineClient) RecordObservations(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ROIEngine_RecordObservations_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *roiEngineClient) GetWorkloadHistory(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ROIEngine_GetWorkloadHistory_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ROIEngineServer is the server API for the ROIEngine service.
type ROIEngineServer interface {
	AnalyzeCorrelations(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RecordObservations(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetWorkloadHistory(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// UnimplementedROIEngineServer can be embedded to satisfy ROIEngineServer.
type UnimplementedROIEngineServer struct{}

func (UnimplementedROIEngineServer) AnalyzeCorrelations(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method AnalyzeCorrelations not implemented")
}

func (UnimplementedROIEngineServer) RecordObservations(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method RecordObservations not implemented")
}

func (UnimplementedROIEngineServer) GetWorkloadHistory(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetWorkloadHistory not implemented")
}

// RegisterROIEngineServer attaches srv to the registrar.
func RegisterROIEngineServer(s grpc.ServiceRegistrar, srv ROIEngineServer) {
	s.RegisterService(&ROIEngine_ServiceDesc, srv)
}

func unaryHandler(method string, call func(ROIEngineServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ROIEngineServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ROIEngineServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ROIEngine_ServiceDesc is the grpc.ServiceDesc for the ROIEngine service.
var ROIEngine_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ROIEngineServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "AnalyzeCorrelations",
			Handler:    unaryHandler(ROIEngine_AnalyzeCorrelations_FullMethodName, ROIEngineServer.AnalyzeCorrelations),
		},
		{
			MethodName: "RecordObservations",
			Handler:    unaryHandler(ROIEngine_RecordObservations_FullMethodName, ROIEngineServer.RecordObservations),
		},
		{
			MethodName: "GetWorkloadHistory",
			Handler:    unaryHandler(ROIEngine_GetWorkloadHistory_FullMethodName, ROIEngineServer.GetWorkloadHistory),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "mirador/roi/v1/roi.proto",
}
