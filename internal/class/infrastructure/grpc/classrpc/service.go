// Package classrpc is the gRPC contract of the class service. Messages are
// plain structs carried with a JSON codec, so no generated code is needed on
// either side.
package classrpc

import (
	"context"

	"google.golang.org/grpc"
)

const (
	ServiceName    = "gym.classes.v1.ClassService"
	GetClassMethod = "/" + ServiceName + "/GetClass"
)

type GetClassRequest struct {
	ID int64 `json:"id"`
}

type GetClassResponse struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Exists         bool   `json:"exists"`
	TotalCapacity  int32  `json:"totalCapacity"`
	AvailableSpots int32  `json:"availableSpots"`
}

type ClassServiceServer interface {
	GetClass(ctx context.Context, req *GetClassRequest) (*GetClassResponse, error)
}

type ClassServiceClient interface {
	GetClass(ctx context.Context, req *GetClassRequest, opts ...grpc.CallOption) (*GetClassResponse, error)
}

type classServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewClassServiceClient(cc grpc.ClientConnInterface) ClassServiceClient {
	return &classServiceClient{cc: cc}
}

func (c *classServiceClient) GetClass(ctx context.Context, req *GetClassRequest, opts ...grpc.CallOption) (*GetClassResponse, error) {
	out := new(GetClassResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, GetClassMethod, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func RegisterClassServiceServer(s grpc.ServiceRegistrar, srv ClassServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func getClassHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetClassRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ClassServiceServer).GetClass(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetClassMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ClassServiceServer).GetClass(ctx, req.(*GetClassRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ClassServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetClass", Handler: getClassHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "classrpc/service.go",
}
