package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "docanchor.v1.DocAnchor"

// Method names, also used by clients to build full method paths.
const (
	MethodPing           = "Ping"
	MethodStatus         = "Status"
	MethodUpload         = "Upload"
	MethodListDocuments  = "ListDocuments"
	MethodGetDocument    = "GetDocument"
	MethodDeleteDocument = "DeleteDocument"
	MethodContentInfo    = "ContentInfo"
	MethodReverifyLocal  = "ReverifyLocal"
	MethodReverifyLedger = "ReverifyLedger"
	MethodGetHistory     = "GetHistory"
	MethodGetStats       = "GetStats"
)

// FullMethod returns the "/service/method" path of a method.
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// DocAnchorServer is the server API of the DocAnchor service. Messages are
// protobuf well-known types; structured results travel as structpb.Struct.
type DocAnchorServer interface {
	Ping(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Status(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Upload(context.Context, *wrapperspb.BytesValue) (*structpb.Struct, error)
	ListDocuments(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetDocument(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	DeleteDocument(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error)
	ContentInfo(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	ReverifyLocal(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	ReverifyLedger(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	GetHistory(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetStats(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// ServiceDesc describes DocAnchorServer for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DocAnchorServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodPing, DocAnchorServer.Ping),
		unary(MethodStatus, DocAnchorServer.Status),
		unary(MethodUpload, DocAnchorServer.Upload),
		unary(MethodListDocuments, DocAnchorServer.ListDocuments),
		unary(MethodGetDocument, DocAnchorServer.GetDocument),
		unary(MethodDeleteDocument, DocAnchorServer.DeleteDocument),
		unary(MethodContentInfo, DocAnchorServer.ContentInfo),
		unary(MethodReverifyLocal, DocAnchorServer.ReverifyLocal),
		unary(MethodReverifyLedger, DocAnchorServer.ReverifyLedger),
		unary(MethodGetHistory, DocAnchorServer.GetHistory),
		unary(MethodGetStats, DocAnchorServer.GetStats),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "docanchor/v1/docanchor.proto",
}

// RegisterDocAnchorServer registers srv on s.
func RegisterDocAnchorServer(s grpc.ServiceRegistrar, srv DocAnchorServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// unary builds the method descriptor for one DocAnchorServer method,
// decoding the request and routing through the server interceptor chain.
func unary[Req any, PReq interface {
	*Req
	proto.Message
}, Resp proto.Message](name string, call func(DocAnchorServer, context.Context, PReq) (Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := PReq(new(Req))
			if err := dec(in); err != nil {
				return nil, err
			}
			impl := srv.(DocAnchorServer)
			if interceptor == nil {
				return call(impl, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(impl, ctx, req.(PReq))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
