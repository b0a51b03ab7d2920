package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/dmitrijs2005/docanchor/internal/common"
	gs "github.com/dmitrijs2005/docanchor/internal/server/grpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// UploadMeta describes a file being uploaded.
type UploadMeta struct {
	Title       string
	Description string
	FileName    string
	MediaType   string
}

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	accessToken string
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if s.accessToken != "" {
		ctx = withAccessToken(ctx, s.accessToken)
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

// NewDocAnchorClient connects to endpointURL. Extra dial options are
// appended after the defaults.
func NewDocAnchorClient(endpointURL, accessToken string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, accessToken: accessToken}

	dial := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
		grpc.WithDefaultCallOptions(grpc.MaxCallSendMsgSize(1 << 30)),
	}, opts...)

	conn, err := grpc.NewClient(endpointURL, dial...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	return c, nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	out, err := s.call(ctx, gs.MethodPing, &emptypb.Empty{})
	if err != nil {
		return err
	}
	if out["status"] != "OK" {
		return ErrUnavailable
	}
	return nil
}

func (s *GRPCClient) Status(ctx context.Context) (map[string]any, error) {
	return s.call(ctx, gs.MethodStatus, &emptypb.Empty{})
}

// Upload sends data with meta. Metadata values are percent-encoded so any
// UTF-8 text survives the header transport.
func (s *GRPCClient) Upload(ctx context.Context, data []byte, meta UploadMeta) (map[string]any, error) {
	ctx = metadata.AppendToOutgoingContext(ctx,
		common.TitleHeaderName, url.QueryEscape(meta.Title),
		common.DescriptionHeaderName, url.QueryEscape(meta.Description),
		common.FileNameHeaderName, url.QueryEscape(meta.FileName),
		common.MediaTypeHeaderName, url.QueryEscape(meta.MediaType),
	)
	return s.call(ctx, gs.MethodUpload, wrapperspb.Bytes(data))
}

func (s *GRPCClient) ListDocuments(ctx context.Context, limit, offset int) (map[string]any, error) {
	req, err := structpb.NewStruct(map[string]any{gs.FieldLimit: limit, gs.FieldOffset: offset})
	if err != nil {
		return nil, err
	}
	return s.call(ctx, gs.MethodListDocuments, req)
}

func (s *GRPCClient) GetDocument(ctx context.Context, id string) (map[string]any, error) {
	return s.call(ctx, gs.MethodGetDocument, wrapperspb.String(id))
}

func (s *GRPCClient) DeleteDocument(ctx context.Context, id string) error {
	err := s.conn.Invoke(ctx, gs.FullMethod(gs.MethodDeleteDocument), wrapperspb.String(id), &emptypb.Empty{})
	return s.mapError(err)
}

func (s *GRPCClient) ContentInfo(ctx context.Context, id string) (map[string]any, error) {
	return s.call(ctx, gs.MethodContentInfo, wrapperspb.String(id))
}

func (s *GRPCClient) ReverifyLocal(ctx context.Context, id string) (map[string]any, error) {
	return s.call(ctx, gs.MethodReverifyLocal, wrapperspb.String(id))
}

func (s *GRPCClient) ReverifyLedger(ctx context.Context, id string) (map[string]any, error) {
	return s.call(ctx, gs.MethodReverifyLedger, wrapperspb.String(id))
}

// GetHistory returns one document's history, or the owner's history when
// documentID is empty.
func (s *GRPCClient) GetHistory(ctx context.Context, documentID string, limit, offset int) (map[string]any, error) {
	fields := map[string]any{gs.FieldLimit: limit, gs.FieldOffset: offset}
	if documentID != "" {
		fields[gs.FieldDocumentID] = documentID
	}
	req, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	return s.call(ctx, gs.MethodGetHistory, req)
}

func (s *GRPCClient) GetStats(ctx context.Context) (map[string]any, error) {
	return s.call(ctx, gs.MethodGetStats, &emptypb.Empty{})
}

func (s *GRPCClient) call(ctx context.Context, method string, req proto.Message) (map[string]any, error) {
	out := &structpb.Struct{}
	if err := s.conn.Invoke(ctx, gs.FullMethod(method), req, out); err != nil {
		return nil, s.mapError(err)
	}
	return out.AsMap(), nil
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	case codes.NotFound:
		return ErrNotFound
	case codes.InvalidArgument, codes.FailedPrecondition, codes.ResourceExhausted:
		return fmt.Errorf("%w: %s", ErrRejected, st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
