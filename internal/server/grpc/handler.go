package grpc

import (
	"bytes"
	"context"
	"net/url"

	"github.com/dmitrijs2005/docanchor/internal/common"
	"github.com/dmitrijs2005/docanchor/internal/server/services"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func (s *GRPCServer) Ping(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"status": "OK"})
}

// Status reports content store and ledger connectivity.
func (s *GRPCServer) Status(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error) {
	return s.reply(ctx, MethodStatus, statusMap(s.docs.Status(ctx)))
}

// Upload takes the raw file in req and its description from request
// metadata (percent-encoded values).
func (s *GRPCServer) Upload(ctx context.Context, req *wrapperspb.BytesValue) (*structpb.Struct, error) {
	ownerID, err := ownerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	md, _ := metadata.FromIncomingContext(ctx)
	meta := services.UploadMetadata{
		Title:       header(md, common.TitleHeaderName),
		Description: header(md, common.DescriptionHeaderName),
		FileName:    header(md, common.FileNameHeaderName),
		MediaType:   header(md, common.MediaTypeHeaderName),
	}

	s.logger.Info(ctx, "Upload request", "owner_id", ownerID, "file_name", meta.FileName, "size", len(req.GetValue()))

	res, err := s.docs.SubmitUpload(ctx, ownerID, bytes.NewReader(req.GetValue()), meta)
	if err != nil {
		return nil, s.toStatus(ctx, MethodUpload, err)
	}
	return s.reply(ctx, MethodUpload, uploadMap(res))
}

func (s *GRPCServer) ListDocuments(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ownerID, err := ownerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	limit, offset, err := paging(req)
	if err != nil {
		return nil, err
	}

	docs, err := s.docs.ListDocuments(ctx, ownerID, limit, offset)
	if err != nil {
		return nil, s.toStatus(ctx, MethodListDocuments, err)
	}
	items := make([]any, 0, len(docs))
	for _, d := range docs {
		items = append(items, documentMap(d))
	}
	return s.reply(ctx, MethodListDocuments, map[string]any{"documents": items})
}

func (s *GRPCServer) GetDocument(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	ownerID, id, err := s.target(ctx, req)
	if err != nil {
		return nil, err
	}
	doc, err := s.docs.GetDocument(ctx, ownerID, id)
	if err != nil {
		return nil, s.toStatus(ctx, MethodGetDocument, err)
	}
	return s.reply(ctx, MethodGetDocument, documentMap(*doc))
}

func (s *GRPCServer) DeleteDocument(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	ownerID, id, err := s.target(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.docs.DeleteDocument(ctx, ownerID, id); err != nil {
		return nil, s.toStatus(ctx, MethodDeleteDocument, err)
	}
	return &emptypb.Empty{}, nil
}

func (s *GRPCServer) ContentInfo(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	ownerID, id, err := s.target(ctx, req)
	if err != nil {
		return nil, err
	}
	info, err := s.docs.ContentInfo(ctx, ownerID, id)
	if err != nil {
		return nil, s.toStatus(ctx, MethodContentInfo, err)
	}
	return s.reply(ctx, MethodContentInfo, contentInfoMap(info))
}

func (s *GRPCServer) ReverifyLocal(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	ownerID, id, err := s.target(ctx, req)
	if err != nil {
		return nil, err
	}
	out, err := s.docs.ReverifyLocal(ctx, ownerID, id)
	if err != nil {
		return nil, s.toStatus(ctx, MethodReverifyLocal, err)
	}
	return s.reply(ctx, MethodReverifyLocal, outcomeMap(out))
}

func (s *GRPCServer) ReverifyLedger(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	ownerID, id, err := s.target(ctx, req)
	if err != nil {
		return nil, err
	}
	out, err := s.docs.ReverifyLedger(ctx, ownerID, id)
	if err != nil {
		return nil, s.toStatus(ctx, MethodReverifyLedger, err)
	}
	return s.reply(ctx, MethodReverifyLedger, outcomeMap(out))
}

// GetHistory returns one document's history when document_id is set, or a
// page of the owner's history otherwise.
func (s *GRPCServer) GetHistory(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ownerID, err := ownerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	limit, offset, err := paging(req)
	if err != nil {
		return nil, err
	}

	docID := stringField(req, FieldDocumentID)
	if docID != "" {
		if docID, err = documentID(docID); err != nil {
			return nil, err
		}
	}

	page, err := s.docs.GetHistory(ctx, ownerID, docID, limit, offset)
	if err != nil {
		return nil, s.toStatus(ctx, MethodGetHistory, err)
	}
	items := make([]any, 0, len(page.Records))
	for _, r := range page.Records {
		items = append(items, recordMap(r))
	}
	return s.reply(ctx, MethodGetHistory, map[string]any{"records": items, "total": page.Total})
}

func (s *GRPCServer) GetStats(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error) {
	ownerID, err := ownerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	st, err := s.docs.GetStats(ctx, ownerID)
	if err != nil {
		return nil, s.toStatus(ctx, MethodGetStats, err)
	}
	return s.reply(ctx, MethodGetStats, statsMap(st))
}

func (s *GRPCServer) target(ctx context.Context, req *wrapperspb.StringValue) (string, string, error) {
	ownerID, err := ownerFromContext(ctx)
	if err != nil {
		return "", "", err
	}
	if req.GetValue() == "" {
		return "", "", status.Error(codes.InvalidArgument, "document id is required")
	}
	id, err := documentID(req.GetValue())
	if err != nil {
		return "", "", err
	}
	return ownerID, id, nil
}

// documentID rejects ids that cannot name a document before they reach
// the database.
func documentID(v string) (string, error) {
	id, err := uuid.Parse(v)
	if err != nil {
		return "", status.Error(codes.InvalidArgument, "document id must be a UUID")
	}
	return id.String(), nil
}

func (s *GRPCServer) reply(ctx context.Context, method string, m map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		s.logger.Error(ctx, "response encoding failed", "method", method, "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}

func paging(req *structpb.Struct) (int, int, error) {
	limit, err := intField(req, FieldLimit)
	if err != nil {
		return 0, 0, status.Error(codes.InvalidArgument, err.Error())
	}
	offset, err := intField(req, FieldOffset)
	if err != nil {
		return 0, 0, status.Error(codes.InvalidArgument, err.Error())
	}
	return limit, offset, nil
}

func header(md metadata.MD, name string) string {
	values := md.Get(name)
	if len(values) == 0 {
		return ""
	}
	v, err := url.QueryUnescape(values[0])
	if err != nil {
		return values[0]
	}
	return v
}
