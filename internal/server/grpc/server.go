// Package grpc exposes the integrity service over gRPC.
package grpc

import (
	"context"
	"io"
	"net"

	"github.com/dmitrijs2005/docanchor/internal/logging"
	"github.com/dmitrijs2005/docanchor/internal/server/services"
	"google.golang.org/grpc"
)

// documentService is the part of services.IntegrityService the transport uses.
type documentService interface {
	SubmitUpload(ctx context.Context, ownerID string, r io.Reader, meta services.UploadMetadata) (*services.UploadResult, error)
	ListDocuments(ctx context.Context, ownerID string, limit, offset int) ([]services.DocumentView, error)
	GetDocument(ctx context.Context, ownerID, documentID string) (*services.DocumentView, error)
	DeleteDocument(ctx context.Context, ownerID, documentID string) error
	ContentInfo(ctx context.Context, ownerID, documentID string) (*services.ContentInfoView, error)
	ReverifyLocal(ctx context.Context, ownerID, documentID string) (*services.VerificationOutcome, error)
	ReverifyLedger(ctx context.Context, ownerID, documentID string) (*services.VerificationOutcome, error)
	GetHistory(ctx context.Context, ownerID, documentID string, limit, offset int) (*services.HistoryPage, error)
	GetStats(ctx context.Context, ownerID string) (*services.Stats, error)
	Status(ctx context.Context) services.ServiceStatus
}

// envelope is the request size on top of the file itself.
const envelope = 1 << 20

type GRPCServer struct {
	address     string
	docs        documentService
	logger      logging.Logger
	jwtSecret   []byte
	maxFileSize int64
}

func NewGRPCServer(a string, l logging.Logger, docs documentService, secretKey string, maxFileSize int64) *GRPCServer {
	return &GRPCServer{
		address:     a,
		logger:      l.With("module", "grpc_server"),
		docs:        docs,
		jwtSecret:   []byte(secretKey),
		maxFileSize: maxFileSize,
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(s.recoverInterceptor, s.accessTokenInterceptor),
		grpc.MaxRecvMsgSize(int(s.maxFileSize)+envelope),
	)
	RegisterDocAnchorServer(srv, s)
	return srv
}

// Run serves until ctx is cancelled.
func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.serve(ctx, listen)
}

func (s *GRPCServer) serve(ctx context.Context, listen net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gPRC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
