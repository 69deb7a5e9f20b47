package handler

import (
	"context"
	"encoding/json"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/pesio-ai/be-plt-grc/internal/apperrors"
	"github.com/pesio-ai/be-plt-grc/internal/domain"
	"github.com/pesio-ai/be-plt-grc/internal/logger"
	"github.com/pesio-ai/be-plt-grc/internal/service"
)

// GRPCServiceName is the fully qualified name of the GRC gRPC service.
const GRPCServiceName = "grc.v1.GRCService"

// JSONCodecName is the content subtype clients select with
// grpc.CallContentSubtype to talk to the GRC service.
const JSONCodecName = "json"

// jsonCodec carries GRC messages as JSON instead of protobuf.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return JSONCodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type IDRequest struct {
	ID string `json:"id"`
}

type CheckPermissionRequest struct {
	Module domain.Module `json:"module"`
	Action domain.Action `json:"action"`
}

type RiskScoreRequest struct {
	Responses map[string]string `json:"responses"`
}

type RiskScoreResponse struct {
	Score    int                  `json:"score"`
	Band     domain.RiskBand      `json:"band"`
	Findings []domain.RiskFinding `json:"findings"`
}

type CreateVendorRequest struct {
	Name          string            `json:"name"`
	Questionnaire string            `json:"questionnaire"`
	Responses     map[string]string `json:"responses"`
}

type ListVendorsResponse struct {
	Vendors []*domain.Vendor `json:"vendors"`
}

type ComplianceSummaryRequest struct {
	Framework string `json:"framework"`
}

type Empty struct{}

// GRCServer is the server API of grc.v1.GRCService
type GRCServer interface {
	CheckPermission(context.Context, *CheckPermissionRequest) (*service.PermissionDecision, error)
	ComputeRiskScore(context.Context, *RiskScoreRequest) (*RiskScoreResponse, error)
	CreateVendor(context.Context, *CreateVendorRequest) (*domain.Vendor, error)
	GetVendor(context.Context, *IDRequest) (*domain.Vendor, error)
	ListVendors(context.Context, *Empty) (*ListVendorsResponse, error)
	DeleteVendor(context.Context, *IDRequest) (*Empty, error)
	DeleteUser(context.Context, *IDRequest) (*Empty, error)
	ComplianceSummary(context.Context, *ComplianceSummaryRequest) (*domain.ComplianceSummary, error)
}

var grcServiceDesc = grpc.ServiceDesc{
	ServiceName: GRPCServiceName,
	HandlerType: (*GRCServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CheckPermission", GRCServer.CheckPermission),
		unary("ComputeRiskScore", GRCServer.ComputeRiskScore),
		unary("CreateVendor", GRCServer.CreateVendor),
		unary("GetVendor", GRCServer.GetVendor),
		unary("ListVendors", GRCServer.ListVendors),
		unary("DeleteVendor", GRCServer.DeleteVendor),
		unary("DeleteUser", GRCServer.DeleteUser),
		unary("ComplianceSummary", GRCServer.ComplianceSummary),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "grc/v1/grc.json",
}

// unary adapts a typed method to grpc.MethodDesc
func unary[Req, Resp any](name string, call func(GRCServer, context.Context, *Req) (Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(GRCServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + GRPCServiceName + "/" + name}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(GRCServer), ctx, req.(*Req))
			})
		},
	}
}

// GRPCHandler implements the gRPC GRC service
type GRPCHandler struct {
	svc *Services
	log *logger.Logger
}

// NewGRPCHandler creates a new gRPC handler
func NewGRPCHandler(svc *Services, log *logger.Logger) *GRPCHandler {
	return &GRPCHandler{svc: svc, log: log}
}

// Register adds the GRC service to s
func (h *GRPCHandler) Register(s grpc.ServiceRegistrar) {
	s.RegisterService(&grcServiceDesc, h)
}

// UnaryInterceptor authenticates every GRC call from the "authorization"
// metadata and converts application errors to gRPC status codes. Calls to
// other services pass through untouched.
func (h *GRPCHandler) UnaryInterceptor() grpc.UnaryServerInterceptor {
	prefix := "/" + GRPCServiceName + "/"
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !strings.HasPrefix(info.FullMethod, prefix) {
			return handler(ctx, req)
		}

		var token string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if v := md.Get("authorization"); len(v) > 0 {
				token = bearerToken(v[0])
			}
		}
		if token == "" {
			return nil, status.Error(codes.Unauthenticated, "missing bearer token")
		}
		sess, err := h.svc.Auth.Authenticate(ctx, token)
		if err != nil {
			return nil, h.grpcError(info.FullMethod, err)
		}

		resp, err := handler(WithSession(ctx, sess), req)
		if err != nil {
			return nil, h.grpcError(info.FullMethod, err)
		}
		return resp, nil
	}
}

func (h *GRPCHandler) grpcError(method string, err error) error {
	code := grpcCode(apperrors.CodeOf(err))
	if code == codes.Internal || code == codes.Unavailable {
		h.log.Error().Err(err).Str("method", method).Msg("gRPC call failed")
	}
	return status.Error(code, apperrors.Message(err))
}

func grpcCode(code apperrors.Code) codes.Code {
	switch code {
	case apperrors.ErrCodeValidation:
		return codes.InvalidArgument
	case apperrors.ErrCodeUnauthorized:
		return codes.Unauthenticated
	case apperrors.ErrCodeForbidden:
		return codes.PermissionDenied
	case apperrors.ErrCodeNotFound:
		return codes.NotFound
	case apperrors.ErrCodeConflict:
		return codes.AlreadyExists
	case apperrors.ErrCodeIntegrity:
		return codes.FailedPrecondition
	case apperrors.ErrCodeUnavailable:
		return codes.Unavailable
	}
	return codes.Internal
}

// CheckPermission handles permission check requests
func (h *GRPCHandler) CheckPermission(ctx context.Context, req *CheckPermissionRequest) (*service.PermissionDecision, error) {
	return h.svc.Roles.CheckPermission(SessionFrom(ctx), req.Module, req.Action)
}

// ComputeRiskScore scores responses without storing them
func (h *GRPCHandler) ComputeRiskScore(_ context.Context, req *RiskScoreRequest) (*RiskScoreResponse, error) {
	score := domain.ComputeRiskScore(req.Responses)
	return &RiskScoreResponse{
		Score:    score,
		Band:     domain.BandFor(score),
		Findings: domain.ExplainRiskScore(req.Responses),
	}, nil
}

func (h *GRPCHandler) CreateVendor(ctx context.Context, req *CreateVendorRequest) (*domain.Vendor, error) {
	h.log.Info().Str("name", req.Name).Msg("Create vendor request")
	return h.svc.Vendors.CreateVendor(ctx, SessionFrom(ctx), &service.CreateVendorRequest{
		Name:          req.Name,
		Questionnaire: req.Questionnaire,
		Responses:     req.Responses,
	})
}

func (h *GRPCHandler) GetVendor(ctx context.Context, req *IDRequest) (*domain.Vendor, error) {
	return h.svc.Vendors.GetVendor(ctx, SessionFrom(ctx), req.ID)
}

func (h *GRPCHandler) ListVendors(ctx context.Context, _ *Empty) (*ListVendorsResponse, error) {
	vendors, err := h.svc.Vendors.ListVendors(ctx, SessionFrom(ctx))
	if err != nil {
		return nil, err
	}
	return &ListVendorsResponse{Vendors: vendors}, nil
}

func (h *GRPCHandler) DeleteVendor(ctx context.Context, req *IDRequest) (*Empty, error) {
	if err := h.svc.Vendors.DeleteVendor(ctx, SessionFrom(ctx), req.ID); err != nil {
		return nil, err
	}
	return &Empty{}, nil
}

func (h *GRPCHandler) DeleteUser(ctx context.Context, req *IDRequest) (*Empty, error) {
	h.log.Info().Str("user_id", req.ID).Msg("Delete user request")
	if err := h.svc.Users.DeleteUser(ctx, SessionFrom(ctx), req.ID); err != nil {
		return nil, err
	}
	return &Empty{}, nil
}

func (h *GRPCHandler) ComplianceSummary(ctx context.Context, req *ComplianceSummaryRequest) (*domain.ComplianceSummary, error) {
	return h.svc.Compliance.Summary(ctx, SessionFrom(ctx), req.Framework)
}
