package middleware

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/gurkanbulca/tasktimer/internal/models"
)

// Metadata keys set by the authenticating gateway in front of the service.
const (
	MetadataUserID    = "x-user-id"
	MetadataAccountID = "x-account-id"
)

// ScopeInterceptor resolves the actor scope of every call from request
// metadata. Authentication itself happens upstream; calls without a valid
// scope are rejected as unauthenticated.
type ScopeInterceptor struct {
	publicMethods map[string]bool
}

func NewScopeInterceptor() *ScopeInterceptor {
	// Methods that run without an actor
	publicMethods := map[string]bool{
		"/grpc.health.v1.Health/Check": true,
		"/grpc.health.v1.Health/Watch": true,
	}

	return &ScopeInterceptor{publicMethods: publicMethods}
}

func (a *ScopeInterceptor) isPublic(method string) bool {
	return a.publicMethods[method] || strings.HasPrefix(method, "/grpc.reflection.")
}

// Unary returns a unary server interceptor that attaches the actor scope
func (a *ScopeInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if a.isPublic(info.FullMethod) {
			return handler(ctx, req)
		}

		newCtx, err := a.authenticate(ctx)
		if err != nil {
			return nil, err
		}

		return handler(newCtx, req)
	}
}

// Stream returns a stream server interceptor that attaches the actor scope
func (a *ScopeInterceptor) Stream() grpc.StreamServerInterceptor {
	return func(
		srv interface{},
		stream grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		if a.isPublic(info.FullMethod) {
			return handler(srv, stream)
		}

		newCtx, err := a.authenticate(stream.Context())
		if err != nil {
			return err
		}

		return handler(srv, &enrichedServerStream{ServerStream: stream, ctx: newCtx})
	}
}

// authenticate reads the actor ids from metadata
func (a *ScopeInterceptor) authenticate(ctx context.Context) (context.Context, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing metadata")
	}

	userID, err := metadataUUID(md, MetadataUserID)
	if err != nil {
		return nil, err
	}
	accountID, err := metadataUUID(md, MetadataAccountID)
	if err != nil {
		return nil, err
	}

	return WithScope(ctx, models.Scope{AccountID: accountID, UserID: userID}), nil
}

func metadataUUID(md metadata.MD, key string) (uuid.UUID, error) {
	values := md.Get(key)
	if len(values) == 0 || values[0] == "" {
		return uuid.Nil, status.Errorf(codes.Unauthenticated, "missing %s", key)
	}
	id, err := uuid.Parse(values[0])
	if err != nil || id == uuid.Nil {
		return uuid.Nil, status.Errorf(codes.Unauthenticated, "invalid %s", key)
	}
	return id, nil
}

// WithScope attaches an actor scope to ctx.
func WithScope(ctx context.Context, scope models.Scope) context.Context {
	return context.WithValue(ctx, ContextKeyScope, scope)
}

// ScopeFromContext returns the actor scope attached by ScopeInterceptor.
func ScopeFromContext(ctx context.Context) (models.Scope, bool) {
	scope, ok := ctx.Value(ContextKeyScope).(models.Scope)
	return scope, ok
}
