package middleware

import (
	"context"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
)

// ContextKeys for storing request metadata
type ContextKey string

const (
	ContextKeyIPAddress ContextKey = "ip_address"
	ContextKeyUserAgent ContextKey = "user_agent"
	ContextKeyScope     ContextKey = "scope"
)

// MetadataExtractorInterceptor extracts client metadata and adds it to context
type MetadataExtractorInterceptor struct{}

// NewMetadataExtractorInterceptor creates a new metadata extractor interceptor
func NewMetadataExtractorInterceptor() *MetadataExtractorInterceptor {
	return &MetadataExtractorInterceptor{}
}

// Unary returns a unary server interceptor for metadata extraction
func (m *MetadataExtractorInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		return handler(m.enrichContext(ctx), req)
	}
}

// Stream returns a stream server interceptor for metadata extraction
func (m *MetadataExtractorInterceptor) Stream() grpc.StreamServerInterceptor {
	return func(
		srv interface{},
		stream grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		wrappedStream := &enrichedServerStream{
			ServerStream: stream,
			ctx:          m.enrichContext(stream.Context()),
		}
		return handler(srv, wrappedStream)
	}
}

// enrichContext extracts IP address and user agent from the context
func (m *MetadataExtractorInterceptor) enrichContext(ctx context.Context) context.Context {
	if ipAddress := extractIPAddress(ctx); ipAddress != "" {
		ctx = context.WithValue(ctx, ContextKeyIPAddress, ipAddress)
	}
	if userAgent := extractUserAgent(ctx); userAgent != "" {
		ctx = context.WithValue(ctx, ContextKeyUserAgent, userAgent)
	}
	return ctx
}

// extractIPAddress extracts the client IP address from the context
func extractIPAddress(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return ""
	}

	if tcpAddr, ok := p.Addr.(*net.TCPAddr); ok {
		return tcpAddr.IP.String()
	}

	addr := p.Addr.String()
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

// extractUserAgent extracts the user agent from gRPC metadata
func extractUserAgent(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}

	for _, header := range []string{"user-agent", "grpc-user-agent", "x-user-agent"} {
		if values := md.Get(header); len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

// enrichedServerStream wraps grpc.ServerStream with enriched context
type enrichedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *enrichedServerStream) Context() context.Context {
	return s.ctx
}

// ClientInfo describes the caller of a request.
type ClientInfo struct {
	IPAddress string
	UserAgent string
	UserID    string
	AccountID string
}

// GetClientInfoFromContext extracts all client information from context
func GetClientInfoFromContext(ctx context.Context) *ClientInfo {
	info := &ClientInfo{}
	if ip, ok := ctx.Value(ContextKeyIPAddress).(string); ok {
		info.IPAddress = ip
	}
	if ua, ok := ctx.Value(ContextKeyUserAgent).(string); ok {
		info.UserAgent = ua
	}
	if scope, ok := ScopeFromContext(ctx); ok {
		info.UserID = scope.UserID.String()
		info.AccountID = scope.AccountID.String()
	}
	return info
}
