package middleware

import (
	"context"
	"fmt"
	"math"
	"path"
	"regexp"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// fieldKinds lists the JSON type each known request field must have.
var fieldKinds = map[string]string{
	"id":          "uuid",
	"title":       "string",
	"description": "string",
	"priority":    "string",
	"due_at":      "string",
	"status":      "string",
	"reason":      "string",
	"comment":     "string",
	"progress":    "integer",
	"limit":       "integer",
	"offset":      "integer",
}

// ValidationInterceptor rejects structurally malformed requests before they
// reach a handler: missing or malformed task ids and fields of the wrong JSON
// type. Semantic checks stay with the services.
type ValidationInterceptor struct {
	idMethods map[string]bool
}

// NewValidationInterceptor requires an "id" field on the given method names
// (the last path element, e.g. "StartTask").
func NewValidationInterceptor(idMethods ...string) *ValidationInterceptor {
	m := make(map[string]bool, len(idMethods))
	for _, name := range idMethods {
		m[name] = true
	}
	return &ValidationInterceptor{idMethods: m}
}

// Unary returns a unary server interceptor for request validation
func (v *ValidationInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if s, ok := req.(*structpb.Struct); ok {
			if err := v.validate(s, path.Base(info.FullMethod)); err != nil {
				return nil, err
			}
		}
		return handler(ctx, req)
	}
}

func (v *ValidationInterceptor) validate(req *structpb.Struct, method string) error {
	fields := req.GetFields()
	var problems []string

	if v.idMethods[method] {
		if _, ok := fields["id"]; !ok {
			problems = append(problems, "id: is required")
		}
	}

	for name, val := range fields {
		kind, known := fieldKinds[name]
		if !known {
			continue
		}
		if _, isNull := val.GetKind().(*structpb.Value_NullValue); isNull {
			continue
		}
		if err := checkKind(val, kind); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", name, err))
		}
	}

	if len(problems) > 0 {
		return status.Error(codes.InvalidArgument, "validation failed: "+strings.Join(problems, "; "))
	}
	return nil
}

func checkKind(val *structpb.Value, kind string) error {
	switch kind {
	case "uuid":
		s, ok := val.GetKind().(*structpb.Value_StringValue)
		if !ok || !isValidUUID(s.StringValue) {
			return fmt.Errorf("must be a valid UUID")
		}
	case "string":
		if _, ok := val.GetKind().(*structpb.Value_StringValue); !ok {
			return fmt.Errorf("must be a string")
		}
	case "integer":
		n, ok := val.GetKind().(*structpb.Value_NumberValue)
		if !ok || n.NumberValue != math.Trunc(n.NumberValue) {
			return fmt.Errorf("must be an integer")
		}
	}
	return nil
}

// isValidUUID checks if a string is a valid UUID format
func isValidUUID(s string) bool {
	return uuidRegex.MatchString(s)
}
