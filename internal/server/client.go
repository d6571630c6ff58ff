package server

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/gurkanbulca/tasktimer/internal/middleware"
	"github.com/gurkanbulca/tasktimer/internal/models"
)

// Client calls the tracker service over an existing connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Call invokes method with req and decodes the response into resp when it is
// not nil.
func (c *Client) Call(ctx context.Context, method string, req map[string]any, resp any, opts ...grpc.CallOption) error {
	if req == nil {
		req = map[string]any{}
	}
	in, err := structpb.NewStruct(req)
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return err
	}
	if resp == nil {
		return nil
	}
	return DecodeResponse(out, resp)
}

// WithActor attaches the actor scope to outgoing metadata.
func WithActor(ctx context.Context, scope models.Scope) context.Context {
	return metadata.AppendToOutgoingContext(ctx,
		middleware.MetadataUserID, scope.UserID.String(),
		middleware.MetadataAccountID, scope.AccountID.String(),
	)
}
