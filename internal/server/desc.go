// Package server exposes the task tracker over gRPC. Messages are JSON-shaped
// google.protobuf.Struct values so that any gRPC client can call the service
// without generated stubs.
package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "tracker.v1.TaskTracker"

// TrackerServer is the server API for the tracker.v1.TaskTracker service.
type TrackerServer interface {
	CreateTask(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetTask(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateTask(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteTask(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListTasks(context.Context, *structpb.Struct) (*structpb.Struct, error)
	TasksByStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StartTask(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PauseTask(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ResumeTask(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CompleteTask(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetPauseStats(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetPauseHistory(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetEvents(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetSnapshots(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetTimeline(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetReport(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(TrackerServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(name string, call unaryMethod) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(TrackerServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(TrackerServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc is the grpc.ServiceDesc for the tracker.v1.TaskTracker service.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TrackerServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CreateTask", TrackerServer.CreateTask),
		unary("GetTask", TrackerServer.GetTask),
		unary("UpdateTask", TrackerServer.UpdateTask),
		unary("DeleteTask", TrackerServer.DeleteTask),
		unary("ListTasks", TrackerServer.ListTasks),
		unary("TasksByStatus", TrackerServer.TasksByStatus),
		unary("StartTask", TrackerServer.StartTask),
		unary("PauseTask", TrackerServer.PauseTask),
		unary("ResumeTask", TrackerServer.ResumeTask),
		unary("CompleteTask", TrackerServer.CompleteTask),
		unary("GetPauseStats", TrackerServer.GetPauseStats),
		unary("GetPauseHistory", TrackerServer.GetPauseHistory),
		unary("GetEvents", TrackerServer.GetEvents),
		unary("GetSnapshots", TrackerServer.GetSnapshots),
		unary("GetTimeline", TrackerServer.GetTimeline),
		unary("GetReport", TrackerServer.GetReport),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "tracker/v1/tracker.proto",
}

// IDMethods are the methods whose request must carry a task "id".
func IDMethods() []string {
	return []string{
		"GetTask", "UpdateTask", "DeleteTask",
		"StartTask", "PauseTask", "ResumeTask", "CompleteTask",
		"GetPauseStats", "GetPauseHistory", "GetEvents", "GetSnapshots", "GetTimeline", "GetReport",
	}
}

// RegisterTrackerServer registers srv on s.
func RegisterTrackerServer(s grpc.ServiceRegistrar, srv TrackerServer) {
	s.RegisterService(&ServiceDesc, srv)
}
