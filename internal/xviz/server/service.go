// Package server streams converted or recorded scenes to XVIZ clients over
// gRPC. The service carries google.protobuf.Struct envelopes, so it is
// described by hand instead of through generated code.
package server

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "xviz.v2.SceneService"

// StreamSceneMethod is the full method name of the streaming RPC.
const StreamSceneMethod = "/" + ServiceName + "/StreamScene"

// SceneServer is the server API of the scene service.
type SceneServer interface {
	StreamScene(req *structpb.Struct, stream SceneStreamServer) error
}

// SceneStreamServer is the server side of a StreamScene call.
type SceneStreamServer interface {
	Send(*structpb.Struct) error
	grpc.ServerStream
}

type sceneStreamServer struct {
	grpc.ServerStream
}

func (s *sceneStreamServer) Send(m *structpb.Struct) error {
	return s.ServerStream.SendMsg(m)
}

func streamSceneHandler(srv any, stream grpc.ServerStream) error {
	req := &structpb.Struct{}
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(SceneServer).StreamScene(req, &sceneStreamServer{stream})
}

// ServiceDesc describes the scene service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SceneServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "StreamScene",
			Handler:       streamSceneHandler,
			ServerStreams: true,
		},
	},
	Metadata: "xviz/v2/scene_service.proto",
}

// Request selects the scene to stream and how to pace it.
type Request struct {
	Scene     string
	Rate      float64 // playback speed multiplier; 0 streams unpaced
	StartTime float64 // skip frames before this log time, seconds
}

// Struct encodes the request for the wire.
func (r Request) Struct() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"scene":      r.Scene,
		"rate":       r.Rate,
		"start_time": r.StartTime,
	})
}

// ParseRequest decodes a wire request. A missing rate means real time.
func ParseRequest(s *structpb.Struct) (Request, error) {
	f := s.GetFields()
	req := Request{
		Scene:     f["scene"].GetStringValue(),
		Rate:      1,
		StartTime: f["start_time"].GetNumberValue(),
	}
	if v, ok := f["rate"]; ok {
		req.Rate = v.GetNumberValue()
	}
	if req.Scene == "" {
		return req, fmt.Errorf("scene is required")
	}
	if req.Rate < 0 {
		return req, fmt.Errorf("rate must not be negative")
	}
	return req, nil
}

// Client calls the scene service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps a client connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// ClientStream receives envelopes from a StreamScene call.
type ClientStream struct {
	grpc.ClientStream
}

// Recv returns the next envelope, or io.EOF when the scene is done.
func (s *ClientStream) Recv() (*structpb.Struct, error) {
	m := &structpb.Struct{}
	if err := s.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// StreamScene starts streaming a scene.
func (c *Client) StreamScene(ctx context.Context, req Request, opts ...grpc.CallOption) (*ClientStream, error) {
	msg, err := req.Struct()
	if err != nil {
		return nil, err
	}
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], StreamSceneMethod, opts...)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(msg); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &ClientStream{stream}, nil
}
