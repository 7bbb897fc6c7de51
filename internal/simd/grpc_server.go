package simd

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/GoSim-25-26J-441/urban-simulation-core/pkg/logger"
	"github.com/GoSim-25-26J-441/urban-simulation-core/pkg/models"
)

// ScenarioServiceName is the fully qualified gRPC service name
const ScenarioServiceName = "urbansim.v1.ScenarioService"

// ScenarioServiceServer is served over gRPC with google.protobuf.Struct
// requests and responses carrying the same JSON documents as the HTTP API.
type ScenarioServiceServer interface {
	Score(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Optimize(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Compare(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type structCall func(ScenarioServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call structCall) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ScenarioServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + ScenarioServiceName + "/" + method,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ScenarioServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ScenarioServiceDesc describes ScenarioService for grpc.Server.RegisterService
var ScenarioServiceDesc = grpc.ServiceDesc{
	ServiceName: ScenarioServiceName,
	HandlerType: (*ScenarioServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Score", Handler: unaryHandler("Score", ScenarioServiceServer.Score)},
		{MethodName: "Optimize", Handler: unaryHandler("Optimize", ScenarioServiceServer.Optimize)},
		{MethodName: "Compare", Handler: unaryHandler("Compare", ScenarioServiceServer.Compare)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "urbansim/v1/scenario.proto",
}

// RegisterScenarioServiceServer registers srv on s
func RegisterScenarioServiceServer(s grpc.ServiceRegistrar, srv ScenarioServiceServer) {
	s.RegisterService(&ScenarioServiceDesc, srv)
}

// ScenarioGRPCServer implements ScenarioServiceServer on top of a Service
type ScenarioGRPCServer struct {
	service *Service
}

func NewScenarioGRPCServer(service *Service) *ScenarioGRPCServer {
	return &ScenarioGRPCServer{service: service}
}

func (s *ScenarioGRPCServer) Score(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req struct {
		Parameters *models.Parameters `json:"parameters"`
	}
	if err := fromStruct(in, &req); err != nil {
		return nil, err
	}
	if req.Parameters == nil {
		return nil, status.Error(codes.InvalidArgument, "parameters are required")
	}

	results, err := s.service.Score(*req.Parameters)
	if err != nil {
		return nil, status.Error(grpcCode(err), err.Error())
	}
	return toStruct(map[string]any{"results": results})
}

func (s *ScenarioGRPCServer) Optimize(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req OptimizeRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, err
	}

	results, err := s.service.Optimize(ctx, req)
	if err != nil {
		return nil, status.Error(grpcCode(err), err.Error())
	}
	logger.Info("optimization served (gRPC)", "target", req.Target, "results", len(results))
	return toStruct(map[string]any{"optimizations": results})
}

func (s *ScenarioGRPCServer) Compare(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req CompareRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, err
	}

	cm, err := s.service.Compare(ctx, req)
	if err != nil {
		return nil, status.Error(grpcCode(err), err.Error())
	}
	return toStruct(map[string]any{"comparison": cm})
}

// toStruct converts any JSON-encodable value into a Struct
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	return out, nil
}

// fromStruct decodes a Struct into dst through its JSON form
func fromStruct(in *structpb.Struct, dst any) error {
	if in == nil {
		in = &structpb.Struct{}
	}
	data, err := protojson.Marshal(in)
	if err != nil {
		return status.Error(codes.InvalidArgument, fmt.Sprintf("decode request: %v", err))
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return status.Error(codes.InvalidArgument, fmt.Sprintf("decode request: %v", err))
	}
	return nil
}

// ScenarioClient calls ScenarioService over a client connection
type ScenarioClient struct {
	cc grpc.ClientConnInterface
}

func NewScenarioClient(cc grpc.ClientConnInterface) *ScenarioClient {
	return &ScenarioClient{cc: cc}
}

func (c *ScenarioClient) invoke(ctx context.Context, method string, req, resp any, opts ...grpc.CallOption) error {
	in, err := toStruct(req)
	if err != nil {
		return err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ScenarioServiceName+"/"+method, in, out, opts...); err != nil {
		return err
	}
	return fromStruct(out, resp)
}

// Score scores params remotely
func (c *ScenarioClient) Score(ctx context.Context, params models.Parameters, opts ...grpc.CallOption) (models.Results, error) {
	var resp struct {
		Results models.Results `json:"results"`
	}
	err := c.invoke(ctx, "Score", map[string]any{"parameters": params}, &resp, opts...)
	return resp.Results, err
}

// Optimize runs an optimization remotely
func (c *ScenarioClient) Optimize(ctx context.Context, req OptimizeRequest, opts ...grpc.CallOption) ([]models.OptimizationResult, error) {
	var resp struct {
		Optimizations []models.OptimizationResult `json:"optimizations"`
	}
	err := c.invoke(ctx, "Optimize", req, &resp, opts...)
	return resp.Optimizations, err
}

// Compare compares stored runs remotely
func (c *ScenarioClient) Compare(ctx context.Context, req CompareRequest, opts ...grpc.CallOption) (models.ComparisonMetric, error) {
	var resp struct {
		Comparison models.ComparisonMetric `json:"comparison"`
	}
	err := c.invoke(ctx, "Compare", req, &resp, opts...)
	return resp.Comparison, err
}
