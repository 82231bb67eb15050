package agentrpc

import (
	"context"
	"log/slog"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/autoneg/negolog/internal/preference"
	"github.com/autoneg/negolog/internal/strategy"
)

// #region service-desc
var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*StrategyServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodInitiate, Handler: unary(MethodInitiate, StrategyServer.Initiate)},
		{MethodName: MethodReceiveOffer, Handler: unary(MethodReceiveOffer, StrategyServer.ReceiveOffer)},
		{MethodName: MethodAct, Handler: unary(MethodAct, StrategyServer.Act)},
		{MethodName: MethodTerminate, Handler: unary(MethodTerminate, StrategyServer.Terminate)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "negolog/strategy",
}

type call func(StrategyServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(method string, fn call) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return fn(srv.(StrategyServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
		handler := func(ctx context.Context, req any) (any, error) {
			return fn(srv.(StrategyServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Register attaches a StrategyServer to a gRPC server.
func Register(r grpc.ServiceRegistrar, srv StrategyServer) {
	r.RegisterService(&serviceDesc, srv)
}
// #endregion service-desc

// #region server
// Server hosts strategies for remote sessions. Each session gets a fresh
// instance built from the catalog over the host's own preference model.
type Server struct {
	model    *preference.Model
	resolve  func(name string, p strategy.Params) (strategy.Strategy, error)
	logger   *slog.Logger
	mu       sync.Mutex
	sessions map[string]strategy.Strategy
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger sets the server logger.
func WithServerLogger(l *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = l }
}

// WithFactory replaces the strategy catalog lookup.
func WithFactory(fn func(name string, p strategy.Params) (strategy.Strategy, error)) ServerOption {
	return func(s *Server) { s.resolve = fn }
}

// NewServer hosts strategies negotiating with model's preferences.
func NewServer(model *preference.Model, opts ...ServerOption) *Server {
	s := &Server{
		model:    model,
		resolve:  strategy.New,
		logger:   slog.Default(),
		sessions: make(map[string]strategy.Strategy),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Active returns the number of sessions currently hosted.
func (s *Server) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) lookup(in *structpb.Struct) (string, strategy.Strategy, error) {
	id := stringField(in, "session")
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[id]
	if !ok {
		return id, nil, status.Errorf(codes.NotFound, "unknown session %q", id)
	}
	return id, st, nil
}
// #endregion server

// #region handlers
// Initiate builds the requested strategy for a new session.
func (s *Server) Initiate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id := stringField(in, "session")
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "missing session")
	}
	name := stringField(in, "strategy")
	st, err := s.resolve(name, strategy.Params{
		Preference: s.model,
		Deadline:   int(numberField(in, "deadline")),
		Seed:       int64(numberField(in, "seed")),
		Logger:     s.logger,
	})
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "build strategy: %v", err)
	}

	s.mu.Lock()
	if _, dup := s.sessions[id]; dup {
		s.mu.Unlock()
		return nil, status.Errorf(codes.AlreadyExists, "session %q already initiated", id)
	}
	s.sessions[id] = st
	s.mu.Unlock()

	st.Initiate(stringField(in, "opponent"))
	s.logger.Debug("remote session initiated", "session", id, "strategy", name)
	return structpb.NewStruct(map[string]any{"strategy": st.Name()})
}

// ReceiveOffer delivers the opponent's offer to the hosted strategy.
func (s *Server) ReceiveOffer(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	_, st, err := s.lookup(in)
	if err != nil {
		return nil, err
	}
	bid, err := decodeBid(s.model.Space(), structField(in, "offer"))
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "offer: %v", err)
	}
	st.ReceiveOffer(bid, numberField(in, "time"))
	return &structpb.Struct{}, nil
}

// Act asks the hosted strategy for its next move.
func (s *Server) Act(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	_, st, err := s.lookup(in)
	if err != nil {
		return nil, err
	}
	act := st.Act(numberField(in, "time"))
	out := map[string]any{"action": act.Kind.String()}
	if act.Kind == strategy.ActionOffer {
		out["offer"] = encodeBid(s.model.Space(), act.Bid)
	}
	if tr, ok := st.(strategy.Tracer); ok {
		trace := tr.LastTrace()
		out["target"] = trace.Target
		out["threshold"] = trace.Threshold
	}
	resp, err := structpb.NewStruct(out)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode action: %v", err)
	}
	return resp, nil
}

// Terminate ends the session and releases the hosted strategy.
func (s *Server) Terminate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, st, err := s.lookup(in)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()

	st.Terminate(boolField(in, "agreed"), stringField(in, "opponent"), numberField(in, "score"))
	s.logger.Debug("remote session terminated", "session", id, "agreed", boolField(in, "agreed"))
	return &structpb.Struct{}, nil
}
// #endregion handlers

// #region interceptor
// LoggingInterceptor logs every call with its outcome at debug level.
func LoggingInterceptor(l *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		if err != nil {
			l.Warn("rpc failed", "method", info.FullMethod, "code", status.Code(err).String(), "err", err)
			return nil, err
		}
		l.Debug("rpc", "method", info.FullMethod)
		return resp, nil
	}
}
// #endregion interceptor
