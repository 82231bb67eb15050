package agentrpc

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/autoneg/negolog/internal/outcome"
	"github.com/autoneg/negolog/internal/strategy"
)

// #region dial
// Dial connects to a strategy host.
func Dial(addr string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return conn, nil
}
// #endregion dial

// #region remote
// Remote is a strategy.Strategy whose decisions are made by a strategy host.
// Any transport failure during Act yields the None action, which ends the
// session in error.
type Remote struct {
	conn    grpc.ClientConnInterface
	cfg     RemoteConfig
	params  strategy.Params
	space   *outcome.Space
	session string
	logger  *slog.Logger
	trace   strategy.Trace
	err     error
}

// NewRemote proxies cfg.Strategy over conn. p.Preference supplies the outcome
// space used to encode bids; the host evaluates them with its own preferences.
func NewRemote(conn grpc.ClientConnInterface, cfg RemoteConfig, p strategy.Params) (*Remote, error) {
	if p.Preference == nil {
		return nil, fmt.Errorf("%w: nil preference model", strategy.ErrInvalidParams)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRemoteConfig().Timeout
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Remote{
		conn:    conn,
		cfg:     cfg,
		params:  p,
		space:   p.Preference.Space(),
		session: uuid.New().String(),
		logger:  logger.With("strategy", cfg.Strategy),
	}, nil
}

// Factory returns a strategy.Factory building remote proxies for name on conn.
func Factory(conn grpc.ClientConnInterface, name string) strategy.Factory {
	return func(p strategy.Params) (strategy.Strategy, error) {
		cfg := DefaultRemoteConfig()
		cfg.Strategy = name
		return NewRemote(conn, cfg, p)
	}
}

// Name returns the hosted strategy's catalog name.
func (r *Remote) Name() string { return r.cfg.Strategy }

// LastTrace returns the host's trace for the most recent Act.
func (r *Remote) LastTrace() strategy.Trace { return r.trace }

// Err returns the first transport error seen, if any.
func (r *Remote) Err() error { return r.err }
// #endregion remote

// #region calls
func (r *Remote) invoke(method string, fields map[string]any) (*structpb.Struct, error) {
	fields["session"] = r.session
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", method, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.Timeout)
	defer cancel()
	out := new(structpb.Struct)
	if err := r.conn.Invoke(ctx, fullMethod(method), in, out); err != nil {
		return nil, fmt.Errorf("%s rpc: %w", method, err)
	}
	return out, nil
}

func (r *Remote) fail(err error) {
	if r.err == nil {
		r.err = err
	}
	r.logger.Warn("remote strategy call failed", "session", r.session, "err", err)
}

// Initiate starts a fresh hosted instance under a new session id.
func (r *Remote) Initiate(opponent string) {
	r.session = uuid.New().String()
	r.err = nil
	r.trace = strategy.Trace{}
	_, err := r.invoke(MethodInitiate, map[string]any{
		"strategy": r.cfg.Strategy,
		"opponent": opponent,
		"deadline": float64(r.params.Deadline),
		"seed":     float64(r.params.Seed),
	})
	if err != nil {
		r.fail(err)
	}
}

// ReceiveOffer forwards the opponent's offer.
func (r *Remote) ReceiveOffer(bid outcome.Bid, t float64) {
	if r.err != nil {
		return
	}
	_, err := r.invoke(MethodReceiveOffer, map[string]any{
		"offer": encodeBid(r.space, bid),
		"time":  t,
	})
	if err != nil {
		r.fail(err)
	}
}

// Act asks the host for a move. Failures, including earlier ones, yield None.
func (r *Remote) Act(t float64) strategy.Action {
	if r.err != nil {
		return strategy.None()
	}
	out, err := r.invoke(MethodAct, map[string]any{"time": t})
	if err != nil {
		r.fail(err)
		return strategy.None()
	}
	r.trace = strategy.Trace{Target: numberField(out, "target"), Threshold: numberField(out, "threshold")}

	switch strategy.ParseActionKind(stringField(out, "action")) {
	case strategy.ActionAccept:
		return strategy.Accept()
	case strategy.ActionOffer:
		bid, err := decodeBid(r.space, structField(out, "offer"))
		if err != nil {
			r.fail(fmt.Errorf("decode offer: %w", err))
			return strategy.None()
		}
		return strategy.Offer(bid)
	default:
		return strategy.None()
	}
}

// Terminate tells the host the session is over. It is sent even after a
// transport failure so the host can release the instance.
func (r *Remote) Terminate(agreed bool, opponent string, finalScore float64) {
	_, err := r.invoke(MethodTerminate, map[string]any{
		"agreed":   agreed,
		"opponent": opponent,
		"score":    finalScore,
	})
	if err != nil {
		r.logger.Debug("remote terminate failed", "session", r.session, "err", err)
	}
}
// #endregion calls
