package agentrpc

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/autoneg/negolog/internal/outcome"
	"github.com/autoneg/negolog/internal/preference"
	"github.com/autoneg/negolog/internal/session"
	"github.com/autoneg/negolog/internal/strategy"
)

// #region helpers
func models(t *testing.T) (buyer, seller *preference.Model) {
	t.Helper()
	space, err := outcome.NewSpace(
		outcome.Issue{Name: "price", Values: []string{"low", "medium", "high"}},
		outcome.Issue{Name: "quantity", Values: []string{"1", "2", "3"}},
		outcome.Issue{Name: "delivery", Values: []string{"fast", "normal", "slow"}},
	)
	if err != nil {
		t.Fatalf("NewSpace: %v", err)
	}
	weights := map[string]float64{"price": 0.5, "quantity": 0.3, "delivery": 0.2}
	b, err := preference.New(space, preference.Profile{
		IssueWeights: weights,
		ValueScores: map[string]map[string]float64{
			"price":    {"low": 1.0, "medium": 0.5, "high": 0.0},
			"quantity": {"1": 0.0, "2": 0.5, "3": 1.0},
			"delivery": {"fast": 1.0, "normal": 0.5, "slow": 0.0},
		},
	})
	if err != nil {
		t.Fatalf("buyer: %v", err)
	}
	s, err := preference.New(space, preference.Profile{
		IssueWeights: weights,
		ValueScores: map[string]map[string]float64{
			"price":    {"low": 0.0, "medium": 0.5, "high": 1.0},
			"quantity": {"1": 1.0, "2": 0.5, "3": 0.0},
			"delivery": {"fast": 0.0, "normal": 0.5, "slow": 1.0},
		},
	})
	if err != nil {
		t.Fatalf("seller: %v", err)
	}
	return b, s
}

type host struct {
	server *Server
	gs     *grpc.Server
	conn   *grpc.ClientConn
}

// startHost serves model's strategies over an in-memory listener.
func startHost(t *testing.T, model *preference.Model) host {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := NewServer(model)
	gs := grpc.NewServer(grpc.UnaryInterceptor(LoggingInterceptor(slog.Default())))
	Register(gs, srv)
	go gs.Serve(lis)

	conn, err := Dial("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() {
		conn.Close()
		gs.Stop()
	})
	return host{server: srv, gs: gs, conn: conn}
}

func localParty(t *testing.T, name, strat string, m *preference.Model, rounds int, seed int64) session.Party {
	t.Helper()
	st, err := strategy.New(strat, strategy.Params{Preference: m, Deadline: rounds, Seed: seed})
	if err != nil {
		t.Fatalf("strategy.New(%s): %v", strat, err)
	}
	return session.Party{Name: name, Strategy: st, Preference: m}
}

func remoteParty(t *testing.T, h host, name, strat string, m *preference.Model, rounds int, seed int64) (session.Party, *Remote) {
	t.Helper()
	cfg := DefaultRemoteConfig()
	cfg.Strategy = strat
	cfg.Timeout = 2 * time.Second
	r, err := NewRemote(h.conn, cfg, strategy.Params{Preference: m, Deadline: rounds, Seed: seed})
	if err != nil {
		t.Fatalf("NewRemote: %v", err)
	}
	return session.Party{Name: name, Strategy: r, Preference: m}, r
}

func run(t *testing.T, a, b session.Party, rounds int) (session.Result, error) {
	t.Helper()
	s, err := session.New(a, b, session.Config{Rounds: rounds})
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	return s.Run(context.Background())
}

// #endregion helpers

// #region remote-tests
func TestRemote_MatchesLocalSession(t *testing.T) {
	buyer, seller := models(t)
	h := startHost(t, buyer)

	remoteA, _ := remoteParty(t, h, "buyer", "boulware", buyer, 100, 1)
	remote, err := run(t, remoteA, localParty(t, "seller", "conceder", seller, 100, 2), 100)
	if err != nil {
		t.Fatalf("remote run: %v", err)
	}
	local, err := run(t, localParty(t, "buyer", "boulware", buyer, 100, 1), localParty(t, "seller", "conceder", seller, 100, 2), 100)
	if err != nil {
		t.Fatalf("local run: %v", err)
	}

	if !remote.Agreed() || remote.UtilityA != local.UtilityA || remote.UtilityB != local.UtilityB {
		t.Fatalf("remote %s %v/%v, local %s %v/%v",
			remote.State, remote.UtilityA, remote.UtilityB, local.State, local.UtilityA, local.UtilityB)
	}
	if len(remote.Steps) != len(local.Steps) {
		t.Fatalf("expected %d steps, got %d", len(local.Steps), len(remote.Steps))
	}
	for i := range local.Steps {
		if !remote.Steps[i].Bid.Equal(local.Steps[i].Bid) || remote.Steps[i].Action != local.Steps[i].Action {
			t.Fatalf("step %d diverged", i)
		}
	}
	if remote.Steps[0].Trace == nil || remote.Steps[0].Trace.Target != 1 {
		t.Errorf("expected host trace on first offer, got %+v", remote.Steps[0].Trace)
	}
	if n := h.server.Active(); n != 0 {
		t.Errorf("expected hosted sessions released, %d left", n)
	}
}

func TestRemote_UnknownStrategyEndsInError(t *testing.T) {
	buyer, seller := models(t)
	h := startHost(t, buyer)

	a, r := remoteParty(t, h, "buyer", "nope", buyer, 10, 1)
	res, err := run(t, a, localParty(t, "seller", "linear", seller, 10, 2), 10)
	if !errors.Is(err, session.ErrNoAction) {
		t.Fatalf("expected ErrNoAction, got %v", err)
	}
	if res.State != session.StateError {
		t.Errorf("expected error state, got %s", res.State)
	}
	if status.Code(errors.Unwrap(r.Err())) != codes.InvalidArgument {
		t.Errorf("expected InvalidArgument from host, got %v", r.Err())
	}
}

func TestRemote_TransportFailureYieldsNone(t *testing.T) {
	buyer, _ := models(t)
	h := startHost(t, buyer)
	_, r := remoteParty(t, h, "buyer", "linear", buyer, 10, 1)

	r.Initiate("seller")
	if act := r.Act(0); act.Kind != strategy.ActionOffer {
		t.Fatalf("expected an offer from a live host, got %s", act.Kind)
	}
	h.gs.Stop()
	if act := r.Act(0.1); act.Kind != strategy.ActionNone {
		t.Fatalf("expected None after host shutdown, got %s", act.Kind)
	}
	if r.Err() == nil {
		t.Error("expected transport error to be recorded")
	}
	// Terminate must not block or panic without a host.
	r.Terminate(false, "seller", 0)
}

func TestNewRemote_NilPreference(t *testing.T) {
	if _, err := NewRemote(nil, DefaultRemoteConfig(), strategy.Params{}); !errors.Is(err, strategy.ErrInvalidParams) {
		t.Fatalf("expected ErrInvalidParams, got %v", err)
	}
}

// #endregion remote-tests

// #region server-tests
func TestServer_SessionLifecycle(t *testing.T) {
	buyer, _ := models(t)
	srv := NewServer(buyer)
	ctx := context.Background()
	req := func(fields map[string]any) *structpb.Struct {
		t.Helper()
		s, err := structpb.NewStruct(fields)
		if err != nil {
			t.Fatalf("NewStruct: %v", err)
		}
		return s
	}

	if _, err := srv.Act(ctx, req(map[string]any{"session": "s1", "time": 0.0})); status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound before Initiate, got %v", err)
	}
	if _, err := srv.Initiate(ctx, req(map[string]any{"strategy": "linear"})); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument without session, got %v", err)
	}

	start := req(map[string]any{"session": "s1", "strategy": "linear", "opponent": "x", "deadline": 10.0, "seed": 1.0})
	if _, err := srv.Initiate(ctx, start); err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	if _, err := srv.Initiate(ctx, start); status.Code(err) != codes.AlreadyExists {
		t.Fatalf("expected AlreadyExists, got %v", err)
	}

	out, err := srv.Act(ctx, req(map[string]any{"session": "s1", "time": 0.0}))
	if err != nil {
		t.Fatalf("Act: %v", err)
	}
	if stringField(out, "action") != "offer" {
		t.Fatalf("expected offer, got %v", out)
	}
	bid, err := decodeBid(buyer.Space(), structField(out, "offer"))
	if err != nil || buyer.Utility(bid) != 1 {
		t.Errorf("expected best bid as opening offer, got %v (%v)", bid.Key(), err)
	}

	bad := req(map[string]any{"session": "s1", "time": 0.1, "offer": map[string]any{"price": "free"}})
	if _, err := srv.ReceiveOffer(ctx, bad); status.Code(err) != codes.InvalidArgument {
		t.Errorf("expected InvalidArgument for bad offer, got %v", err)
	}

	if _, err := srv.Terminate(ctx, req(map[string]any{"session": "s1", "agreed": false, "score": 0.0})); err != nil {
		t.Fatalf("Terminate: %v", err)
	}
	if srv.Active() != 0 {
		t.Errorf("expected no active sessions, got %d", srv.Active())
	}
}

func TestDecodeBid(t *testing.T) {
	buyer, _ := models(t)
	space := buyer.Space()
	b := outcome.NewBid(2, 0, 1)
	s, err := structpb.NewStruct(encodeBid(space, b))
	if err != nil {
		t.Fatalf("NewStruct: %v", err)
	}
	got, err := decodeBid(space, s)
	if err != nil || !got.Equal(b) {
		t.Fatalf("expected %s, got %s (%v)", b.Key(), got.Key(), err)
	}

	numeric, _ := structpb.NewStruct(map[string]any{"price": 1.0, "quantity": "1", "delivery": "fast"})
	if _, err := decodeBid(space, numeric); !errors.Is(err, outcome.ErrInvalidBid) {
		t.Errorf("expected ErrInvalidBid for numeric value, got %v", err)
	}
	if _, err := decodeBid(space, nil); !errors.Is(err, outcome.ErrInvalidBid) {
		t.Errorf("expected ErrInvalidBid for missing offer, got %v", err)
	}
}

// #endregion server-tests
