package agentrpc

import (
	"context"
	"time"

	"google.golang.org/protobuf/types/known/structpb"
)

// #region service
// ServiceName is the fully qualified gRPC service a hosted strategy answers on.
const ServiceName = "negolog.StrategyService"

// Method names, as used in full method paths ("/negolog.StrategyService/Act").
const (
	MethodInitiate     = "Initiate"
	MethodReceiveOffer = "ReceiveOffer"
	MethodAct          = "Act"
	MethodTerminate    = "Terminate"
)

// StrategyServer is the server side of the strategy contract. Every message is a
// structpb.Struct so no generated code is needed on either side.
//
// Request fields:
//
//	Initiate:     session, strategy, opponent, deadline, seed
//	ReceiveOffer: session, offer {issue: value}, time
//	Act:          session, time
//	Terminate:    session, agreed, opponent, score
//
// Act responds with action ("offer" | "accept" | "none"), offer, target, threshold.
type StrategyServer interface {
	Initiate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	ReceiveOffer(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Act(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Terminate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}
// #endregion service

// #region config
// RemoteConfig configures a client-side proxy for a hosted strategy.
type RemoteConfig struct {
	Strategy string        // catalog name requested from the host
	Timeout  time.Duration // per call
}

// DefaultRemoteConfig returns a boulware proxy with a 5 second call timeout.
func DefaultRemoteConfig() RemoteConfig {
	return RemoteConfig{
		Strategy: "boulware",
		Timeout:  5 * time.Second,
	}
}
// #endregion config
