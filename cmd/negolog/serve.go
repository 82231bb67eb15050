package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/autoneg/negolog/internal/agentrpc"
)

// #region serve-cmd
var (
	serveSide string
	serveAddr string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Host strategies for remote sessions",
	Long: `Serve the strategy catalog over gRPC with one party's preferences from the
scenario. Sessions elsewhere reach it through a party "remote" address or the
tournament --remote flag.

Examples:
  negolog serve --side b
  NEGOLOG_ADDR=:50061 negolog serve -s scenario.yaml --side a`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveSide, "side", "a", "whose preferences the hosted strategies use, a or b")
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: scenario rpc.addr or $NEGOLOG_ADDR)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	sc, err := loadScenario()
	if err != nil {
		return err
	}
	built, err := sc.Build()
	if err != nil {
		return err
	}
	model := built.ModelA
	switch serveSide {
	case "a", "A":
	case "b", "B":
		model = built.ModelB
	default:
		return fmt.Errorf("side must be a or b, got %q", serveSide)
	}
	addr := sc.RPC.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	logger := slog.Default()
	gs := grpc.NewServer(grpc.UnaryInterceptor(agentrpc.LoggingInterceptor(logger)))
	agentrpc.Register(gs, agentrpc.NewServer(model, agentrpc.WithServerLogger(logger)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		logger.Info("shutting down strategy host")
		gs.GracefulStop()
	}()

	logger.Info("strategy host listening", "addr", lis.Addr().String(), "side", serveSide, "scenario", sc.Name)
	if err := gs.Serve(lis); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
// #endregion serve-cmd
