package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"cdviz-collector/internal/config"
	"cdviz-collector/internal/transport"
)

func newHealthCommand(opts *globalOptions) *cobra.Command {
	var (
		addr    string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "health [kind/name]",
		Short: "Query the gRPC health service of a running collector",
		Long: `Ask a running collector for the health of the whole process, or of one
source or sink given as kind/name (e.g. sink/debug). Exits non-zero unless
the answer is SERVING. The address defaults to telemetry.grpc_addr.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				cfg, err := config.Resolve(opts.configPath)
				if err != nil {
					return err
				}
				addr = cfg.Telemetry.GRPCAddr
			}
			if addr == "" {
				return errors.New("health: no address, set --addr or telemetry.grpc_addr")
			}
			var service string
			if len(args) == 1 {
				service = args[0]
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			status, err := checkHealth(ctx, addr, service)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), status)
			if status != healthpb.HealthCheckResponse_SERVING {
				return fmt.Errorf("health: %s", status)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "health service address (default telemetry.grpc_addr)")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "give up after this long")
	return cmd
}

func checkHealth(ctx context.Context, addr, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	hc, cc, err := transport.Dial(addr)
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	defer cc.Close()
	resp, err := hc.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, fmt.Errorf("health: %w", err)
	}
	return resp.GetStatus(), nil
}
