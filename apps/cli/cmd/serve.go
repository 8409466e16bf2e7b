package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitrelay/packages/core/config"
	"github.com/abdul-hamid-achik/hitrelay/packages/flow"
	relayhttp "github.com/abdul-hamid-achik/hitrelay/packages/http"
	"github.com/abdul-hamid-achik/hitrelay/packages/output"
	"github.com/abdul-hamid-achik/hitrelay/packages/relay"
	"github.com/abdul-hamid-achik/hitrelay/packages/server"
	"github.com/abdul-hamid-achik/hitrelay/packages/stats"
)

var (
	hostFlag             string
	portFlag             int
	flowAllowPrivateFlag bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the relay server",
	Long: `Start the relay HTTP server.

Routes:
  POST /api     relay a request and return its envelope
  POST /graphql relay a GraphQL call
  POST /flow    run a request flow node by node
  GET  /health  liveness check
  GET  /stats   call counts and latency percentiles
  GET  /metrics the same in Prometheus text format

Examples:
  hitrelay serve
  hitrelay serve --port 9000
  hitrelay serve --config ./hitrelay.yaml --log-level debug
  hitrelay serve --timeout 30s --insecure`,
	Args: cobra.NoArgs,
	RunE: serveCommand,
}

func init() {
	serveCmd.Flags().StringVar(&hostFlag, "host", getEnvString("HITRELAY_HOST", ""), "Interface to listen on (env: HITRELAY_HOST)")
	serveCmd.Flags().IntVarP(&portFlag, "port", "p", getEnvInt("HITRELAY_PORT", 0), "Port to listen on (default 8080) (env: HITRELAY_PORT)")
	serveCmd.Flags().BoolVar(&flowAllowPrivateFlag, "flow-allow-private", getEnvBool("HITRELAY_FLOW_ALLOW_PRIVATE", false), "Let flows reach loopback and private addresses (env: HITRELAY_FLOW_ALLOW_PRIVATE)")
	addClientFlags(serveCmd)
}

func serveCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings()
	if err != nil {
		return err
	}
	override := &config.Config{Host: hostFlag, Port: portFlag}
	if flowAllowPrivateFlag {
		override.FlowAllowPrivate = config.BoolPtr(true)
	}
	cfg = cfg.Merge(override)
	if err := cfg.Validate(); err != nil {
		return withExitCode(ExitConfigError, err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	collector := stats.NewCollector()
	r := relay.New(newClient(cfg),
		relay.WithLogger(logger),
		relay.WithRecorder(collector),
		relay.WithFileRoot(cfg.FileRoot),
	)
	srv := server.NewServer(r,
		server.WithAddr(cfg.Addr()),
		server.WithLogger(logger),
		server.WithStats(collector),
		server.WithAllowedHeaders(cfg.AllowedHeaders),
		server.WithFlowRunner(newFlowRunner(cfg, logger, collector)),
	)

	console := output.NewConsoleFormatter(
		output.WithWriter(cmd.OutOrStdout()),
		output.WithNoColor(noColorFlag),
	)
	console.FormatBanner(version, srv.Addr(), []string{"POST /api", "POST /graphql", "POST /flow", "GET  /health", "GET  /stats", "GET  /metrics"})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.StartWithContext(ctx); err != nil {
		return withExitCode(ExitNetworkError, fmt.Errorf("server error: %w", err))
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Relay stopped")
	return nil
}

// newFlowRunner builds the runner behind POST /flow. Unless private targets
// are allowed, its client refuses internal addresses at dial time as well as
// before each node is sent.
func newFlowRunner(cfg *config.Config, logger logrus.FieldLogger, collector *stats.Collector) *flow.Runner {
	if cfg.GetFlowAllowPrivate() {
		r := relay.New(newClient(cfg), relay.WithLogger(logger), relay.WithRecorder(collector))
		return flow.NewRunner(r, flow.WithLogger(logger), flow.WithAddressGuard(nil))
	}

	guard := flow.NewAddressGuard(nil)
	client := newClient(cfg, relayhttp.WithDialControl(guard.Control))
	r := relay.New(client, relay.WithLogger(logger), relay.WithRecorder(collector))
	return flow.NewRunner(r, flow.WithLogger(logger), flow.WithAddressGuard(guard))
}
