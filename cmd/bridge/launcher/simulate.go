package launcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"gopkg.in/urfave/cli.v1"

	"github.com/rony4d/beefy-bridge/evmcore"
	"github.com/rony4d/beefy-bridge/integration"
	"github.com/rony4d/beefy-bridge/logger"
)

var errNoFakeNet = errors.New("command needs a devnet, use --fakenet N")

func makeLogger(cfg Config) (*logrus.Logger, error) {
	log, err := logger.New(cfg.Node.Logging)
	if err != nil {
		return nil, err
	}
	if cfg.Node.Name != "" {
		log.AddHook(nodeNameHook(cfg.Node.Name))
	}
	return log, nil
}

// nodeNameHook tags every entry with the node name.
type nodeNameHook string

func (h nodeNameHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h nodeNameHook) Fire(e *logrus.Entry) error {
	e.Data["node"] = string(h)
	return nil
}

// startMetricsServer exposes the default Prometheus registry.
func startMetricsServer(cfg MetricsConfig, log *logrus.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: cfg.Endpoint(), Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("Metrics server failed")
		}
	}()
	log.WithField("addr", cfg.Endpoint()).Info("Metrics server started")
	return srv
}

func simulate(ctx *cli.Context) error {
	cfg, err := MakeAllConfigs(ctx)
	if err != nil {
		return err
	}
	if cfg.Network.FakeNet == 0 {
		return errNoFakeNet
	}
	log, err := makeLogger(cfg)
	if err != nil {
		return err
	}
	gen, keys, err := cfg.MakeGenesis()
	if err != nil {
		return err
	}

	b, err := integration.MakeBridge(cfg.IntegrationConfig(gen), evmcore.NewLedger(nil), log)
	if err != nil {
		return err
	}
	defer b.Close()
	if cfg.Node.Metrics.Enabled {
		srv := startMetricsServer(cfg.Node.Metrics, log)
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
	}

	submitter := crypto.PubkeyToAddress(keys[0].PublicKey)
	relay, err := integration.NewRelay(b, keys, ctx.Int("sim.signers"), submitter)
	if err != nil {
		return err
	}
	res, err := integration.Simulate(b, relay, integration.SimulationConfig{
		Rounds:           ctx.Int("sim.rounds"),
		MessagesPerRound: ctx.Int("sim.messages"),
		Amount:           ctx.Uint64("sim.amount"),
		Sender:           submitter,
		Recipient:        crypto.PubkeyToAddress(keys[len(keys)-1].PublicKey),
	})
	if err != nil {
		return err
	}

	w := ctx.App.Writer
	fmt.Fprintf(w, "completions: %d\n", res.Completions)
	fmt.Fprintf(w, "delivered:   %d (failed %d)\n", res.Delivered, res.Failed)
	fmt.Fprintf(w, "beefy block: %d\n", res.BeefyBlock)
	fmt.Fprintf(w, "mmr root:    %s\n", res.MMRRoot.Hex())
	fmt.Fprintf(w, "nonce:       %d\n", res.Nonce)
	fmt.Fprintf(w, "locked:      %s\n", res.Locked.ToBig())
	fmt.Fprintf(w, "unlocked:    %s\n", res.Unlocked.ToBig())
	return nil
}
