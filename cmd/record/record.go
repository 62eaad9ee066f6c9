// Package record implements the record subcommand: capture, process,
// and write a session WAV until interrupted.
package record

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/audiocore"
	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/conf"
	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/diagnostics"
	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/logging"
	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/observability"
	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/recorder"
)

// Command creates the record subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a work session to a WAV file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecord(settings)
		},
	}

	cmd.Flags().Bool("loopback", false, "Also capture system audio")
	cmd.Flags().Bool("diagnostics", false, "Serve diagnostics HTTP endpoints")

	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		if v, err := cmd.Flags().GetBool("loopback"); err == nil && v {
			settings.Audio.Loopback.Enabled = true
		}
		if v, err := cmd.Flags().GetBool("diagnostics"); err == nil && v {
			settings.Diagnostics.Enabled = true
		}
	}
	return cmd
}

func runRecord(settings *conf.Settings) error {
	log := logging.ForService("record")

	var collector audiocore.MetricsCollector = audiocore.NoopMetrics()
	var metrics *observability.Metrics
	if settings.Diagnostics.Enabled {
		var err error
		metrics, err = observability.NewMetrics()
		if err != nil {
			return err
		}
		collector = metrics.AudioCore
	}

	rec, err := recorder.New(settings, collector)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if settings.Diagnostics.Enabled {
		srv := diagnostics.NewServer(metrics, func() diagnostics.PipelineStatus {
			return diagnostics.PipelineStatus{
				GraphState: rec.GraphState(),
				Health:     rec.Health().Snapshot(),
			}
		})
		go func() {
			if err := srv.Start(settings.Diagnostics.Listen); err != nil {
				log.Error("diagnostics server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Warn("diagnostics shutdown failed", "error", err)
			}
		}()
	}

	log.Info("starting capture", "output", rec.OutputPath(),
		"device", settings.Audio.Capture.Device,
		"loopback", settings.Audio.Loopback.Enabled)
	return rec.Run(ctx)
}
