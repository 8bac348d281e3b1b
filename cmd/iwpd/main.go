// Command iwpd is the laser stream daemon: it listens for IWP datagrams,
// optionally plays an ILDA file, and exposes Prometheus metrics.
package main

import (
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/beamnet/laserstream"
	"github.com/beamnet/laserstream/config"
	"github.com/beamnet/laserstream/iwp"
)

var (
	debug      bool
	configPath string

	rootCmd = &cobra.Command{
		Use:   "iwpd",
		Short: "run the IWP laser stream daemon",
		Long:  "run the IWP laser stream daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Errorf("failed to execute command: %v", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debugging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "iwpd.yaml", "config file location")
}

func run() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	setupLogging(cfg.Log.Level)

	sys := laserstream.New(laserstream.Config{
		BindAddress: cfg.Listen.Address,
		Port:        cfg.Listen.Port,
		Decode:      iwp.Options{Lenient: cfg.Decode.Lenient},
		FPS:         cfg.Playback.FPS,
		Speed:       cfg.Playback.Speed,
		Loop:        cfg.Playback.Loop,
	})
	if err := sys.Start(); err != nil {
		return err
	}
	defer sys.Stop()

	if cfg.Metrics.Enabled {
		go serveMetrics(cfg.Metrics.Address)
	}

	if cfg.Playback.File != "" {
		if err := startPlayback(sys, cfg); err != nil {
			return err
		}
	}

	// Keep the stream drained so producers never hit the overflow path
	// when nobody else consumes events.
	go func() {
		for range sys.Subscribe() {
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	logrus.WithFields(logrus.Fields{
		"function": "run",
		"signal":   s.String(),
	}).Info("Shutting down")
	return nil
}

func setupLogging(level string) {
	if debug {
		level = "debug"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

func startPlayback(sys *laserstream.System, cfg config.Config) error {
	count, err := sys.LoadIldaFile(cfg.Playback.File)
	if err != nil && count == 0 {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"function": "startPlayback",
		"file":     cfg.Playback.File,
		"frames":   count,
	}).Info("Loaded ILDA file")

	if cfg.Forward.Enabled {
		dst := net.JoinHostPort(cfg.Forward.Address, strconv.Itoa(cfg.Forward.Port))
		if err := sys.EnableForwarding(dst, cfg.Forward.ScanRate); err != nil {
			return err
		}
	}

	sys.Play()
	return nil
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logrus.WithFields(logrus.Fields{
		"function": "serveMetrics",
		"address":  addr,
	}).Info("Metrics endpoint listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "serveMetrics",
			"error":    err.Error(),
		}).Error("Metrics endpoint failed")
	}
}
