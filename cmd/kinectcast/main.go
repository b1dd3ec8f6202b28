// Command kinectcast streams Kinect video and depth frames as NDI network
// video sources, reconnecting automatically when the device drops.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/kinectcast/kinectcast/internal/cli"
	"github.com/kinectcast/kinectcast/internal/device"
	"github.com/kinectcast/kinectcast/internal/freenect"
	"github.com/kinectcast/kinectcast/internal/logger"
	"github.com/kinectcast/kinectcast/internal/metrics"
	"github.com/kinectcast/kinectcast/internal/ndi"
	"github.com/kinectcast/kinectcast/internal/relay"
	"github.com/kinectcast/kinectcast/internal/transmit"
)

func main() {
	opts, code := cli.Parse("kinectcast", os.Args[1:], os.Stderr)
	if opts == nil {
		os.Exit(code)
	}

	level, err := logger.ParseLevel(opts.LogLevel)
	if err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}
	logger.Init(level, os.Stderr, opts.LogColor)

	// Transmitter init failure is fatal; nothing works without it.
	lib, err := ndi.Open()
	if err != nil {
		log.Fatalf("Failed to initialize transmitter: %v", err)
	}
	defer lib.Close()

	// Senders are created once and survive device reconnects; they are
	// destroyed only on process exit.
	videoName, depthName := opts.SenderNames()
	var videoSender, depthSender transmit.Sender
	if videoName != "" {
		if videoSender, err = lib.CreateSender(videoName); err != nil {
			log.Fatalf("Failed to create video sender: %v", err)
		}
		defer videoSender.Close()
	}
	if depthName != "" {
		if depthSender, err = lib.CreateSender(depthName); err != nil {
			log.Fatalf("Failed to create depth sender: %v", err)
		}
		defer depthSender.Close()
	}

	rly := relay.New()
	sup := device.NewSupervisor(freenect.New(), device.SupervisorConfig{
		Stream:      opts.Stream,
		DeviceIndex: opts.DeviceIndex,
	}, rly, videoSender, depthSender)

	if opts.MetricsAddr != "" {
		met := metrics.New(func() metrics.Snapshot { return snapshot(sup, rly) })
		go func() {
			logger.Info("Main", "Metrics server listening on %s", opts.MetricsAddr)
			if err := met.StartServer(opts.MetricsAddr); err != nil {
				logger.Error("Main", "Metrics server error: %v", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Main", "Starting Kinect streaming with auto-detection and reconnection...")
	sup.Run(ctx)
	logger.Info("Main", "Shutting down")
}

// snapshot merges the supervisor and relay counters for export.
func snapshot(sup *device.Supervisor, rly *relay.Relay) metrics.Snapshot {
	stats := sup.Stats()
	videoPublished, videoDropped := rly.VideoStats()
	depthPublished, depthDropped := rly.DepthStats()
	return metrics.Snapshot{
		State:                stats.State.String(),
		VideoFramesPublished: videoPublished,
		VideoFramesDropped:   videoDropped,
		VideoFramesSent:      stats.VideoFramesSent,
		DepthFramesPublished: depthPublished,
		DepthFramesDropped:   depthDropped,
		DepthFramesSent:      stats.DepthFramesSent,
		Reconnects:           stats.Reconnects,
		ConnectFailures:      stats.ConnectFailures,
		StreamErrors:         stats.StreamErrors,
	}
}
