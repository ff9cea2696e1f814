// Command cam-animator records two named positions on a VISCA PTZ
// camera and sweeps the camera smoothly between them.
//
// Modes:
//
//	start    capture the camera's current position as the sweep start
//	end      capture the camera's current position as the sweep end
//	prepare  move the camera to the saved start position at full speed
//	run      animate from the saved start to the saved end
//	serve    web UI with live preview for framing and running sweeps
package main

import (
	"context"
	"embed"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"cam-animator/internal/motion"
	"cam-animator/internal/server"
	"cam-animator/internal/store"
	"cam-animator/internal/transport"
	"cam-animator/internal/visca"
)

//go:embed web/*
var staticFiles embed.FS

func main() {
	device := flag.String("device", "", "camera address (UDP host:port, or serial device path)")
	transportKind := flag.String("transport", "udp", "camera transport (udp or serial)")
	positionsDir := flag.String("positions", defaultPositionsDir(), "directory for saved positions")
	seconds := flag.Float64("seconds", 5, "animation duration in seconds (run mode)")
	listenAddr := flag.String("listen", ":8080", "HTTP listen address (serve mode)")
	rtspURL := flag.String("rtsp", "", "RTSP URL for the framing preview (serve mode)")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 1 {
		usage()
		os.Exit(2)
	}
	mode := flag.Arg(0)

	if *device == "" {
		log.Fatalf("%s: -device is required", mode)
	}

	if mode == "serve" {
		serve(server.Config{
			ListenAddr:    *listenAddr,
			DeviceAddress: *device,
			Transport:     *transportKind,
			PreviewURL:    *rtspURL,
			PositionsDir:  *positionsDir,
		})
		return
	}

	// Animation and capture modes cancel cleanly on interrupt; the
	// driver only acts on this between steps, so a step's command pair
	// is never cut in half.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := runMode(ctx, mode, *device, *transportKind, *positionsDir, *seconds); err != nil {
		log.Fatalf("camera %s: %s failed: %v", *device, mode, err)
	}
}

func runMode(ctx context.Context, mode, device, transportKind, positionsDir string, seconds float64) error {
	t, err := dialTransport(transportKind, device)
	if err != nil {
		return err
	}
	camera := visca.NewController(t)
	defer camera.Close()

	positions := store.New(positionsDir)

	switch mode {
	case "start", "end":
		pos, err := camera.QueryPosition(ctx)
		if err != nil {
			return err
		}
		if err := positions.Save(device, mode, pos); err != nil {
			return err
		}
		log.Printf("%s position saved for camera %s: %s", mode, device, pos)
		return nil

	case "prepare":
		start, err := positions.Load(device, "start")
		if err != nil {
			return err
		}
		if err := camera.MoveTo(ctx, start, visca.SpeedMax, visca.SpeedMax); err != nil {
			return err
		}
		log.Printf("camera %s moved to the start position", device)
		return nil

	case "run":
		start, err := positions.Load(device, "start")
		if err != nil {
			return err
		}
		end, err := positions.Load(device, "end")
		if err != nil {
			return err
		}

		plan, err := motion.NewPlan(start, end, seconds, motion.StepsPerSecond)
		if err != nil {
			return err
		}

		log.Printf("animating camera %s from start to end over %gs (%d steps)", device, seconds, len(plan.Steps))
		if err := motion.NewDriver(camera).Run(ctx, plan); err != nil {
			if errors.Is(err, context.Canceled) {
				log.Printf("animation interrupted")
				return nil
			}
			return err
		}
		log.Printf("animation complete")
		return nil

	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
}

func serve(cfg server.Config) {
	srv, err := server.New(cfg, staticFiles)
	if err != nil {
		log.Fatalf("serve: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutting down...")
		srv.Stop()
		os.Exit(0)
	}()

	log.Printf("Cam Animator")
	log.Printf("  Listen: %s", cfg.ListenAddr)
	log.Printf("  Camera: %s (%s)", cfg.DeviceAddress, cfg.Transport)
	if cfg.PreviewURL != "" {
		log.Printf("  Preview: %s", cfg.PreviewURL)
	}
	log.Printf("  Positions: %s", cfg.PositionsDir)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("serve: %v", err)
	}
}

func dialTransport(kind, device string) (transport.Transport, error) {
	switch kind {
	case "udp":
		return transport.DialUDP(device)
	case "serial":
		return transport.OpenSerial(device)
	default:
		return nil, fmt.Errorf("unsupported transport %q", kind)
	}
}

func defaultPositionsDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return "ptz_positions"
	}
	return filepath.Join(base, "cam-animator", "positions")
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] start|end|prepare|run|serve\n\nFlags:\n", os.Args[0])
	flag.PrintDefaults()
}
