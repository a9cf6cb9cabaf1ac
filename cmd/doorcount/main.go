// doorcount serves a people counting MJPEG stream from a doorway camera.
//
// Configuration is taken from the environment, optionally seeded from a
// dotenv file given with -env.  CAMERA_URL and MODEL_PATH are required.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"doorcount"
	"doorcount/counter"
	"doorcount/detect"
	"doorcount/fusion"
	"doorcount/render"
	"doorcount/stream"
	"doorcount/tracker"
)

func main() {
	envFile := flag.String("env", "", "Optional dotenv file with configuration")
	flag.Parse()

	cfg, err := doorcount.ConfigFromEnv(*envFile)

	if err != nil {
		log.Fatalf("error loading configuration: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	detector, err := detect.NewDNNDetector(cfg.ModelPath, cfg.ModelConfig)

	if err != nil {
		log.Fatalf("error loading detection model: %v", err)
	}
	defer detector.Close()

	if cfg.LabelsPath != "" {
		labels, err := detect.LoadLabels(cfg.LabelsPath)

		if err != nil {
			log.Fatalf("error loading labels: %v", err)
		}

		if id := detect.FindClass(labels, "person"); id >= 0 {
			cfg.PersonClassID = id
			log.Infof("person class id %d resolved from %s", id, cfg.LabelsPath)
		}
	}

	zones, err := counter.NewZones(cfg.LineStart, cfg.LineEnd, cfg.LineOffset,
		image.Rect(0, 0, cfg.FrameWidth, cfg.FrameHeight))

	if err != nil {
		log.Fatalf("error building counting zones: %v", err)
	}

	fuser := fusion.NewFuser(fusion.Config{
		PersonClass:       cfg.PersonClassID,
		ConfThreshold:     cfg.ConfThreshold,
		HighConfThreshold: cfg.HighConfThreshold,
		NMSThreshold:      cfg.NMSThreshold,
		MotionOverlap:     cfg.MotionOverlap,
		Mode:              overlapMode(cfg.OverlapMode),
		MinAspect:         cfg.MinAspect,
		MaxAspect:         cfg.MaxAspect,
		MinArea:           cfg.MinBoxArea,
		MaxArea:           cfg.MaxBoxArea,
	}, cfg.MotionMinArea)
	defer fuser.Close()

	overlay := render.NewOverlay(render.DefaultFont())

	if cfg.FontPath != "" {
		face, err := render.LoadFace(cfg.FontPath, TitleFontSize)

		if err != nil {
			log.Fatalf("error loading font: %v", err)
		}

		overlay.SetTitle("doorcount", face)
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slot := stream.NewSlot()
	defer slot.Close()

	hub := stream.NewHub()
	go hub.Run(ctx)

	engine := stream.NewEngine(stream.EngineConfig{
		Source: func() (stream.FrameSource, error) {
			return stream.OpenCamera(cfg.CameraURL, cfg.FrameWidth, cfg.FrameHeight)
		},
		Detector: detector,
		Fuser:    fuser,
		Tracker: tracker.NewTracker(tracker.Config{
			MaxDisappeared: cfg.MaxDisappeared,
			MaxTrackAge:    cfg.MaxTrackAge,
			MinConfidence:  cfg.MinConfidence,
			MinIoU:         cfg.MinIoU,
			SmoothingAlpha: float32(cfg.SmoothingAlpha),
			PredictMissing: cfg.PredictMissing,
		}),
		Counter:       counter.NewCounter(zones),
		Overlay:       overlay,
		Slot:          slot,
		Hub:           hub,
		ConfThreshold: cfg.ConfThreshold,
		TargetFPS:     cfg.TargetFPS,
		RetryDelay:    time.Duration(cfg.RetrySeconds) * time.Second,
	})

	go engine.Run(ctx)

	server := stream.NewServer(slot, hub, cfg.TargetFPS)
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	if err := server.ListenAndServe(ctx, addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// TitleFontSize is the point size of the TTF banner title
const TitleFontSize = 18.0

// overlapMode maps the configuration string onto the fusion mode,
// Validate has already rejected unknown values
func overlapMode(mode string) fusion.OverlapMode {
	if mode == "iou" {
		return fusion.OverlapIoU
	}
	return fusion.OverlapIntersect
}
