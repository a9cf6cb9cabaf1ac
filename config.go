package doorcount

import (
	"fmt"
	"image"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all runtime settings for the counting pipeline and the
// HTTP server.  Values are plain numbers and strings, the hard logic of
// the pipeline never reads the environment itself.
type Config struct {
	// CameraURL is the video source address, eg: an RTSP url or device
	// path.  Required.
	CameraURL string
	// Host and Port the HTTP server listens on
	Host string
	Port int

	// ModelPath is the DNN model weights file and ModelConfig its network
	// description, as loaded by the OpenCV DNN module
	ModelPath   string
	ModelConfig string
	// PersonClassID is the class id the model assigns to a person
	PersonClassID int
	// LabelsPath is an optional class labels file, one label per line in
	// class id order.  When set the person class id is resolved from it.
	LabelsPath string

	// FrameWidth and FrameHeight are the stream resolution requested from
	// the camera, also the bounds counting zones are clipped to
	FrameWidth  int
	FrameHeight int

	// TargetFPS is the capture/serve pacing rate in frames per second
	TargetFPS float64
	// RetrySeconds is the delay before reconnecting a failed video source
	RetrySeconds int

	// LineStart and LineEnd are the endpoints of the virtual counting line
	LineStart image.Point
	LineEnd   image.Point
	// LineOffset is the base distance in pixels the counting zones are
	// offset from the line along its normal
	LineOffset int

	// Detection fusion settings
	ConfThreshold     float64
	HighConfThreshold float64
	NMSThreshold      float64
	MotionMinArea     float64
	MotionOverlap     float64
	// OverlapMode selects how a detection is validated against motion
	// regions, either "iou" or "intersect"
	OverlapMode string
	MinAspect   float64
	MaxAspect   float64
	MinBoxArea  float64
	MaxBoxArea  float64

	// Tracker settings
	MaxDisappeared int
	MaxTrackAge    int
	MinConfidence  float64
	MinIoU         float64
	SmoothingAlpha float64
	// PredictMissing enables Kalman coasting of unmatched tracks
	PredictMissing bool

	// FontPath is an optional TTF font used for overlay labels, the
	// built-in Hershey font is used when empty
	FontPath string
}

// DefaultConfig returns a Config with all tunables set to their defaults.
// CameraURL and the model paths have no defaults and must be provided.
func DefaultConfig() Config {
	return Config{
		Host:              "0.0.0.0",
		Port:              5000,
		PersonClassID:     0,
		FrameWidth:        640,
		FrameHeight:       480,
		TargetFPS:         18,
		RetrySeconds:      5,
		LineStart:         image.Pt(320, 0),
		LineEnd:           image.Pt(320, 480),
		LineOffset:        10,
		ConfThreshold:     0.5,
		HighConfThreshold: 0.8,
		NMSThreshold:      0.45,
		MotionMinArea:     500,
		MotionOverlap:     0.1,
		OverlapMode:       "intersect",
		MinAspect:         1.0,
		MaxAspect:         5.0,
		MinBoxArea:        400,
		MaxBoxArea:        120000,
		MaxDisappeared:    20,
		MaxTrackAge:       30,
		MinConfidence:     0.6,
		MinIoU:            0.3,
		SmoothingAlpha:    0.7,
	}
}

// ConfigFromEnv loads configuration from the environment, reading the
// optional dotenv file at envFile first.  A missing dotenv file is not an
// error, the process environment alone may carry the settings.
func ConfigFromEnv(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("loading env file %s: %w", envFile, err)
		}
	}

	cfg := DefaultConfig()
	cfg.CameraURL = os.Getenv("CAMERA_URL")
	cfg.ModelPath = os.Getenv("MODEL_PATH")
	cfg.ModelConfig = os.Getenv("MODEL_CONFIG")
	cfg.FontPath = os.Getenv("FONT_PATH")
	cfg.LabelsPath = os.Getenv("LABELS_PATH")

	var err error

	if cfg.Host, err = envStr("HOST", cfg.Host); err != nil {
		return Config{}, err
	}
	if cfg.Port, err = envInt("PORT", cfg.Port); err != nil {
		return Config{}, err
	}
	if cfg.PersonClassID, err = envInt("PERSON_CLASS_ID", cfg.PersonClassID); err != nil {
		return Config{}, err
	}
	if cfg.FrameWidth, err = envInt("STREAM_WIDTH", cfg.FrameWidth); err != nil {
		return Config{}, err
	}
	if cfg.FrameHeight, err = envInt("STREAM_HEIGHT", cfg.FrameHeight); err != nil {
		return Config{}, err
	}
	if cfg.TargetFPS, err = envFloat("TARGET_FPS", cfg.TargetFPS); err != nil {
		return Config{}, err
	}
	if cfg.RetrySeconds, err = envInt("RETRY_SECONDS", cfg.RetrySeconds); err != nil {
		return Config{}, err
	}
	if cfg.LineStart.X, err = envInt("LINE_START_X", cfg.LineStart.X); err != nil {
		return Config{}, err
	}
	if cfg.LineStart.Y, err = envInt("LINE_START_Y", cfg.LineStart.Y); err != nil {
		return Config{}, err
	}
	if cfg.LineEnd.X, err = envInt("LINE_END_X", cfg.LineEnd.X); err != nil {
		return Config{}, err
	}
	if cfg.LineEnd.Y, err = envInt("LINE_END_Y", cfg.LineEnd.Y); err != nil {
		return Config{}, err
	}
	if cfg.LineOffset, err = envInt("LINE_OFFSET", cfg.LineOffset); err != nil {
		return Config{}, err
	}
	if cfg.ConfThreshold, err = envFloat("CONF_THRESHOLD", cfg.ConfThreshold); err != nil {
		return Config{}, err
	}
	if cfg.HighConfThreshold, err = envFloat("HIGH_CONF_THRESHOLD", cfg.HighConfThreshold); err != nil {
		return Config{}, err
	}
	if cfg.NMSThreshold, err = envFloat("NMS_THRESHOLD", cfg.NMSThreshold); err != nil {
		return Config{}, err
	}
	if cfg.MotionMinArea, err = envFloat("MOTION_MIN_AREA", cfg.MotionMinArea); err != nil {
		return Config{}, err
	}
	if cfg.MotionOverlap, err = envFloat("MOTION_OVERLAP", cfg.MotionOverlap); err != nil {
		return Config{}, err
	}
	if cfg.OverlapMode, err = envStr("OVERLAP_MODE", cfg.OverlapMode); err != nil {
		return Config{}, err
	}
	if cfg.MinAspect, err = envFloat("MIN_ASPECT", cfg.MinAspect); err != nil {
		return Config{}, err
	}
	if cfg.MaxAspect, err = envFloat("MAX_ASPECT", cfg.MaxAspect); err != nil {
		return Config{}, err
	}
	if cfg.MinBoxArea, err = envFloat("MIN_BOX_AREA", cfg.MinBoxArea); err != nil {
		return Config{}, err
	}
	if cfg.MaxBoxArea, err = envFloat("MAX_BOX_AREA", cfg.MaxBoxArea); err != nil {
		return Config{}, err
	}
	if cfg.MaxDisappeared, err = envInt("MAX_DISAPPEARED", cfg.MaxDisappeared); err != nil {
		return Config{}, err
	}
	if cfg.MaxTrackAge, err = envInt("MAX_TRACK_AGE", cfg.MaxTrackAge); err != nil {
		return Config{}, err
	}
	if cfg.MinConfidence, err = envFloat("MIN_CONFIDENCE", cfg.MinConfidence); err != nil {
		return Config{}, err
	}
	if cfg.MinIoU, err = envFloat("MIN_IOU", cfg.MinIoU); err != nil {
		return Config{}, err
	}
	if cfg.SmoothingAlpha, err = envFloat("SMOOTHING_ALPHA", cfg.SmoothingAlpha); err != nil {
		return Config{}, err
	}
	if cfg.PredictMissing, err = envBool("PREDICT_MISSING", cfg.PredictMissing); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks settings that must be correct before the pipeline
// starts.  A failure here is fatal, the process must not begin serving.
func (c Config) Validate() error {

	if c.CameraURL == "" {
		return fmt.Errorf("CAMERA_URL not set")
	}

	if c.ModelPath == "" {
		return fmt.Errorf("MODEL_PATH not set")
	}

	if _, err := os.Stat(c.ModelPath); err != nil {
		return fmt.Errorf("model file %s: %w", c.ModelPath, err)
	}

	if c.ModelConfig != "" {
		if _, err := os.Stat(c.ModelConfig); err != nil {
			return fmt.Errorf("model config file %s: %w", c.ModelConfig, err)
		}
	}

	if c.LabelsPath != "" {
		if _, err := os.Stat(c.LabelsPath); err != nil {
			return fmt.Errorf("labels file %s: %w", c.LabelsPath, err)
		}
	}

	if c.FrameWidth <= 0 || c.FrameHeight <= 0 {
		return fmt.Errorf("stream resolution must be positive, got %dx%d",
			c.FrameWidth, c.FrameHeight)
	}

	if c.TargetFPS <= 0 {
		return fmt.Errorf("TARGET_FPS must be positive, got %v", c.TargetFPS)
	}

	if c.LineStart == c.LineEnd {
		return fmt.Errorf("counting line endpoints must differ")
	}

	if c.LineOffset <= 0 {
		return fmt.Errorf("LINE_OFFSET must be positive, got %d", c.LineOffset)
	}

	if c.OverlapMode != "iou" && c.OverlapMode != "intersect" {
		return fmt.Errorf("OVERLAP_MODE must be \"iou\" or \"intersect\", got %q", c.OverlapMode)
	}

	if c.SmoothingAlpha < 0 || c.SmoothingAlpha > 1 {
		return fmt.Errorf("SMOOTHING_ALPHA must be in [0,1], got %v", c.SmoothingAlpha)
	}

	return nil
}

func envStr(key, def string) (string, error) {
	if v := os.Getenv(key); v != "" {
		return v, nil
	}
	return def, nil
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("env %s: %w", key, err)
	}

	return n, nil
}

func envFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("env %s: %w", key, err)
	}

	return f, nil
}

func envBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("env %s: %w", key, err)
	}

	return b, nil
}
