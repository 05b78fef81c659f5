package main

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ayusman/curlcount/internal/capture"
	"github.com/ayusman/curlcount/internal/detector"
	"github.com/ayusman/curlcount/internal/rep"
)

const (
	defaultMode      = string(rep.ModeAngle)
	defaultAddr      = ":8080"
	defaultLogLevel  = "info"
	defaultMinFrames = 1

	// defaultMotionThreshold is the percentage of changed pixels that counts
	// as movement.
	defaultMotionThreshold = 1.0
)

// appConfig holds every setting; flags override CURLCOUNT_* environment
// variables, which override the config file.
type appConfig struct {
	Mode                  string  `mapstructure:"mode"`
	Limbs                 string  `mapstructure:"limbs"`
	AngleThreshold        float64 `mapstructure:"angle-threshold"`
	DisplacementThreshold float64 `mapstructure:"displacement-threshold"`
	MinFrames             int     `mapstructure:"min-frames"`
	CameraID              int     `mapstructure:"camera-id"`
	FPS                   int     `mapstructure:"fps"`
	Flip                  bool    `mapstructure:"flip"`
	DetectionConfidence   float64 `mapstructure:"detection-confidence"`
	TrackingConfidence    float64 `mapstructure:"tracking-confidence"`
	MotionThreshold       float64 `mapstructure:"motion-threshold"`
	DBPath                string  `mapstructure:"db-path"`
	Addr                  string  `mapstructure:"addr"`
	StaticDir             string  `mapstructure:"static-dir"`
	Tray                  bool    `mapstructure:"tray"`
	LogLevel              string  `mapstructure:"log-level"`

	ConfigPath string `mapstructure:"-"`
}

// addConfigFlags registers the shared settings as persistent flags on root.
func addConfigFlags(root *cobra.Command) {
	f := root.PersistentFlags()
	f.String("config", "", "config file (default is $HOME/.config/curlcount/config.yml)")
	f.String("mode", defaultMode, "counting mode: angle or displacement")
	f.String("limbs", "", "arms to count: both, left or right (default depends on mode)")
	f.Float64("angle-threshold", rep.DefaultAngleThreshold, "elbow angle in degrees below which an arm is curled")
	f.Float64("displacement-threshold", rep.DefaultDisplacementThreshold, "wrist offset below the shoulder above which an arm is curled")
	f.Int("min-frames", defaultMinFrames, "consecutive frames required before a curl registers")
	f.String("db-path", "~/.curlcount/curlcount.db", "sqlite database path")
	f.String("log-level", defaultLogLevel, "log level: debug, info, warn or error")
}

// loadConfig resolves the configuration for cmd from defaults, the config
// file, the environment and cmd's flags.
func loadConfig(cmd *cobra.Command) (appConfig, error) {
	var cfg appConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("CURLCOUNT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	camera := capture.DefaultConfig()
	det := detector.DefaultConfig()

	v.SetDefault("mode", defaultMode)
	v.SetDefault("limbs", "")
	v.SetDefault("angle-threshold", rep.DefaultAngleThreshold)
	v.SetDefault("displacement-threshold", rep.DefaultDisplacementThreshold)
	v.SetDefault("min-frames", defaultMinFrames)
	v.SetDefault("camera-id", camera.DeviceID)
	v.SetDefault("fps", camera.FPS)
	v.SetDefault("flip", camera.Mirror)
	v.SetDefault("detection-confidence", det.MinDetectionConf)
	v.SetDefault("tracking-confidence", det.MinTrackingConf)
	v.SetDefault("motion-threshold", defaultMotionThreshold)
	v.SetDefault("db-path", filepath.Join(home, ".curlcount", "curlcount.db"))
	v.SetDefault("addr", defaultAddr)
	v.SetDefault("static-dir", "")
	v.SetDefault("tray", false)
	v.SetDefault("log-level", defaultLogLevel)

	configPath, _ := cmd.Flags().GetString("config")
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(filepath.Join(home, ".config", "curlcount", "config.yml"))
	}

	// A missing file is only fine at the default location.
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		missing := errors.As(err, &configFileNotFound) || os.IsNotExist(err)
		if configPath != "" || !missing {
			return cfg, fmt.Errorf("read config %s: %w", v.ConfigFileUsed(), err)
		}
	}

	// Only flags the user set take precedence over the layers above.
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return cfg, err
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	cfg.ConfigPath = v.ConfigFileUsed()

	// Expand ~ in db-path
	if strings.HasPrefix(cfg.DBPath, "~/") {
		cfg.DBPath = filepath.Join(home, cfg.DBPath[2:])
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c appConfig) validate() error {
	if _, err := c.sessionConfig(); err != nil {
		return err
	}
	if c.AngleThreshold <= 0 || c.AngleThreshold > 180 {
		return fmt.Errorf("invalid angle-threshold: %v (want 0 < t <= 180)", c.AngleThreshold)
	}
	if math.IsNaN(c.DisplacementThreshold) || math.IsInf(c.DisplacementThreshold, 0) {
		return fmt.Errorf("invalid displacement-threshold: %v", c.DisplacementThreshold)
	}
	if c.MinFrames < 1 {
		return fmt.Errorf("invalid min-frames: %d", c.MinFrames)
	}
	if c.FPS <= 0 {
		return fmt.Errorf("invalid fps: %d", c.FPS)
	}
	if c.DetectionConfidence < 0 || c.DetectionConfidence > 1 {
		return fmt.Errorf("invalid detection-confidence: %v", c.DetectionConfidence)
	}
	if c.TrackingConfidence < 0 || c.TrackingConfidence > 1 {
		return fmt.Errorf("invalid tracking-confidence: %v", c.TrackingConfidence)
	}
	if c.MotionThreshold < 0 || c.MotionThreshold > 100 {
		return fmt.Errorf("invalid motion-threshold: %v (want 0 <= t <= 100)", c.MotionThreshold)
	}
	return nil
}

// sessionConfig builds the counting configuration. An empty limbs setting
// keeps the mode's default arms.
func (c appConfig) sessionConfig() (rep.SessionConfig, error) {
	mode := rep.Mode(strings.ToLower(strings.TrimSpace(c.Mode)))
	if mode.Direction() == "" {
		return rep.SessionConfig{}, fmt.Errorf("%w: %q", rep.ErrInvalidMode, c.Mode)
	}

	sc := rep.DefaultSessionConfig(mode)
	sc.AngleThreshold = c.AngleThreshold
	sc.DisplacementThreshold = c.DisplacementThreshold
	sc.MinFrames = c.MinFrames

	if strings.TrimSpace(c.Limbs) != "" {
		limbs, err := rep.ParseLimbs(c.Limbs)
		if err != nil {
			return rep.SessionConfig{}, err
		}
		sc.Limbs = limbs
	}
	return sc, nil
}

func (c appConfig) cameraConfig() capture.Config {
	cam := capture.DefaultConfig()
	cam.DeviceID = c.CameraID
	cam.FPS = c.FPS
	cam.Mirror = c.Flip
	return cam
}

func (c appConfig) detectorConfig() detector.Config {
	return detector.Config{
		MinDetectionConf: c.DetectionConfidence,
		MinTrackingConf:  c.TrackingConfidence,
	}
}
