package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/curlcount/internal/rep"
)

// commandFor returns the parsed subcommand of a fresh root for args.
func commandFor(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	root := newRootCmd()
	cmd, rest, err := root.Find(args)
	require.NoError(t, err)
	require.NoError(t, cmd.ParseFlags(rest))
	return cmd
}

func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func TestLoadConfig_Defaults(t *testing.T) {
	home := isolateHome(t)

	cfg, err := loadConfig(commandFor(t, "serve"))
	require.NoError(t, err)

	assert.Equal(t, "angle", cfg.Mode)
	assert.Equal(t, 160.0, cfg.AngleThreshold)
	assert.Equal(t, 0.03, cfg.DisplacementThreshold)
	assert.Equal(t, 1, cfg.MinFrames)
	assert.Equal(t, 0, cfg.CameraID)
	assert.Equal(t, 15, cfg.FPS)
	assert.True(t, cfg.Flip)
	assert.Equal(t, 0.5, cfg.DetectionConfidence)
	assert.Equal(t, 0.5, cfg.TrackingConfidence)
	assert.Equal(t, 1.0, cfg.MotionThreshold)
	assert.Equal(t, filepath.Join(home, ".curlcount", "curlcount.db"), cfg.DBPath)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.False(t, cfg.Tray)
	assert.Equal(t, "info", cfg.LogLevel)

	sc, err := cfg.sessionConfig()
	require.NoError(t, err)
	assert.Equal(t, rep.DefaultSessionConfig(rep.ModeAngle), sc)
}

func TestLoadConfig_ConfigFile(t *testing.T) {
	home := isolateHome(t)

	dir := filepath.Join(home, ".config", "curlcount")
	require.NoError(t, os.MkdirAll(dir, 0755))
	content := "mode: displacement\ndisplacement-threshold: 0.05\nfps: 30\ndb-path: ~/data/curls.db\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(content), 0644))

	cfg, err := loadConfig(commandFor(t, "serve"))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "config.yml"), cfg.ConfigPath)
	assert.Equal(t, "displacement", cfg.Mode)
	assert.Equal(t, 0.05, cfg.DisplacementThreshold)
	assert.Equal(t, 30, cfg.FPS)
	assert.Equal(t, filepath.Join(home, "data", "curls.db"), cfg.DBPath)

	sc, err := cfg.sessionConfig()
	require.NoError(t, err)
	assert.Equal(t, []rep.Limb{rep.LimbLeft}, sc.Limbs, "displacement defaults to the left arm")
	assert.Equal(t, 0.05, sc.Threshold())
}

func TestLoadConfig_ExplicitConfigFlag(t *testing.T) {
	isolateHome(t)

	path := filepath.Join(t.TempDir(), "custom.yml")
	require.NoError(t, os.WriteFile(path, []byte("limbs: right\n"), 0644))

	cfg, err := loadConfig(commandFor(t, "serve", "--config", path))
	require.NoError(t, err)

	sc, err := cfg.sessionConfig()
	require.NoError(t, err)
	assert.Equal(t, []rep.Limb{rep.LimbRight}, sc.Limbs)
}

func TestLoadConfig_Precedence(t *testing.T) {
	home := isolateHome(t)

	dir := filepath.Join(home, ".config", "curlcount")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte("angle-threshold: 150\nfps: 20\n"), 0644))

	t.Setenv("CURLCOUNT_ANGLE_THRESHOLD", "140")
	t.Setenv("CURLCOUNT_MIN_FRAMES", "3")

	cfg, err := loadConfig(commandFor(t, "serve", "--angle-threshold", "130"))
	require.NoError(t, err)

	assert.Equal(t, 130.0, cfg.AngleThreshold, "flag beats env and file")
	assert.Equal(t, 3, cfg.MinFrames, "env beats default")
	assert.Equal(t, 20, cfg.FPS, "file beats default")
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown mode", []string{"serve", "--mode", "jump"}},
		{"unknown limbs", []string{"serve", "--limbs", "legs"}},
		{"angle threshold too large", []string{"serve", "--angle-threshold", "200"}},
		{"zero min frames", []string{"serve", "--min-frames", "0"}},
		{"zero fps", []string{"serve", "--fps", "0"}},
		{"confidence above one", []string{"serve", "--detection-confidence", "1.5"}},
		{"negative motion threshold", []string{"serve", "--motion-threshold=-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateHome(t)
			_, err := loadConfig(commandFor(t, tt.args...))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_MissingConfigFile(t *testing.T) {
	t.Run("default location may be absent", func(t *testing.T) {
		isolateHome(t)
		_, err := loadConfig(commandFor(t, "serve"))
		assert.NoError(t, err)
	})

	t.Run("explicit path must exist", func(t *testing.T) {
		isolateHome(t)
		path := filepath.Join(t.TempDir(), "typo.yml")

		_, err := loadConfig(commandFor(t, "serve", "--config", path))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "typo.yml")
	})
}

func TestLoadConfig_MotionThreshold(t *testing.T) {
	isolateHome(t)
	t.Setenv("CURLCOUNT_MOTION_THRESHOLD", "0")

	cfg, err := loadConfig(commandFor(t, "serve"))
	require.NoError(t, err)
	assert.Zero(t, cfg.MotionThreshold, "zero turns motion gating off")
}

func TestLoadConfig_BadConfigFile(t *testing.T) {
	isolateHome(t)

	path := filepath.Join(t.TempDir(), "broken.yml")
	require.NoError(t, os.WriteFile(path, []byte("mode: [unclosed\n"), 0644))

	_, err := loadConfig(commandFor(t, "serve", "--config", path))
	assert.Error(t, err)
}

func TestAppConfig_DeviceConfigs(t *testing.T) {
	cfg := appConfig{CameraID: 2, FPS: 24, Flip: false, DetectionConfidence: 0.7, TrackingConfidence: 0.6}

	cam := cfg.cameraConfig()
	assert.Equal(t, 2, cam.DeviceID)
	assert.Equal(t, 24, cam.FPS)
	assert.False(t, cam.Mirror)
	assert.Equal(t, 640, cam.Width)

	det := cfg.detectorConfig()
	assert.Equal(t, 0.7, det.MinDetectionConf)
	assert.Equal(t, 0.6, det.MinTrackingConf)
}
