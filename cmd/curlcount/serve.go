package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/curlcount/internal/app"
	"github.com/ayusman/curlcount/internal/capture"
	"github.com/ayusman/curlcount/internal/logging"
	"github.com/ayusman/curlcount/internal/rep"
	"github.com/ayusman/curlcount/internal/server"
	"github.com/ayusman/curlcount/internal/store"
	"github.com/ayusman/curlcount/internal/tray"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Count curls from the camera and serve the dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logging.Init(cfg.LogLevel)
			return runServe(cmd.Context(), cfg)
		},
	}

	f := cmd.Flags()
	f.Int("camera-id", 0, "camera device index")
	f.Int("fps", capture.DefaultFPS, "frames per second to capture and count")
	f.Bool("flip", true, "mirror the camera image horizontally")
	f.Float64("detection-confidence", 0.5, "minimum pose detection confidence")
	f.Float64("tracking-confidence", 0.5, "minimum pose tracking confidence")
	f.Float64("motion-threshold", defaultMotionThreshold, "percent of pixels that must change before a frame goes to pose detection (0 detects every frame)")
	f.String("addr", defaultAddr, "HTTP listen address")
	f.String("static-dir", "", "dashboard files to serve (default: search for web/)")
	f.Bool("tray", false, "show a system tray menu")

	return cmd
}

func openStore(path string) (*store.Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return store.New(path)
}

func runServe(parent context.Context, cfg appConfig) error {
	if parent == nil {
		parent = context.Background()
	}

	st, err := openStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	defer st.Close()

	sessionCfg, err := cfg.sessionConfig()
	if err != nil {
		return err
	}

	a, err := app.New(app.Config{
		Store:    st,
		Camera:   cfg.cameraConfig(),
		Detector: cfg.detectorConfig(),
		Session:  sessionCfg,

		MotionThreshold: cfg.MotionThreshold,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error().Err(err).Msg("error closing app")
		}
	}()

	if err := a.Start(); err != nil {
		return fmt.Errorf("start camera %d: %w", cfg.CameraID, err)
	}

	staticDir := cfg.StaticDir
	if staticDir == "" {
		staticDir = findWebDir()
	}
	srv := server.New(server.Config{
		StaticDir: staticDir,
		Store:     st,
		Counter:   a,
	})

	printStartupBanner(cfg, sessionCfg, a.Limbs(), staticDir)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx, cfg.Addr)
	})

	if cfg.Tray {
		// systray must own the main goroutine on macOS.
		runTray(gctx, g, a, dashboardURL(cfg.Addr), stop)
	}

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("shut down")
	return nil
}

// runTray blocks until the tray quits, either from its menu or because ctx
// was cancelled.
func runTray(ctx context.Context, g *errgroup.Group, a *app.App, url string, stop func()) {
	tr := tray.New()
	tr.OnToggle(a.SetEnabled)
	tr.OnReset(func() {
		if err := a.Reset(); err != nil {
			log.Error().Err(err).Msg("reset failed")
		}
	})
	tr.OnDashboard(func() {
		if err := openBrowser(url); err != nil {
			log.Warn().Err(err).Str("url", url).Msg("failed to open browser")
		}
	})
	tr.OnQuit(stop)

	updates := a.Subscribe()
	g.Go(func() error {
		defer tr.Quit()
		for {
			select {
			case <-ctx.Done():
				return nil
			case snap, ok := <-updates:
				if !ok {
					return nil
				}
				tr.SetCounts(snap.Reps(rep.LimbLeft), snap.Reps(rep.LimbRight))
			}
		}
	})

	tr.Run()
	stop()
}

// dashboardURL turns a listen address into a browsable URL.
func dashboardURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.curlcount/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	for _, p := range []string{"web", "../web", "../../web"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if absPath, err := filepath.Abs(p); err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".curlcount", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}

func printStartupBanner(cfg appConfig, sc rep.SessionConfig, arms []rep.Limb, staticDir string) {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	cyan := lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	bold := lipgloss.NewStyle().Bold(true)

	check := green.Render("●")
	dot := dim.Render("●")

	names := make([]string, len(arms))
	for i, l := range arms {
		names[i] = string(l)
	}
	limbs := strings.Join(names, ", ")

	motion := "every frame"
	if cfg.MotionThreshold > 0 {
		motion = fmt.Sprintf("%g%% of pixels", cfg.MotionThreshold)
	}

	fmt.Println()
	fmt.Println(cyan.Bold(true).Render("    curlcount") + "  " + dim.Render("v"+version))
	fmt.Println(dim.Render("    ─────────────────────────────────"))
	fmt.Println()
	fmt.Println(bold.Render("    Counting"))
	fmt.Printf("    %s  Mode           %s\n", check, cyan.Render(string(sc.Mode)))
	fmt.Printf("    %s  Arms           %s\n", check, cyan.Render(limbs))
	fmt.Printf("    %s  Threshold      %s\n", check, cyan.Render(fmt.Sprintf("%g", sc.Threshold())))
	fmt.Printf("    %s  Camera         %s\n", check, dim.Render(fmt.Sprintf("#%d @ %d fps", cfg.CameraID, cfg.FPS)))
	fmt.Printf("    %s  Motion gate    %s\n", check, dim.Render(motion))
	fmt.Println()
	fmt.Println(bold.Render("    Gateway"))
	fmt.Printf("    %s  Dashboard      %s\n", check, cyan.Render(dashboardURL(cfg.Addr)))
	if staticDir != "" {
		fmt.Printf("    %s  Static files   %s\n", check, dim.Render(staticDir))
	} else {
		fmt.Printf("    %s  Static files   %s\n", dot, dim.Render("none"))
	}
	fmt.Printf("    %s  Storage        %s\n", check, dim.Render(cfg.DBPath))
	fmt.Println()
}
