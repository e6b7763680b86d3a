// Package browser launches Chromium with the bridge extension loaded and a
// DevTools port open.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// Config holds browser launch configuration.
type Config struct {
	CDPAddress   string
	CDPPort      int
	StartURL     string
	ProfileDir   string
	ExtensionDir string // bridge extension is written here; defaults under ProfileDir
	Headless     bool
	WindowSize   string
	ExecPath     string // empty selects the first browser found on PATH
	BridgeFilter string // substring of the bridge worker URL to wait for
}

// Launcher manages the lifecycle of a browser process.
type Launcher struct {
	cfg           Config
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	running       bool
}

// NewLauncher creates a new browser launcher with the given config.
func NewLauncher(cfg Config) *Launcher {
	if cfg.CDPAddress == "" {
		cfg.CDPAddress = "127.0.0.1"
	}
	if cfg.CDPPort == 0 {
		cfg.CDPPort = 9222
	}
	if cfg.WindowSize == "" {
		cfg.WindowSize = "1600,1000"
	}
	if cfg.StartURL == "" {
		cfg.StartURL = "about:blank"
	}
	if cfg.ExtensionDir == "" {
		cfg.ExtensionDir = filepath.Join(cfg.ProfileDir, "tab_grouper_bridge")
	}
	if cfg.BridgeFilter == "" {
		cfg.BridgeFilter = bridgeScript
	}
	return &Launcher{cfg: cfg}
}

// CDPURL is the HTTP DevTools endpoint of the launched browser.
func (l *Launcher) CDPURL() string {
	return fmt.Sprintf("http://%s", net.JoinHostPort(l.cfg.CDPAddress, strconv.Itoa(l.cfg.CDPPort)))
}

// detectBrowser finds an available Chrome/Chromium binary.
func detectBrowser() (string, error) {
	candidates := []string{"chromium-browser", "chromium", "google-chrome", "google-chrome-stable"}
	for _, name := range candidates {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	if runtime.GOOS == "darwin" {
		macPath := "/Applications/Google Chrome.app/Contents/MacOS/Google Chrome"
		if _, err := os.Stat(macPath); err == nil {
			return macPath, nil
		}
	}
	return "", fmt.Errorf("no supported browser found (tried %s)", strings.Join(candidates, ", "))
}

// isPortInUse checks whether a TCP port is already listening.
func isPortInUse(address string, port int) bool {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(address, strconv.Itoa(port)), time.Second)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// launchFlags are the command-line switches passed on top of chromedp's
// defaults. A false value removes a default switch.
func launchFlags(cfg Config) map[string]any {
	flags := map[string]any{
		"remote-debugging-port":     strconv.Itoa(cfg.CDPPort),
		"remote-debugging-address":  cfg.CDPAddress,
		"load-extension":            cfg.ExtensionDir,
		"disable-extensions-except": cfg.ExtensionDir,
		"window-size":               cfg.WindowSize,
	}
	// chromedp's defaults disable extensions and their background pages.
	flags["disable-extensions"] = false
	flags["disable-background-networking"] = false
	flags["disable-component-extensions-with-background-pages"] = false

	if cfg.Headless {
		// Only the new headless mode runs extensions.
		flags["headless"] = "new"
	} else {
		flags["headless"] = false
		flags["hide-scrollbars"] = false
		flags["mute-audio"] = false
	}
	return flags
}

// Launch starts the browser unless the CDP port is already in use, then
// waits until the bridge worker is listed.
func (l *Launcher) Launch(ctx context.Context) error {
	if isPortInUse(l.cfg.CDPAddress, l.cfg.CDPPort) {
		slog.Info("browser already running, skipping launch",
			"address", l.cfg.CDPAddress, "port", l.cfg.CDPPort)
		return nil
	}

	execPath := l.cfg.ExecPath
	if execPath == "" {
		found, err := detectBrowser()
		if err != nil {
			return err
		}
		execPath = found
	}
	slog.Info("detected browser", "path", execPath)

	if err := os.MkdirAll(l.cfg.ProfileDir, 0o755); err != nil {
		return fmt.Errorf("create profile dir: %w", err)
	}
	if err := WriteExtension(l.cfg.ExtensionDir); err != nil {
		return err
	}

	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts, chromedp.ExecPath(execPath), chromedp.UserDataDir(l.cfg.ProfileDir))
	for name, value := range launchFlags(l.cfg) {
		opts = append(opts, chromedp.Flag(name, value))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx, chromedp.Navigate(l.cfg.StartURL)); err != nil {
		browserCancel()
		allocCancel()
		return fmt.Errorf("start browser: %w", err)
	}
	l.allocCancel, l.browserCtx, l.browserCancel = allocCancel, browserCtx, browserCancel
	l.running = true
	slog.Info("browser process started", "extension_dir", l.cfg.ExtensionDir, "headless", l.cfg.Headless)

	if err := l.waitForCDP(ctx); err != nil {
		l.Stop()
		return fmt.Errorf("waiting for CDP: %w", err)
	}
	if err := l.waitForBridge(ctx); err != nil {
		l.Stop()
		return err
	}
	slog.Info("CDP endpoint ready", "address", l.cfg.CDPAddress, "port", l.cfg.CDPPort)
	return nil
}

// waitForCDP polls the fixed-port /json/version endpoint until it responds.
func (l *Launcher) waitForCDP(ctx context.Context) error {
	url := l.CDPURL() + "/json/version"
	deadline := time.After(15 * time.Second)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	client := &http.Client{Timeout: time.Second}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return fmt.Errorf("CDP did not become ready within 15s at %s", url)
		case <-ticker.C:
			resp, err := client.Get(url)
			if err != nil {
				continue
			}
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
	}
}

// waitForBridge polls the browser's targets for the bridge worker.
func (l *Launcher) waitForBridge(ctx context.Context) error {
	deadline := time.After(10 * time.Second)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		targets, err := chromedp.Targets(l.browserCtx)
		if err == nil {
			for _, t := range targets {
				if t.Type == "service_worker" && strings.Contains(t.URL, l.cfg.BridgeFilter) {
					slog.Info("bridge worker ready", "url", t.URL)
					return nil
				}
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return fmt.Errorf("bridge extension worker did not start within 10s (extension dir %s)", l.cfg.ExtensionDir)
		case <-ticker.C:
		}
	}
}

// Running reports whether this launcher spawned a browser process.
func (l *Launcher) Running() bool {
	return l.running
}

// Stop closes the browser this launcher started.
func (l *Launcher) Stop() {
	if !l.running {
		return
	}
	slog.Info("stopping browser")
	ctx, cancel := context.WithTimeout(l.browserCtx, 5*time.Second)
	if err := chromedp.Cancel(ctx); err != nil {
		slog.Warn("browser close failed", "error", err)
	}
	cancel()
	l.browserCancel()
	l.allocCancel()
	l.running = false
	slog.Info("browser stopped")
}
