package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	ebitenpkg "github.com/hajimehoshi/ebiten/v2"
	"github.com/urfave/cli"

	"github.com/retro486/ArbyEmulator/arby"
	"github.com/retro486/ArbyEmulator/arby/backend"
	"github.com/retro486/ArbyEmulator/arby/backend/headless"
	"github.com/retro486/ArbyEmulator/arby/backend/sdl2"
	"github.com/retro486/ArbyEmulator/arby/backend/terminal"
	ebitenbridge "github.com/retro486/ArbyEmulator/arby/bridge/ebiten"
	"github.com/retro486/ArbyEmulator/arby/firmware"
	"github.com/retro486/ArbyEmulator/arby/testpattern"
	"github.com/retro486/ArbyEmulator/arby/timing"
	"github.com/retro486/ArbyEmulator/arby/video"
)

func main() {
	app := cli.NewApp()
	app.Name = "Arby"
	app.Description = "An Arduboy emulator bridge"
	app.Usage = "arby [options] <firmware .hex or .arduboy file>"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "rom",
			Usage: "Path to the firmware image (.hex or .arduboy)",
		},
		cli.Uint64Flag{
			Name:  "freq",
			Usage: "CPU frequency in Hz",
			Value: arby.DefaultCPUFrequencyHz,
		},
		cli.StringFlag{
			Name:  "mcu",
			Usage: "Registered engine model to run on",
			Value: arby.DefaultMCU,
		},
		cli.StringFlag{
			Name:  "backend",
			Usage: "Display backend: terminal, ebiten, sdl2 or headless",
			Value: "terminal",
		},
		cli.IntFlag{
			Name:  "scale",
			Usage: "Window scale factor for graphical backends",
			Value: 4,
		},
		cli.IntFlag{
			Name:  "frames",
			Usage: "Number of frames to run in headless mode (required for headless)",
		},
		cli.IntFlag{
			Name:  "snapshot-interval",
			Usage: "Save frame snapshots every N frames in headless mode (0 = disabled)",
		},
		cli.StringFlag{
			Name:  "snapshot-dir",
			Usage: "Directory to save frame snapshots (default: temp directory)",
		},
		cli.BoolFlag{
			Name:  "test-pattern",
			Usage: "Display a test pattern instead of emulation (for debugging display)",
		},
		cli.StringFlag{
			Name:  "eeprom",
			Usage: "EEPROM file loaded before the run and written back after",
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: "Enable debug logging",
		},
	}
	app.Action = runEmulator

	if err := app.Run(os.Args); err != nil {
		slog.Error("error running emulator", "error", err)
		os.Exit(1)
	}
}

func runEmulator(c *cli.Context) error {
	level := slog.LevelInfo
	if c.Bool("debug") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg := arby.Config{
		CPUFrequencyHz: c.Uint64("freq"),
		MCU:            c.String("mcu"),
	}

	romPath := c.String("rom")
	if romPath == "" && c.NArg() > 0 {
		romPath = c.Args().Get(0)
	}

	switch {
	case c.Bool("test-pattern"):
		cfg.Engine = testpattern.New()
		cfg.Firmware = &firmware.Image{}
		romPath = "test-pattern"
	case romPath == "":
		cli.ShowAppHelp(c)
		return errors.New("no firmware path provided")
	default:
		img, err := firmware.Load(romPath)
		if err != nil {
			return err
		}
		cfg.Firmware = img
	}

	session, err := arby.New(cfg)
	if err != nil {
		return err
	}
	defer session.Close()

	eepromPath := c.String("eeprom")
	if err := loadEEPROM(session, eepromPath); err != nil {
		return err
	}

	name := c.String("backend")
	if name == "ebiten" {
		if err := runEbiten(session, romPath, c.Int("scale")); err != nil {
			return err
		}
		return saveEEPROM(session, eepromPath)
	}

	b, config, err := makeBackend(c, name, romPath)
	if err != nil {
		return err
	}
	if err := runLoop(session, b, config, name == "headless"); err != nil {
		return err
	}
	return saveEEPROM(session, eepromPath)
}

func makeBackend(c *cli.Context, name, romPath string) (backend.Backend, backend.Config, error) {
	config := backend.Config{
		Title: "Arby - " + filepath.Base(romPath),
		Scale: c.Int("scale"),
	}

	switch name {
	case "terminal":
		return terminal.New(), config, nil
	case "sdl2":
		return sdl2.New(), config, nil
	case "headless":
		frames := c.Int("frames")
		if frames <= 0 {
			return nil, config, errors.New("headless mode requires --frames with a positive value")
		}
		config.MaxFrames = frames
		config.SnapshotInterval = c.Int("snapshot-interval")
		config.SnapshotDir = c.String("snapshot-dir")
		config.SnapshotName = strings.TrimSuffix(filepath.Base(romPath), filepath.Ext(romPath))
		if config.SnapshotInterval > 0 && config.SnapshotDir == "" {
			dir, err := os.MkdirTemp("", "arby-snapshots-*")
			if err != nil {
				return nil, config, fmt.Errorf("create snapshot directory: %w", err)
			}
			config.SnapshotDir = dir
		}
		return headless.New(), config, nil
	default:
		return nil, config, fmt.Errorf("unknown backend %q", name)
	}
}

func runLoop(session *arby.Session, b backend.Backend, config backend.Config, isHeadless bool) error {
	if err := b.Init(config); err != nil {
		return err
	}
	defer b.Cleanup()

	var limiter timing.Limiter
	if isHeadless {
		limiter = timing.NewNoOpLimiter()
	} else {
		ticker := timing.NewTickerLimiter(timing.FrameDuration)
		defer ticker.Stop()
		limiter = ticker
	}

	frame := video.NewFrameBuffer()
	for {
		running := session.Loop(frame.ToSlice())

		events, err := b.Update(frame)
		if err != nil {
			return err
		}
		for _, ev := range events {
			switch ev.Type {
			case backend.Press:
				session.ButtonEvent(ev.Button, true)
			case backend.Release:
				session.ButtonEvent(ev.Button, false)
			case backend.Quit:
				return nil
			}
		}

		if !running {
			slog.Info("emulation stopped")
			return nil
		}
		limiter.WaitForNextFrame()
	}
}

func runEbiten(session *arby.Session, romPath string, scale int) error {
	if scale <= 0 {
		scale = 4
	}
	ebitenpkg.SetWindowSize(video.FramebufferWidth*scale, video.FramebufferHeight*scale)
	ebitenpkg.SetWindowTitle("Arby - " + filepath.Base(romPath))
	ebitenpkg.SetWindowResizingMode(ebitenpkg.WindowResizingModeEnabled)
	return ebitenpkg.RunGame(ebitenbridge.NewRunner(session))
}

func loadEEPROM(session *arby.Session, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read eeprom file: %w", err)
	}

	size := session.PersistentMemorySize()
	if len(data) < size {
		padded := make([]byte, size)
		copy(padded, data)
		data = padded
	}
	if !session.SetPersistentMemory(data) {
		return errors.New("restore eeprom: session not active")
	}
	slog.Info("restored eeprom", "path", path, "bytes", size)
	return nil
}

func saveEEPROM(session *arby.Session, path string) error {
	if path == "" {
		return nil
	}
	buf := make([]byte, session.PersistentMemorySize())
	if !session.GetPersistentMemory(buf) {
		return errors.New("save eeprom: session not active")
	}
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return fmt.Errorf("write eeprom file: %w", err)
	}
	slog.Info("saved eeprom", "path", path, "bytes", len(buf))
	return nil
}
