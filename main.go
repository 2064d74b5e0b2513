package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
	"go.uber.org/zap"

	"go-rehearse/assign"
	"go-rehearse/config"
	"go-rehearse/debug"
	"go-rehearse/engine"
	"go-rehearse/midi"
	"go-rehearse/player"
	"go-rehearse/theme"
	"go-rehearse/timeline"
	"go-rehearse/tui"
)

var (
	configPath string
	modeName   string
	handName   string
	inputName  string
	outputName string
	debugLog   bool
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:          "go-rehearse [file.mid]",
	Short:        "Practice a MIDI file on a real keyboard",
	Long:         `Plays a MIDI file with a falling-note view. In practice mode the notes wait until you play them.`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "config file (default ~/.config/go-rehearse/config.json)")
	flags.BoolVar(&debugLog, "debug", false, "write a debug log next to the config")
	flags.BoolVar(&verbose, "verbose", false, "include per-tick lines in the debug log")

	rootCmd.Flags().StringVar(&modeName, "mode", "listening", "start mode: listening, practice or editing")
	rootCmd.Flags().StringVar(&handName, "hand", "", "practice one hand: left or right")
	rootCmd.Flags().StringVar(&inputName, "input", "", "keyboard port name (substring)")
	rootCmd.Flags().StringVar(&outputName, "output", "", "synth port name (substring)")
}

func main() {
	cobra.CheckErr(rootCmd.Execute())
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFrom(configPath)
	}
	return config.Load()
}

func saveConfig(cfg *config.Config) error {
	if configPath != "" {
		return cfg.SaveTo(configPath)
	}
	return cfg.Save()
}

func setupLogging() (*zap.Logger, error) {
	if !debugLog {
		return zap.NewNop(), nil
	}
	dir, err := config.DataDir()
	if err != nil {
		return nil, err
	}
	return debug.Enable(filepath.Join(dir, "debug.log"), verbose)
}

func openStore(cfg *config.Config, log *zap.Logger) (*assign.Store, error) {
	dir, err := config.AssignmentsDir()
	if err != nil {
		return nil, err
	}
	store := assign.NewStore(dir, log)
	store.SetTolerance(cfg.Engine.MatchTolerance())
	return store, nil
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log, err := setupLogging()
	if err != nil {
		return fmt.Errorf("debug log: %w", err)
	}
	defer debug.Disable()

	path := cfg.UI.LastFile
	if len(args) == 1 {
		path = args[0]
	}
	if path == "" {
		return errors.New("no MIDI file given")
	}

	hand := timeline.HandNone
	if handName != "" {
		h, ok := timeline.ParseHand(handName)
		if !ok {
			return fmt.Errorf("unknown hand %q", handName)
		}
		hand = h
	}
	mode, err := engine.ParseMode(modeName, hand)
	if err != nil {
		return err
	}

	seq, err := timeline.LoadFile(path)
	if err != nil {
		return err
	}
	tl := timeline.Build(seq)
	hash := timeline.ContentHash(seq)

	store, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	if n := store.Load(hash, tl); n > 0 {
		log.Info("restored hand assignments", zap.Int("count", n))
	}

	// Synth output is optional; without it the player keeps time silently
	var send player.Sender
	outName := cfg.Output.PortName
	if outputName != "" {
		outName = outputName
	}
	if out, err := midi.OpenOutput(outName); err != nil {
		log.Warn("no synth output, playing silently", zap.Error(err))
	} else {
		defer out.Close()
		send = out.Send
		log.Info("synth output", zap.String("port", out.Name()))
	}
	pl := player.New(seq, send, log)

	surface := tui.NewSurface()
	session := engine.NewSession(tl, hash, pl, engine.Options{
		TickRate: cfg.Engine.TickRate,
		WarmUp:   cfg.Engine.WarmUp(),
		Step:     cfg.Engine.Step(),
		Autosave: cfg.Engine.Autosave(),
		Mode:     mode,
		Surface:  surface,
		Saver:    store,
		Logger:   log,
	})
	pl.SetObserver(session)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var deviceMgr *midi.DeviceManager
	if cfg.Input.AutoConnect || inputName != "" {
		inName := cfg.Input.PortName
		if inputName != "" {
			inName = inputName
		}
		deviceMgr = midi.NewDeviceManager(inName, log)
		go deviceMgr.Run(ctx)
	}

	th := theme.New(nil)
	if cfg.UI.Palette != "" {
		if p, err := theme.LoadGPL(cfg.UI.Palette); err != nil {
			log.Warn("palette", zap.Error(err))
		} else {
			th = theme.New(p)
		}
	}

	if abs, err := filepath.Abs(path); err == nil {
		cfg.UI.LastFile = abs
		if err := saveConfig(cfg); err != nil {
			log.Warn("save config", zap.Error(err))
		}
	}

	session.Start()
	defer session.Stop()

	m := tui.NewModel(session, deviceMgr, surface, th, filepath.Base(path))
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("ui: %w", err)
	}
	return nil
}
