package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/livetemplate/pagecraft"
	"github.com/livetemplate/pagecraft/internal/config"
	"github.com/livetemplate/pagecraft/internal/logging"
	"github.com/livetemplate/pagecraft/internal/preset"
	"github.com/livetemplate/pagecraft/internal/server"
)

type serveOptions struct {
	configPath string
	port       string
	host       string
	presetsDir string
	watch      *bool
	open       string
}

func parseServeArgs(args []string) (serveOptions, error) {
	var o serveOptions
	value := func(i *int, name string) (string, error) {
		if *i+1 >= len(args) {
			return "", fmt.Errorf("%s requires a value", name)
		}
		*i++
		return args[*i], nil
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		var err error
		switch arg {
		case "--config", "-c":
			o.configPath, err = value(&i, arg)
		case "--port", "-p":
			o.port, err = value(&i, arg)
		case "--host":
			o.host, err = value(&i, arg)
		case "--presets":
			o.presetsDir, err = value(&i, arg)
		case "--open":
			o.open, err = value(&i, arg)
		case "--watch", "-w":
			watch := true
			o.watch = &watch
		default:
			if strings.HasPrefix(arg, "-") {
				return o, fmt.Errorf("unknown flag: %s", arg)
			}
			return o, fmt.Errorf("unexpected argument: %s", arg)
		}
		if err != nil {
			return o, err
		}
	}
	return o, nil
}

// loadServeConfig reads the config file and applies flag overrides.
func loadServeConfig(o serveOptions) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.Load(o.configPath)
	} else {
		cfg, err = config.LoadFromDir(".")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if o.port != "" {
		port, err := strconv.Atoi(o.port)
		if err != nil {
			return nil, fmt.Errorf("invalid port: %s", o.port)
		}
		cfg.Server.Port = port
	}
	if o.host != "" {
		cfg.Server.Host = o.host
	}
	if o.presetsDir != "" {
		cfg.Presets.Dir = o.presetsDir
	}
	if o.watch != nil {
		cfg.Presets.Watch = *o.watch
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ServeCommand implements the serve command.
func ServeCommand(args []string) error {
	opts, err := parseServeArgs(args)
	if err != nil {
		return err
	}
	cfg, err := loadServeConfig(opts)
	if err != nil {
		return err
	}

	logs, err := logging.New().
		Level(cfg.Log.Level).
		Format(cfg.Log.Format).
		ToFile(cfg.Log.File).
		Make()
	if err != nil {
		return err
	}
	defer logs.Close()
	log := logs.Logger
	if cfg.Server.Debug {
		log = log.Level(zerolog.DebugLevel)
	}

	editorOpts := []pagecraft.Option{pagecraft.WithConfig(cfg), pagecraft.WithLogger(log)}
	if cfg.Presets.Dir != "" {
		lib, err := preset.LoadDir(cfg.Presets.Dir)
		if err != nil {
			return fmt.Errorf("failed to load presets: %w", err)
		}
		editorOpts = append(editorOpts, pagecraft.WithPresets(lib))
	}
	ed := pagecraft.NewEditor(editorOpts...)

	if opts.open != "" {
		if err := importFile(ed, opts.open); err != nil {
			return err
		}
	}

	srv := server.New(ed, cfg, log)
	if cfg.Presets.Watch {
		if err := srv.EnableWatch(cfg.Presets.Dir); err != nil {
			return err
		}
	}

	fmt.Printf("pagecraft editing server\n\n")
	fmt.Printf("HTTP API:  http://%s/api/document\n", cfg.Server.Addr())
	fmt.Printf("Websocket: ws://%s/ws\n", cfg.Server.Addr())
	if cfg.Presets.Dir != "" {
		fmt.Printf("Presets:   %s", cfg.Presets.Dir)
		if cfg.Presets.Watch {
			fmt.Printf(" (watching)")
		}
		fmt.Println()
	}
	fmt.Printf("Press Ctrl+C to stop\n\n")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.ListenAndServe(ctx)
}
