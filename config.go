package main

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/Seednode/partybox-telephone/games/telephone"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind         string
	brushColor   string
	brushSize    float64
	canvasHeight int
	canvasWidth  int
	chatBurst    int
	chatRate     float64
	name         string
	pixelRatio   float64
	port         int
	prefix       string
	profile      bool
	room         string
	server       string
	tlsCert      string
	tlsKey       string
	verbose      bool
	version      bool
}

func (c *Config) validate() error {
	c.room = strings.TrimSpace(c.room)
	c.name = strings.TrimSpace(c.name)

	if c.room == "" {
		return errors.New("--room must not be empty")
	}
	if c.name == "" {
		return errors.New("--name must not be empty")
	}
	if _, err := telephone.RoomURL(c.server, c.room); err != nil {
		return fmt.Errorf("invalid --server: %w", err)
	}
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 0 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 0-65535 inclusive): %d", c.port)
	}
	if c.canvasWidth < 1 || c.canvasHeight < 1 {
		return fmt.Errorf("invalid canvas size: %dx%d", c.canvasWidth, c.canvasHeight)
	}
	if c.pixelRatio <= 0 {
		return fmt.Errorf("invalid pixel ratio: %v", c.pixelRatio)
	}
	if c.brushSize <= 0 {
		return fmt.Errorf("invalid brush size: %v", c.brushSize)
	}
	if _, err := telephone.ParseColor(c.brushColor); err != nil {
		return fmt.Errorf("invalid --brush-color: %w", err)
	}
	if c.chatBurst < 1 {
		return fmt.Errorf("invalid chat burst (must be at least 1): %d", c.chatBurst)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func (c *Config) brush() telephone.Brush {
	col, err := telephone.ParseColor(c.brushColor)
	if err != nil {
		return telephone.DefaultBrush()
	}
	return telephone.Brush{Color: col, Size: c.brushSize}
}

// joinURL is the link other players open to join this room.
func (c *Config) joinURL() string {
	u, err := url.Parse(strings.TrimSpace(c.server))
	if err != nil {
		return c.server
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/"
	u.RawQuery = url.Values{"room": {c.room}}.Encode()
	u.Fragment = ""
	return u.String()
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("TELEPHONE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "telephone",
		Short:         "Terminal client for the telephone drawing party game.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "127.0.0.1", "address the local viewer binds to (env: TELEPHONE_BIND)")
	fs.StringVar(&cfg.brushColor, "brush-color", "#000000", "initial brush color (env: TELEPHONE_BRUSH_COLOR)")
	fs.Float64Var(&cfg.brushSize, "brush-size", telephone.DefaultBrushSize, "initial brush diameter in display pixels (env: TELEPHONE_BRUSH_SIZE)")
	fs.IntVar(&cfg.canvasHeight, "canvas-height", telephone.DefaultCanvasHeight, "drawing surface height in display pixels (env: TELEPHONE_CANVAS_HEIGHT)")
	fs.IntVar(&cfg.canvasWidth, "canvas-width", telephone.DefaultCanvasWidth, "drawing surface width in display pixels (env: TELEPHONE_CANVAS_WIDTH)")
	fs.IntVar(&cfg.chatBurst, "chat-burst", 5, "chat messages allowed in a burst (env: TELEPHONE_CHAT_BURST)")
	fs.Float64Var(&cfg.chatRate, "chat-rate", 2, "sustained chat messages per second, 0 to disable throttling (env: TELEPHONE_CHAT_RATE)")
	fs.StringVarP(&cfg.name, "name", "n", "Player", "display name announced to the room (env: TELEPHONE_NAME)")
	fs.Float64Var(&cfg.pixelRatio, "pixel-ratio", 1, "device pixels per display pixel (env: TELEPHONE_PIXEL_RATIO)")
	fs.IntVarP(&cfg.port, "port", "p", 8081, "port the local viewer listens on, 0 to disable (env: TELEPHONE_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all viewer URLs, for use behind reverse proxy (env: TELEPHONE_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers on the viewer (env: TELEPHONE_PROFILE)")
	fs.StringVarP(&cfg.room, "room", "r", "1", "room to join (env: TELEPHONE_ROOM)")
	fs.StringVar(&cfg.server, "server", "http://localhost:8000", "base URL of the game server (env: TELEPHONE_SERVER)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate for the viewer (env: TELEPHONE_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile for the viewer (env: TELEPHONE_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: TELEPHONE_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: TELEPHONE_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("telephone v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
