/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/Seednode/partybox-telephone/games/telephone"
	"golang.org/x/time/rate"
)

func sessionOptions(cfg *Config) telephone.Options {
	return telephone.Options{
		RoomID:       cfg.room,
		Name:         cfg.name,
		CanvasWidth:  cfg.canvasWidth,
		CanvasHeight: cfg.canvasHeight,
		PixelRatio:   cfg.pixelRatio,
		Brush:        cfg.brush(),
		ChatRate:     rate.Limit(cfg.chatRate),
		ChatBurst:    cfg.chatBurst,
	}
}

// run connects to the room and plays from the terminal until the player
// quits or ctx is cancelled.
func run(ctx context.Context, cfg *Config, in io.Reader, out, errOut io.Writer) error {
	var err error

	timeZone := os.Getenv("TZ")
	if timeZone != "" {
		time.Local, err = time.LoadLocation(timeZone)
		if err != nil {
			return err
		}
	}

	log := newLogger(cfg, errOut)
	log.Info().Msgf("START: telephone v%s", releaseVersion)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	term := newTerminal(out)

	opts := sessionOptions(cfg)
	opts.Renderer = term
	opts.Logger = &log
	sess := telephone.New(opts)

	// A failed dial leaves the session offline; chat and the viewer
	// still run until the player quits.
	var stream telephone.Stream
	conn, err := sess.Connect(ctx, cfg.server)
	if err != nil {
		log.Error().Err(err).Str("server", cfg.server).Msg("could not connect")
	} else {
		defer conn.Close()
		stream = conn
	}

	term.Println("Type /help for commands.")

	if cfg.port != 0 {
		go func() {
			if err := ServeViewer(ctx, cfg, sess, log); err != nil {
				log.Error().Err(err).Msg("viewer stopped")
			}
		}()
		log.Info().Str("join", cfg.joinURL()).Msg("share the room")
	}

	go func() {
		defer cancel()
		if err := readCommands(ctx, in, sess, term, log); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("reading input")
		}
	}()

	err = sess.Run(ctx, stream)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
