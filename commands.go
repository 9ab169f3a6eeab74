/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Seednode/partybox-telephone/games/telephone"
	"github.com/rs/zerolog"
)

const helpText = `Commands:
  /start              start the game (host only)
  /restart            reset the room (host only)
  /word <text>        submit a word
  /draw x,y x,y ...   draw one stroke through the given points
  /erase              toggle the eraser
  /color #rrggbb      set the brush color
  /size <n>           set the brush size
  /clear              clear the canvas
  /submit             submit the drawing
  /ok, /bad           vote on the chain being shown
  /next               show the next chain
  /room               go back to the room screen
  /help               show this help
  /quit               leave
Anything else is sent as chat.`

var errQuit = errors.New("quit")

// action is one player input, applied on the session's goroutine.
type action func(*telephone.Session) error

func parseCommand(line string) (action, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, nil
	}
	if !strings.HasPrefix(line, "/") {
		return func(s *telephone.Session) error {
			return s.SendChat(line)
		}, nil
	}

	name, arg, _ := strings.Cut(line[1:], " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(name) {
	case "start":
		return (*telephone.Session).StartGame, nil
	case "restart":
		return (*telephone.Session).Restart, nil
	case "word":
		return func(s *telephone.Session) error {
			s.TypeWord(arg)
			return s.SubmitWord()
		}, nil
	case "draw":
		points, err := parsePoints(arg)
		if err != nil {
			return nil, err
		}
		return func(s *telephone.Session) error {
			s.PointerDown(points[0])
			for _, p := range points[1:] {
				s.PointerMove(p)
			}
			s.PointerUp()
			return nil
		}, nil
	case "erase":
		return func(s *telephone.Session) error {
			s.ToggleEraser()
			return nil
		}, nil
	case "color":
		col, err := telephone.ParseColor(arg)
		if err != nil {
			return nil, err
		}
		return func(s *telephone.Session) error {
			b := s.Canvas().Brush()
			b.Color = col
			s.SetBrush(b)
			return nil
		}, nil
	case "size":
		size, err := strconv.ParseFloat(arg, 64)
		if err != nil || size <= 0 {
			return nil, fmt.Errorf("invalid brush size %q", arg)
		}
		return func(s *telephone.Session) error {
			b := s.Canvas().Brush()
			b.Size = size
			s.SetBrush(b)
			return nil
		}, nil
	case "clear":
		return func(s *telephone.Session) error {
			s.ClearCanvas()
			return nil
		}, nil
	case "submit":
		return (*telephone.Session).SubmitDrawing, nil
	case "ok", "bad":
		ok := strings.EqualFold(name, "ok")
		return func(s *telephone.Session) error {
			return s.Vote(ok)
		}, nil
	case "next":
		return (*telephone.Session).NextChain, nil
	case "room":
		return func(s *telephone.Session) error {
			s.ShowRoom()
			return nil
		}, nil
	case "quit", "exit":
		return nil, errQuit
	}

	return nil, fmt.Errorf("unknown command /%s, try /help", name)
}

// parsePoints reads "x,y x,y ..." in display pixels.
func parsePoints(s string) ([]telephone.Point, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, errors.New("usage: /draw x,y x,y ...")
	}

	points := make([]telephone.Point, 0, len(fields))
	for _, f := range fields {
		xs, ys, ok := strings.Cut(f, ",")
		if !ok {
			return nil, fmt.Errorf("invalid point %q", f)
		}
		x, err := strconv.ParseFloat(xs, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid point %q", f)
		}
		y, err := strconv.ParseFloat(ys, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid point %q", f)
		}
		points = append(points, telephone.Point{X: x, Y: y})
	}

	return points, nil
}

// noticed reports whether the session already told the player about err.
func noticed(err error) bool {
	for _, target := range []error{
		telephone.ErrNotHost,
		telephone.ErrEmptyWord,
		telephone.ErrBlankDrawing,
		telephone.ErrChatThrottled,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// readCommands feeds stdin lines to the session until ctx is done, the
// input ends or the player quits.
func readCommands(ctx context.Context, in io.Reader, sess *telephone.Session, term *terminal, log zerolog.Logger) error {
	scanner := bufio.NewScanner(in)

	for scanner.Scan() {
		line := scanner.Text()
		if strings.EqualFold(strings.TrimSpace(line), "/help") {
			term.Println(helpText)
			continue
		}

		act, err := parseCommand(line)
		switch {
		case errors.Is(err, errQuit):
			return nil
		case err != nil:
			term.Notice(err.Error())
			continue
		case act == nil:
			continue
		}

		err = sess.Post(ctx, func(s *telephone.Session) {
			if err := act(s); err != nil {
				log.Debug().Err(err).Str("input", line).Msg("command rejected")
				if !noticed(err) {
					term.Notice(err.Error())
				}
			}
		})
		if err != nil {
			return err
		}
	}

	return scanner.Err()
}
