package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/park285/bonk-chess-server/internal/bonk"
	"github.com/park285/bonk-chess-server/internal/lobby"
	"github.com/park285/bonk-chess-server/internal/match"
	"github.com/park285/bonk-chess-server/internal/obslog"
	"github.com/park285/bonk-chess-server/pkg/bonkdto"
	"go.uber.org/zap"
)

func (s *Server) dispatch(_ context.Context, c *client, env bonkdto.Envelope) {
	var err error
	switch env.Type {
	case bonkdto.TypeCreateMatch:
		err = s.createMatch(c, env.Data)
	case bonkdto.TypeJoinMatch:
		err = s.joinMatch(c, env.Data)
	case bonkdto.TypeMakeMove:
		err = s.makeMove(c, env.Data)
	case bonkdto.TypeResign:
		err = s.resign(c, env.Data)
	case bonkdto.TypeListMatches:
		s.reply(c, bonkdto.TypeMatches, s.opts.Directory.ListJoinable())
	case bonkdto.TypeFindGame:
		_, err = s.opts.Directory.FindGame(c.id, c.username)
	case bonkdto.TypeCancelFind:
		s.opts.Directory.CancelFind(c.id)
	default:
		err = unknownTypeError(env.Type)
	}
	if err != nil {
		obslog.L().Debug("ws_request_failed",
			zap.String("conn_id", c.id),
			zap.String("type", env.Type),
			zap.Error(err))
		s.reply(c, bonkdto.TypeError, s.domainError(err))
	}
}

func (s *Server) reply(c *client, typ string, data any) {
	if !c.enqueue(bonkdto.Outgoing{Type: typ, Data: data}) {
		c.stop()
	}
}

// seatReply sends matchCreated/matchJoined from inside the seat transition so it
// precedes the first state broadcast.
func (s *Server) seatReply(c *client, typ string) lobby.SeatedFunc {
	return func(matchID string, color bonk.Color) {
		s.reply(c, typ, bonkdto.SeatResponse{MatchID: matchID, Color: string(color)})
	}
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return badRequestError("missing data")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return badRequestError(err.Error())
	}
	return nil
}

func parseSide(s string) bonk.Color {
	c, _ := bonk.ParseColor(s)
	return c
}

func (s *Server) createMatch(c *client, raw json.RawMessage) error {
	var req bonkdto.CreateMatchRequest
	if len(raw) > 0 {
		if err := decode(raw, &req); err != nil {
			return err
		}
	}
	var tc *match.TimeControl
	if req.TimeControl != nil {
		tc = &match.TimeControl{InitialSeconds: req.TimeControl.InitialSeconds, IncrementSeconds: req.TimeControl.IncrementSeconds}
	}
	_, _, err := s.opts.Directory.Create(c.id, c.username, parseSide(req.Side), tc, s.seatReply(c, bonkdto.TypeMatchCreated))
	return err
}

func (s *Server) joinMatch(c *client, raw json.RawMessage) error {
	var req bonkdto.JoinMatchRequest
	if err := decode(raw, &req); err != nil {
		return err
	}
	_, _, err := s.opts.Directory.Join(req.MatchID, c.id, c.username, parseSide(req.Side), req.CreateIfAbsent, s.seatReply(c, bonkdto.TypeMatchJoined))
	return withMatch(req.MatchID, err)
}

func (s *Server) makeMove(c *client, raw json.RawMessage) error {
	var req bonkdto.MakeMoveRequest
	if err := decode(raw, &req); err != nil {
		return err
	}
	var mv bonk.Move
	switch {
	case req.UCI != "":
		parsed, err := bonk.ParseUCI(req.UCI)
		if err != nil {
			return err
		}
		mv = parsed
	case req.From != nil && req.To != nil:
		mv = bonk.Move{
			From: bonk.Square{Row: req.From[0], Col: req.From[1]},
			To:   bonk.Square{Row: req.To[0], Col: req.To[1]},
		}
	default:
		return fmt.Errorf("%w: need from/to or uci", bonk.ErrBadMove)
	}
	return withMatch(req.MatchID, s.opts.Directory.MakeMove(req.MatchID, c.id, mv))
}

func (s *Server) resign(c *client, raw json.RawMessage) error {
	var req bonkdto.ResignRequest
	if err := decode(raw, &req); err != nil {
		return err
	}
	return withMatch(req.MatchID, s.opts.Directory.Resign(req.MatchID, c.id))
}
