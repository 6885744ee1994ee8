package gateway

import (
	"errors"

	"github.com/park285/bonk-chess-server/internal/bonk"
	"github.com/park285/bonk-chess-server/internal/lobby"
	"github.com/park285/bonk-chess-server/internal/match"
	"github.com/park285/bonk-chess-server/internal/obslog"
	"github.com/park285/bonk-chess-server/pkg/bonkdto"
	"go.uber.org/zap"
)

type badRequestError string

func (e badRequestError) Error() string { return "bad request: " + string(e) }

type unknownTypeError string

func (e unknownTypeError) Error() string { return "unknown message type: " + string(e) }

// matchError attaches the match id a request referred to.
type matchError struct {
	matchID string
	err     error
}

func (e *matchError) Error() string { return e.err.Error() }
func (e *matchError) Unwrap() error { return e.err }

func withMatch(matchID string, err error) error {
	if err == nil {
		return nil
	}
	return &matchError{matchID: matchID, err: err}
}

var codeTable = []struct {
	err       error
	code      string
	retryable bool
}{
	{bonk.ErrBadMove, bonkdto.CodeBadMove, false},
	{bonk.ErrIllegalMove, bonkdto.CodeIllegalMove, false},
	{match.ErrNotYourTurn, bonkdto.CodeNotYourTurn, false},
	{match.ErrNotSeated, bonkdto.CodeNotSeated, false},
	{match.ErrNotStarted, bonkdto.CodeNotStarted, true},
	{match.ErrMatchOver, bonkdto.CodeMatchOver, false},
	{match.ErrFull, bonkdto.CodeFull, false},
	{match.ErrAlreadySeated, bonkdto.CodeAlreadySeated, false},
	{match.ErrInvalidTimeControl, bonkdto.CodeInvalidArgs, false},
	{lobby.ErrMatchNotFound, bonkdto.CodeNotFound, false},
	{lobby.ErrTooManyMatches, bonkdto.CodeTooMany, true},
	{lobby.ErrAlreadyWaiting, bonkdto.CodeAlreadyWaiting, false},
	{lobby.ErrInvalidArgs, bonkdto.CodeInvalidArgs, false},
}

// domainError converts a request failure into its wire form.
func (s *Server) domainError(err error) bonkdto.DomainError {
	data := map[string]string{"MatchID": "", "Detail": "", "Type": ""}
	var me *matchError
	if errors.As(err, &me) {
		data["MatchID"] = me.matchID
	}

	code, retryable := bonkdto.CodeInternal, false
	var bad badRequestError
	var unknown unknownTypeError
	switch {
	case errors.As(err, &bad):
		code = bonkdto.CodeBadRequest
		data["Detail"] = string(bad)
	case errors.As(err, &unknown):
		code = bonkdto.CodeUnknownType
		data["Type"] = string(unknown)
	default:
		for _, row := range codeTable {
			if errors.Is(err, row.err) {
				code, retryable = row.code, row.retryable
				break
			}
		}
	}
	if code == bonkdto.CodeInternal {
		obslog.L().Warn("ws_internal_error", zap.Error(err))
	}
	return bonkdto.DomainError{
		Code:      code,
		Message:   s.opts.Catalog.Text("error."+code, data, err.Error()),
		Retryable: retryable,
	}
}
