package bonkdto

// Error codes sent to clients.
const (
	CodeBadRequest     = "bad_request"
	CodeUnknownType    = "unknown_type"
	CodeBadMove        = "bad_move"
	CodeIllegalMove    = "illegal_move"
	CodeNotYourTurn    = "not_your_turn"
	CodeNotSeated      = "not_seated"
	CodeNotStarted     = "not_started"
	CodeMatchOver      = "match_over"
	CodeNotFound       = "not_found"
	CodeFull           = "full"
	CodeAlreadySeated  = "already_seated"
	CodeAlreadyWaiting = "already_waiting"
	CodeTooMany        = "too_many_matches"
	CodeInvalidArgs    = "invalid_args"
	CodeUnauthorized   = "unauthorized"
	CodeInternal       = "internal"
)

type DomainError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "bonk chess error"
}
