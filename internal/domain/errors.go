package domain

import "errors"

var (
	ErrInvalidSpread     = errors.New("invalid spread definition")
	ErrInvalidDeck       = errors.New("card set smaller than spread")
	ErrOutOfOrder        = errors.New("cards must be placed in order")
	ErrUnknownCard       = errors.New("card not in deck")
	ErrInvalidTransition = errors.New("operation not allowed in current draw state")

	ErrSpreadNotFound  = errors.New("spread not found")
	ErrTopicNotFound   = errors.New("topic not found")
	ErrDrawNotFound    = errors.New("draw not found")
	ErrReadingNotFound = errors.New("reading not found")

	ErrServiceClosed = errors.New("service is shutting down")

	ErrInterpretation = errors.New("interpretation failed")
	ErrUpstreamLLM    = errors.New("upstream LLM failure")
	ErrInvalidLLMJSON = errors.New("LLM returned invalid JSON after retry")
)
