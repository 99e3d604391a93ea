// Package recognition identifies the person on a submitted photo against the identity store,
// registering people seen for the first time.
package recognition

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kozaktomas/face-roster/internal/database"
	"github.com/kozaktomas/face-roster/internal/oracle"
	"github.com/kozaktomas/face-roster/internal/photo"
)

// Request is an identification request as received from a transport.
type Request struct {
	Photo string `json:"photo"`
}

// Identification is the identity matched or created for a request, with the emotion inferred
// from the submitted photo. Name fields and grade are null until the identity is registered.
type Identification struct {
	UUID         string  `json:"uuid"`
	FirstName    *string `json:"firstName"`
	LastName     *string `json:"lastName"`
	Grade        *int    `json:"grade"`
	Emotion      string  `json:"emotion"`
	IsRegistered bool    `json:"isRegistered"`

	// Created reports whether the identity was stored by this request.
	Created bool `json:"-"`
}

// Result is either an Identification or the error that prevented it.
type Result struct {
	Identification *Identification
	Err            error
}

// OK reports whether the request succeeded.
func (r Result) OK() bool {
	return r.Err == nil && r.Identification != nil
}

// Service runs the identification flow: decode, emotion, match, register.
type Service struct {
	matcher   *Matcher
	registrar *Registrar
	oracle    oracle.Oracle
	logger    *slog.Logger
}

// NewService wires a service over store and oracle. A nil logger uses slog.Default().
func NewService(store database.IdentityWriter, o oracle.Oracle, pageSize int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		matcher:   NewMatcher(store, o, pageSize),
		registrar: NewRegistrar(store),
		oracle:    o,
		logger:    logger,
	}
}

// Identify never returns an error directly; every failure, panics included, ends up in Result.Err.
func (s *Service) Identify(ctx context.Context, req Request) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "identification panicked", "panic", fmt.Sprint(r))
			res = Result{Err: fmt.Errorf("%w: identification aborted", ErrInternal)}
		}
		s.logResult(ctx, res)
	}()

	submitted, err := photo.Decode(req.Photo)
	if err != nil {
		return Result{Err: err}
	}

	// Emotion is inferred before the store is touched, so oracle failures never leave a write behind.
	emotion, err := s.oracle.Emotion(ctx, submitted)
	if err != nil {
		return Result{Err: fmt.Errorf("detect emotion: %w", err)}
	}

	match, err := s.matcher.Find(ctx, submitted)
	if err != nil {
		return Result{Err: fmt.Errorf("find identity: %w", err)}
	}

	identity, created, err := s.registrar.Ensure(ctx, submitted, match)
	if err != nil {
		return Result{Err: err}
	}

	return Result{Identification: &Identification{
		UUID:         identity.UUID,
		FirstName:    identity.FirstName,
		LastName:     identity.LastName,
		Grade:        identity.Grade,
		Emotion:      emotion,
		IsRegistered: identity.IsRegistered,
		Created:      created,
	}}
}

func (s *Service) logResult(ctx context.Context, res Result) {
	if res.Err != nil {
		s.logger.WarnContext(ctx, "identification failed",
			"kind", ErrorKind(res.Err),
			"error", res.Err,
		)
		return
	}
	s.logger.InfoContext(ctx, "identification completed",
		"uuid", res.Identification.UUID,
		"created", res.Identification.Created,
		"emotion", res.Identification.Emotion,
		"registered", res.Identification.IsRegistered,
	)
}
