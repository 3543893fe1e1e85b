package service

import (
	"context"
	"errors"

	"github.com/okian/podium/internal/adapters/repository"
	"github.com/okian/podium/internal/domain/model"
)

// Authorizer decides whether a caller may finish or reopen events.
type Authorizer interface {
	CanManageEvents(ctx context.Context, callerID string) (bool, error)
}

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc func(ctx context.Context, callerID string) (bool, error)

func (f AuthorizerFunc) CanManageEvents(ctx context.Context, callerID string) (bool, error) {
	return f(ctx, callerID)
}

// ParticipantDirectory looks up a single participant.
type ParticipantDirectory interface {
	Participant(ctx context.Context, id string) (model.Participant, error)
}

// DirectoryAuthorizer grants event management to admin participants.
type DirectoryAuthorizer struct {
	Directory ParticipantDirectory
}

func (a DirectoryAuthorizer) CanManageEvents(ctx context.Context, callerID string) (bool, error) {
	if callerID == "" {
		return false, nil
	}
	p, err := a.Directory.Participant(ctx, callerID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return p.Admin, nil
}
