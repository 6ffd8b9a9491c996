package service

import (
	"fmt"

	"github.com/zlc1004/Carpool-sub000/internal/challenge"
)

type Challenge struct {
	SessionID string `json:"sessionId"`
	Artifact  string `json:"artifact"`
}

type ChallengeService struct {
	store    *challenge.Store
	provider challenge.Provider
}

func NewChallengeService(store *challenge.Store, provider challenge.Provider) *ChallengeService {
	return &ChallengeService{
		store:    store,
		provider: provider,
	}
}

// Generate produces a new challenge artifact and registers its answer.
func (s *ChallengeService) Generate() (Challenge, error) {
	artifact, answer, err := s.provider.Generate()
	if err != nil {
		return Challenge{}, fmt.Errorf("generate challenge: %w", err)
	}

	sessionID, err := s.store.Create(answer)
	if err != nil {
		return Challenge{}, fmt.Errorf("create challenge session: %w", err)
	}

	return Challenge{
		SessionID: sessionID,
		Artifact:  artifact,
	}, nil
}
