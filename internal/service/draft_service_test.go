package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/dhelbig/korrespondenz/internal/config"
	"github.com/dhelbig/korrespondenz/internal/ollama"
)

func TestDraftValidatesBeforeReachingOllama(t *testing.T) {
	svc := NewDraftService(ollama.NewClient(config.OllamaConfig{}), nil, zerolog.Nop())

	_, err := svc.Draft(context.Background(), DraftInput{})
	require.ErrorIs(t, err, ErrValidation, "empty context")
}

func TestDraftDisabledClientIsUnavailable(t *testing.T) {
	svc := NewDraftService(ollama.NewClient(config.OllamaConfig{Enabled: false}), nil, zerolog.Nop())

	_, err := svc.Draft(context.Background(), DraftInput{Context: "Mahnung wegen offener Rechnung"})
	require.ErrorIs(t, err, ErrServiceUnavailable)
}
