package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dhelbig/korrespondenz/internal/ollama"
	"github.com/dhelbig/korrespondenz/internal/repository"
)

// DraftService produces AI-drafted correspondence text. It is advisory only
// and never touches document creation.
type DraftService struct {
	client   *ollama.Client
	contacts *repository.ContactRepository
	log      zerolog.Logger
}

func NewDraftService(client *ollama.Client, contacts *repository.ContactRepository, log zerolog.Logger) *DraftService {
	return &DraftService{client: client, contacts: contacts, log: log}
}

type DraftInput struct {
	DocType   string
	Context   string
	Tone      string
	ContactID uint
}

type DraftResult struct {
	Text  string
	Model string
}

func (s *DraftService) Draft(ctx context.Context, in DraftInput) (*DraftResult, error) {
	if strings.TrimSpace(in.Context) == "" {
		return nil, fmt.Errorf("%w: context is required", ErrValidation)
	}
	if in.Tone == "" {
		in.Tone = "formal"
	}
	if !s.client.IsAvailable(ctx) {
		return nil, fmt.Errorf("%w: ollama is unreachable", ErrServiceUnavailable)
	}

	contactName := ""
	if in.ContactID != 0 {
		if contact, err := s.contacts.Get(ctx, in.ContactID); err == nil {
			contactName = contact.DisplayName()
		}
	}

	var text string
	var err error
	switch in.DocType {
	case "", "letter":
		text, err = s.client.GenerateLetterDraft(ctx, in.Context, in.Tone, contactName)
	case "offer_intro":
		text, err = s.client.GenerateOfferIntro(ctx, in.Context, contactName)
	case "improve":
		text, err = s.client.ImproveText(ctx, in.Context)
	default:
		return nil, fmt.Errorf("%w: invalid doc_type %q", ErrValidation, in.DocType)
	}
	if err != nil {
		s.log.Error().Err(err).Msg("draft generation failed")
		return nil, fmt.Errorf("draft generation failed: %w", err)
	}

	return &DraftResult{Text: strings.TrimSpace(text), Model: s.client.Model()}, nil
}
