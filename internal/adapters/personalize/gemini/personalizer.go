// Package gemini personalizes outreach messages with the Gemini API. The
// adapter is strictly best-effort; callers fall back to the plain template
// on any error.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/mhameln/wg-inquiry/internal/domain"
	"github.com/mhameln/wg-inquiry/internal/ports"
)

const (
	defaultModel = "gemini-1.5-flash"

	// descriptionMaxLen caps how much listing text goes into the prompt.
	descriptionMaxLen = 500
)

type Personalizer struct {
	client *genai.Client
	model  string
	log    zerolog.Logger
}

var _ ports.Personalizer = (*Personalizer)(nil)

func New(ctx context.Context, apiKey, model string, log zerolog.Logger) (*Personalizer, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	if model == "" {
		model = defaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	log.Debug().Str("model", model).Msg("gemini personalizer ready")
	return &Personalizer{client: client, model: model, log: log}, nil
}

// Personalize rewrites the template around the listing facts. The returned
// text is trimmed; length validation is the caller's policy.
func (p *Personalizer) Personalize(ctx context.Context, template string, facts domain.ListingFacts, recipient string) (string, error) {
	prompt := buildPrompt(template, facts, recipient)

	resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("generate personalized message: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("generate personalized message: empty response")
	}
	return text, nil
}

func buildPrompt(template string, facts domain.ListingFacts, recipient string) string {
	description := facts.Description
	if runes := []rune(description); len(runes) > descriptionMaxLen {
		description = string(runes[:descriptionMaxLen])
	}

	var b strings.Builder
	b.WriteString("Du bist ein freundlicher WG-Bewerber. Personalisiere die folgende Nachricht basierend auf der WG-Anzeige.\n\n")
	b.WriteString("WICHTIGE REGELN:\n")
	b.WriteString("1. Behalte den Grundton und die Struktur der Originalnachricht bei\n")
	b.WriteString("2. Füge 1-2 spezifische Bezüge zur Anzeige hinzu (z.B. Lage, etwas Besonderes aus der Beschreibung)\n")
	b.WriteString("3. Bleib authentisch und nicht zu übertrieben freundlich\n")
	b.WriteString("4. Die Nachricht sollte etwa gleich lang bleiben\n")
	b.WriteString("5. Schreibe auf Deutsch\n")
	b.WriteString("6. Ersetze {name} mit dem echten Namen\n\n")
	fmt.Fprintf(&b, "ORIGINALNACHRICHT:\n%s\n\n", template)
	b.WriteString("WG-ANZEIGE:\n")
	fmt.Fprintf(&b, "Titel: %s\n", facts.Title)
	fmt.Fprintf(&b, "Bezirk: %s\n", facts.District)
	fmt.Fprintf(&b, "Miete: %s€\n", facts.Rent)
	fmt.Fprintf(&b, "Beschreibung: %s\n\n", description)
	fmt.Fprintf(&b, "EMPFÄNGER: %s\n\n", recipient)
	b.WriteString("Gib NUR die personalisierte Nachricht zurück, keine Erklärungen.")
	return b.String()
}

// Ping verifies the API key with a minimal generation request.
func (p *Personalizer) Ping(ctx context.Context) error {
	resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text("Sag einfach 'OK'"), nil)
	if err != nil {
		return fmt.Errorf("gemini ping: %w", err)
	}
	if strings.TrimSpace(resp.Text()) == "" {
		return errors.New("gemini ping: empty response")
	}
	return nil
}
