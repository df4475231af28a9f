package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mhameln/wg-inquiry/internal/adapters/personalize/gemini"
	tomlrepo "github.com/mhameln/wg-inquiry/internal/adapters/repo/toml"
	"github.com/mhameln/wg-inquiry/internal/adapters/wgapi"
	"github.com/mhameln/wg-inquiry/internal/application"
	"github.com/mhameln/wg-inquiry/internal/config"
	"github.com/mhameln/wg-inquiry/internal/domain"
	"github.com/mhameln/wg-inquiry/internal/ports"
)

type app struct {
	cfg      config.Config
	log      zerolog.Logger
	client   *wgapi.Client
	sessions *application.SessionService
	bot      *application.Bot
	runs     ports.RunLogRepository
	lock     *application.RunLock
	template string
}

// wireApp builds the full dispatch stack; it needs a valid configuration
// including credentials. The status command wires its own lighter subset.
func wireApp(ctx context.Context, opts *rootOptions) (*app, error) {
	cfg, err := config.Load(opts.stateDir)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := opts.logger()

	mode, err := domain.ParseAuthMode(cfg.Account.AuthMode)
	if err != nil {
		return nil, err
	}

	client, err := wgapi.New(mode, wgapi.WithLogger(log.With().Str("component", "wgapi").Logger()))
	if err != nil {
		return nil, fmt.Errorf("wire api client: %w", err)
	}

	sessionRepo, err := tomlrepo.NewSessionRepository(cfg.StateDir)
	if err != nil {
		return nil, fmt.Errorf("wire session repository: %w", err)
	}
	contactedRepo, err := tomlrepo.NewContactedRepository(cfg.StateDir)
	if err != nil {
		return nil, fmt.Errorf("wire contacted repository: %w", err)
	}
	runRepo, err := tomlrepo.NewRunLogRepository(cfg.StateDir)
	if err != nil {
		return nil, fmt.Errorf("wire run log repository: %w", err)
	}

	var personalizer ports.Personalizer
	if cfg.Gemini.Enabled {
		p, err := gemini.New(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, log.With().Str("component", "gemini").Logger())
		if err != nil {
			// Personalization is optional; a broken key must not block runs.
			log.Warn().Err(err).Msg("gemini disabled for this session")
		} else {
			personalizer = p
		}
	}

	template, err := cfg.MessageTemplate()
	if err != nil {
		return nil, err
	}

	pipeline := application.NewPipeline(client, log.With().Str("component", "pipeline").Logger())
	bot := application.NewBot(
		client,
		pipeline,
		contactedRepo,
		runRepo,
		personalizer,
		ports.SystemClock{},
		log.With().Str("component", "bot").Logger(),
	)

	return &app{
		cfg:      cfg,
		log:      log,
		client:   client,
		sessions: application.NewSessionService(client, sessionRepo, log.With().Str("component", "session").Logger()),
		bot:      bot,
		runs:     runRepo,
		lock:     application.NewRunLock(cfg.StateDir),
		template: template,
	}, nil
}

func (a *app) ensureSession(ctx context.Context) error {
	var prompt ports.CodePrompt
	if a.cfg.Settings.Prompt2FA {
		prompt = stdinCodePrompt
	}
	return a.sessions.Ensure(ctx, a.cfg.Account.Email, a.cfg.Account.Password, a.cfg.Account.VerificationCode, prompt)
}

func (a *app) runOnce(ctx context.Context) (domain.RunRecord, error) {
	if err := a.ensureSession(ctx); err != nil {
		return domain.RunRecord{}, err
	}

	record, err := a.bot.Run(ctx, application.RunOptions{
		Criteria:              a.cfg.Criteria(),
		Template:              a.template,
		DryRun:                a.cfg.Settings.DryRun,
		MaxMessages:           a.cfg.Settings.MaxMessagesPerRun,
		Delay:                 a.cfg.Settings.DelayBetweenMessages,
		MarkContactedInDryRun: a.cfg.Settings.MarkContactedInDryRun,
	})
	if err != nil {
		return record, err
	}

	a.log.Info().
		Int("found", record.OffersFound).
		Int("new", record.OffersNew).
		Int("sent", record.MessagesSent).
		Bool("dry_run", record.DryRun).
		Msg("run complete")
	return record, nil
}

func stdinCodePrompt() (string, error) {
	fmt.Fprint(os.Stderr, "Verification code: ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read verification code: %w", err)
	}
	return strings.TrimSpace(line), nil
}
