package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/timmy/lookaloud/internal/config"
	"github.com/timmy/lookaloud/internal/domain"
	apperrors "github.com/timmy/lookaloud/internal/errors"
	"github.com/timmy/lookaloud/internal/logger"
	"github.com/timmy/lookaloud/internal/presenter"
	"github.com/timmy/lookaloud/internal/repository"
	"github.com/timmy/lookaloud/internal/service"
	"github.com/timmy/lookaloud/internal/workflow"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one describe command and returns the process exit code.
// Deferred cleanup always runs before main exits.
func run(args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("describe", flag.ContinueOnError)
	flags.SetOutput(stderr)
	configPath := flags.String("config", "", "Path to config file")
	imagePath := flags.String("image", "", "Image file to describe")
	speaker := flags.String("speaker", "", "Speaker voice: female or male")
	detail := flags.String("detail", "", "Description detail: simplified or detailed")
	savePath := flags.String("save", "", "Save the narration audio to this path")
	showHistory := flags.Int("history", 0, "Print the N most recent submissions and exit")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	if *configPath == "" {
		*configPath = os.Getenv("CONFIG_PATH")
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return 1
	}

	envCfg := logger.LoadFromEnv()
	envCfg.Format = "text"
	envCfg.Output = stderr
	if os.Getenv("LOG_LEVEL") == "" {
		envCfg.Level = "warn"
	}
	log := logger.NewFromEnv(envCfg)
	logger.SetDefaultLogger(log)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var history *repository.SubmissionRepository
	if cfg.Database.Enabled {
		db, err := repository.InitDB(&cfg.Database)
		if err != nil {
			log.Errorf("Failed to initialize database: %v", err)
			return 1
		}
		defer func() { _ = repository.Close(db) }()
		history = repository.NewSubmissionRepository(db)
	}

	if *showHistory > 0 {
		if history == nil {
			fmt.Fprintln(stderr, "History is disabled (database.enabled=false)")
			return 1
		}
		if err := printHistory(ctx, stdout, history, *showHistory); err != nil {
			log.Errorf("Failed to list history: %v", err)
			return 1
		}
		return 0
	}

	if *imagePath == "" {
		fmt.Fprintln(stderr, "Usage: describe -image <file> [-speaker female|male] [-detail simplified|detailed] [-save out.mp3]")
		return 2
	}

	defaults, err := cfg.Workflow.DefaultOptions()
	if err != nil {
		log.Errorf("Invalid workflow defaults: %v", err)
		return 1
	}

	describeService := service.NewDescribeService(&service.DescribeConfig{
		BaseURL:   cfg.Backend.BaseURL,
		Timeout:   cfg.Backend.Timeout,
		UserAgent: cfg.Backend.UserAgent,
	})

	observers := []workflow.Observer{workflow.NewLoggingObserver()}
	if history != nil {
		observers = append(observers, workflow.NewHistoryObserver(history))
	}

	controller := workflow.NewController(
		describeService,
		service.NewProseKeywordExtractor(cfg.Workflow.MaxKeywords),
		workflow.WithDefaults(defaults),
		workflow.WithMaxKeywords(cfg.Workflow.MaxKeywords),
		workflow.WithObservers(observers...),
	)

	cancel := controller.Subscribe(func(s domain.State) {
		if s.InFlight() {
			fmt.Fprintln(stderr, presenter.SubmitLabelInFlight)
		}
	})
	defer cancel()

	if err := applyFlags(controller, *speaker, *detail); err != nil {
		fmt.Fprintln(stderr, apperrors.UserMessage(err))
		return 2
	}

	data, err := os.ReadFile(*imagePath)
	if err != nil {
		log.Errorf("Failed to read image: %v", err)
		return 1
	}
	controller.SelectImage(service.InspectImage(filepath.Base(*imagePath), "", data))

	submitErr := controller.Submit(ctx)
	fmt.Fprint(stdout, presenter.RenderTerminal(presenter.Project(controller.State()), terminalWidth()))
	if submitErr != nil {
		return 1
	}

	if *savePath != "" {
		if err := saveAudio(ctx, describeService, controller.State(), *savePath); err != nil {
			fmt.Fprintf(stderr, "Failed to save audio: %s\n", apperrors.UserMessage(err))
			log.WithError(err).Warn("Audio download failed")
			return 1
		}
		fmt.Fprintf(stdout, "Audio saved to %s\n", *savePath)
	}
	return 0
}

func applyFlags(controller *workflow.Controller, speaker, detail string) error {
	var update domain.OptionsUpdate
	if speaker != "" {
		v, err := domain.ParseSpeakerVoice(speaker)
		if err != nil {
			return apperrors.NewValidationError(err.Error(), err)
		}
		update.SpeakerVoice = &v
	}
	if detail != "" {
		d, err := domain.ParseDescriptionDetail(detail)
		if err != nil {
			return apperrors.NewValidationError(err.Error(), err)
		}
		update.DescriptionDetail = &d
	}
	return controller.SetAnalysisOptions(update)
}

func saveAudio(ctx context.Context, svc *service.DescribeService, state domain.State, path string) error {
	if state.Result == nil {
		return apperrors.NewValidationError("No audio available.", nil)
	}
	file, err := svc.FetchAudio(ctx, service.StripCacheBuster(state.Result.AudioLocation))
	if err != nil {
		return err
	}
	return os.WriteFile(path, file.Data, 0o644)
}

func printHistory(ctx context.Context, out io.Writer, repo *repository.SubmissionRepository, limit int) error {
	subs, err := repo.ListRecent(ctx, limit, "")
	if err != nil {
		return err
	}
	for _, s := range subs {
		line := fmt.Sprintf("%s  %-9s  %-20s  %s/%s",
			s.CreatedAt.Format("2006-01-02 15:04:05"), s.Outcome, s.FileName, s.SpeakerVoice, s.DescriptionDetail)
		if s.Outcome == domain.OutcomeFailed {
			line += "  " + s.ErrorMessage
		} else if len(s.Keywords) > 0 {
			line += "  [" + strings.Join(s.Keywords, ", ") + "]"
		}
		fmt.Fprintln(out, line)
	}
	return nil
}

func terminalWidth() int {
	var cols int
	if _, err := fmt.Sscanf(os.Getenv("COLUMNS"), "%d", &cols); err == nil && cols > 0 {
		return cols
	}
	return 80
}
