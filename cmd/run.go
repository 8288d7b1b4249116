package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/interviewer/internal/ai"
	"github.com/spigell/interviewer/internal/ai/gemini"
	"github.com/spigell/interviewer/internal/bank"
	"github.com/spigell/interviewer/internal/capture"
	"github.com/spigell/interviewer/internal/evaluate"
	"github.com/spigell/interviewer/internal/export"
	"github.com/spigell/interviewer/internal/interview"
	"github.com/spigell/interviewer/internal/learning"
	"github.com/spigell/interviewer/internal/orchestrator"
	"github.com/spigell/interviewer/internal/questions"
	"github.com/spigell/interviewer/internal/report"
	"github.com/spigell/interviewer/internal/resume"
	"github.com/spigell/interviewer/internal/scoring"
	"github.com/spigell/interviewer/internal/secrets"
	"github.com/spigell/interviewer/internal/signals"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an interview",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("name", "", "candidate name")
	runCmd.Flags().String("position", "", "position the candidate applies for")
	runCmd.Flags().String("field", "", "technical field used to pick questions")
	runCmd.Flags().String("resume", "", "path to the candidate resume")
	runCmd.Flags().String("pdf", "", "write the report to this pdf file")
	runCmd.Flags().BoolP("auto-approve", "y", false, "do not ask for confirmation before the interview starts")

	viper.BindPFlag("candidate.name", runCmd.Flags().Lookup("name"))
	viper.BindPFlag("candidate.position", runCmd.Flags().Lookup("position"))
	viper.BindPFlag("candidate.field", runCmd.Flags().Lookup("field"))
	viper.BindPFlag("candidate.resume", runCmd.Flags().Lookup("resume"))
	viper.BindPFlag("report.pdf", runCmd.Flags().Lookup("pdf"))
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger := newLogger()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the interviewer", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if strings.TrimSpace(config.Candidate.Position) == "" {
		logger.Fatal("position is required", zap.String("hint", "set candidate.position or pass --position"))
	}

	generator, err := newGenerator(ctx, config.AI, logger)
	if err != nil {
		// Every stage has a non-model fallback.
		logger.Warn("continuing without a text generator", zap.Error(err))
	}

	questionBank, resources, err := newBank(config.Bank, logger)
	if err != nil {
		logger.Fatal("loading the question bank", zap.Error(err))
	}

	st, err := openStore(config.Store)
	if err != nil {
		logger.Fatal("opening the session store", zap.Error(err))
	}
	defer st.Close()

	interactive := isTTY()
	if interactive && cmd.Flag("auto-approve").Value.String() == "false" {
		ok, err := confirm(fmt.Sprintf("Start the %s interview for %s?", config.Candidate.Position, orUnknown(config.Candidate.Name)))
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}
		if !ok {
			logger.Info("exiting", zap.String("reason", "got no from prompt"))
			return
		}
	}

	profiles := config.AI.Profiles.WithDefaults()

	var (
		visual   signals.VisualAnalyzer = signals.FileAnalyzer{}
		audio    signals.AudioAnalyzer  = signals.FileAnalyzer{}
		opts                            = []orchestrator.Option{orchestrator.WithStore(st), orchestrator.WithLogger(logger)}
		media    *interview.MediaRefs
		progress = func(string) { fmt.Fprint(os.Stderr, ".") }
	)

	if rec := newRecorder(config.Media, logger); rec != nil {
		visual, audio = rec, rec
		opts = append(opts, orchestrator.WithRecorder(func() orchestrator.Recorder { return rec }))
	} else if config.Media.Video != "" || config.Media.Audio != "" {
		media = &interview.MediaRefs{Video: config.Media.Video, Audio: config.Media.Audio}
	}

	opts = append(opts,
		orchestrator.WithTerminationPhrases(config.Interview.TerminationPhrases),
		orchestrator.WithObserver(func(s interview.Session) {
			logger.Debug("session updated",
				zap.String("session_id", s.ID),
				zap.String("stage", string(s.Stage)),
				zap.Int("turns", len(s.History)),
			)
		}),
	)

	o := orchestrator.New(orchestrator.Deps{
		Questions: questions.NewSource(questionBank, generator, *profiles.Conversational, config.Interview.Questions, logger),
		Resumes:   resume.NewParser(generator, *profiles.Precise, logger),
		Answers:   newAnswerSource(os.Stdin, os.Stdout, interactive),
		Evaluator: evaluate.New(evaluate.DefaultRules(config.Interview.Evaluate), generator, *profiles.Conversational, logger),
		Signals:   signals.NewCollector(visual, audio, logger),
		Scorer:    scoring.New(generator, *profiles.Precise, logger),
		Reports:   report.NewBuilder(generator, *profiles.Creative, progress, logger),
		Planner:   learning.NewPlanner(resources, generator, *profiles.Creative, progress, config.Learning, logger),
	}, opts...)

	fmt.Fprintf(os.Stdout, "Type one of %q at any time to end the interview.\n", terminationHint(config.Interview.TerminationPhrases))

	session, err := o.Run(ctx, orchestrator.Request{
		Candidate: interview.Candidate{
			Name:     config.Candidate.Name,
			Position: config.Candidate.Position,
			Field:    config.Candidate.Field,
		},
		ResumePath: config.Candidate.Resume,
		Media:      media,
	})
	fmt.Fprintln(os.Stderr)

	switch {
	case errors.Is(err, orchestrator.ErrInsufficientData):
		logger.Warn("the interview did not collect enough data", zap.String("session_id", session.ID))
	case err != nil:
		logger.Fatal("running the interview", zap.Error(err))
	}

	fmt.Fprintln(os.Stdout, export.RenderTerminal(session))

	if path := strings.TrimSpace(config.Report.PDF); path != "" {
		if err := export.WritePDF(session, path); err != nil {
			logger.Error("writing the pdf report", zap.Error(err))
		} else {
			logger.Info("pdf report written", zap.String("filename", path))
		}
	}

	logger.Info("interview finished",
		zap.String("session_id", session.ID),
		zap.Int("issues", len(session.Failures())),
	)
}

func newGenerator(ctx context.Context, cfg *AIConfig, logger *zap.Logger) (ai.Generator, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
	if cfg.Gemini == nil {
		cfg.Gemini = &GeminiConfig{}
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: cfg.Gemini.APIKeyFile,
		Env:  "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file, %s_GEMINI_API_KEY_FILE or GEMINI_API_KEY)", err, envPrefix)
	}

	generator, err := gemini.NewGenerator(ctx, gemini.Options{
		APIKey:       apiKey,
		Model:        cfg.Gemini.Model,
		MaxRetries:   cfg.Gemini.MaxRetries,
		Timeout:      cfg.Gemini.Timeout,
		MaxLogLength: cfg.Gemini.MaxLogLength,
	}, logger.With(zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries)))
	if err != nil {
		return nil, err
	}
	logger.Debug("text generator ready", zap.String("model", generator.Model()))
	return generator, nil
}

// newBank prefers the remote bank when a url is configured.
func newBank(cfg *BankConfig, logger *zap.Logger) (bank.QuestionSearcher, bank.ResourceSearcher, error) {
	if url := strings.TrimSpace(cfg.URL); url != "" {
		token, err := secrets.Optional(secrets.Source{Name: "bank token", File: cfg.TokenFile})
		if err != nil {
			return nil, nil, err
		}
		client := bank.NewClient(url, token, logger)
		return client, client, nil
	}

	files, err := bank.LoadFiles(cfg.QuestionsFile, cfg.ResourcesFile, logger)
	if err != nil {
		return nil, nil, err
	}
	return files, files, nil
}

func newRecorder(cfg *MediaConfig, logger *zap.Logger) *capture.Recorder {
	if cfg.LiveVideo == "" && cfg.LiveAudio == "" {
		return nil
	}

	var c capture.Config
	if cfg.LiveVideo != "" {
		c.Video = capture.OpenJSONLines(cfg.LiveVideo)
	}
	if cfg.LiveAudio != "" {
		c.Audio = capture.OpenJSONLines(cfg.LiveAudio)
	}
	return capture.NewRecorder(c, logger)
}

func terminationHint(phrases []string) []string {
	if len(phrases) > 0 {
		return phrases
	}
	return orchestrator.DefaultTerminationPhrases[:2]
}

func orUnknown(name string) string {
	if strings.TrimSpace(name) == "" {
		return "an unnamed candidate"
	}
	return name
}
