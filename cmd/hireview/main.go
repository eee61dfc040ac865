package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hireview/hireview/internal/handler"
	"github.com/hireview/hireview/internal/match"
	"github.com/hireview/hireview/internal/model"
	"github.com/hireview/hireview/internal/oracle"
	"github.com/hireview/hireview/internal/report"
	"github.com/hireview/hireview/internal/score"
	"github.com/hireview/hireview/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "hireview",
		Short: "Interview answer scoring engine",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the scoring API server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "hireview.db", "SQLite database path")
	f.StringSliceP("questions", "q", nil, "Paths to questions JSON files (repeatable)")
	f.String("oracle", "openai", "Oracle backend (openai, gemini)")
	f.String("oracle-url", "", "OpenAI-compatible API base URL (empty = official endpoint)")
	f.String("oracle-key", "", "API key for the oracle")
	f.String("oracle-model", "gpt-4o-mini", "Oracle model name")
	f.Duration("oracle-timeout", 60*time.Second, "Per-call oracle timeout")
	f.Float64("keyword-weight", 0.80, "Weight of concept coverage in the final score")
	f.Float64("similarity-weight", 0.20, "Weight of lexical similarity in the final score")
	f.Float64("correct-threshold", 65.0, "Final score at or above which an answer is correct")
	f.IntP("num-questions", "n", 0, "Default questions per session (0 = all available)")
	f.StringP("difficulty", "d", "", "Default difficulty filter (easy, medium, hard)")
	f.StringP("type", "t", "", "Default question type filter (technical, behavioral, situational)")
	f.Bool("shuffle", true, "Randomize question order")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all sessions with scores and reports as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "hireview.db", "SQLite database path")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("HIREVIEW")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("hireview")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/hireview")
	v.AddConfigPath("/etc/hireview")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := loadQuestions(db, v.GetStringSlice("questions")); err != nil {
		return fmt.Errorf("load questions: %w", err)
	}

	conceptOracle, synthesisOracle, err := buildOracles(cmd.Context(), v)
	if err != nil {
		return err
	}

	engineCfg := model.EngineConfig{
		KeywordWeight:    v.GetFloat64("keyword-weight"),
		SimilarityWeight: v.GetFloat64("similarity-weight"),
		CorrectThreshold: v.GetFloat64("correct-threshold"),
	}
	if sum := engineCfg.KeywordWeight + engineCfg.SimilarityWeight; math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("scoring weights must sum to 1, got %v", sum)
	}

	sessionCfg := model.SessionConfig{
		NumQuestions: v.GetInt("num-questions"),
		Difficulty:   v.GetString("difficulty"),
		Type:         v.GetString("type"),
		Shuffle:      v.GetBool("shuffle"),
	}

	h := handler.New(db,
		score.New(match.New(conceptOracle), engineCfg),
		report.New(synthesisOracle),
		sessionCfg,
	)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"oracle", v.GetString("oracle"),
		"oracle_model", v.GetString("oracle-model"),
		"keyword_weight", engineCfg.KeywordWeight,
		"similarity_weight", engineCfg.SimilarityWeight,
		"correct_threshold", engineCfg.CorrectThreshold,
		"num_questions", sessionCfg.NumQuestions,
		"shuffle", sessionCfg.Shuffle,
	)
	return http.ListenAndServe(addr, r)
}

func buildOracles(ctx context.Context, v *viper.Viper) (oracle.ConceptOracle, oracle.SynthesisOracle, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	backend := strings.ToLower(v.GetString("oracle"))
	timeout := v.GetDuration("oracle-timeout")

	switch backend {
	case "gemini":
		g, err := oracle.NewGemini(ctx, v.GetString("oracle-key"), v.GetString("oracle-model"), timeout)
		if err != nil {
			return nil, nil, fmt.Errorf("create gemini oracle: %w", err)
		}
		slog.Info("oracle configured", "backend", "gemini", "model", v.GetString("oracle-model"))
		return g, g, nil
	case "openai":
		c := oracle.NewOpenAI(v.GetString("oracle-url"), v.GetString("oracle-key"), v.GetString("oracle-model"), timeout)
		if err := c.Ping(ctx); err != nil {
			return nil, nil, err
		}
		slog.Info("oracle configured", "backend", "openai", "model", v.GetString("oracle-model"))
		return c, c, nil
	default:
		return nil, nil, fmt.Errorf("unknown oracle backend %q (want openai or gemini)", backend)
	}
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	views, err := db.ExportAllSessions()
	if err != nil {
		return fmt.Errorf("export sessions: %w", err)
	}

	data, err := json.MarshalIndent(views, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	_, _ = fmt.Fprintln(w)

	return nil
}

func loadQuestions(db *store.Store, paths []string) error {
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		hash := sha256sum(data)
		storedHash, err := db.GetImportedFileHash(path)
		if err != nil {
			return fmt.Errorf("check import status for %s: %w", path, err)
		}

		if storedHash == hash {
			slog.Info("questions file unchanged, skipping", "path", path)
			continue
		}
		if storedHash != "" {
			slog.Warn("questions file changed since last import, skipping to keep existing sessions consistent",
				"path", path)
			continue
		}

		var questions []model.QuestionImport
		if err := json.Unmarshal(data, &questions); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}

		for _, qi := range questions {
			if len(qi.Keywords) == 0 {
				return fmt.Errorf("question %q in %s has no keywords", qi.Text, path)
			}
			_, err := db.InsertQuestion(model.Question{
				Text:             qi.Text,
				Type:             qi.Type,
				Difficulty:       qi.Difficulty,
				TimeLimitSeconds: qi.TimeLimitSeconds,
				IdealAnswer:      qi.IdealAnswer,
				Keywords:         qi.Keywords,
			})
			if err != nil {
				return fmt.Errorf("insert question from %s: %w", path, err)
			}
		}

		if err := db.SetImportedFileHash(path, hash); err != nil {
			return fmt.Errorf("record import for %s: %w", path, err)
		}
		slog.Info("imported questions", "path", path, "count", len(questions))
	}

	return nil
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
