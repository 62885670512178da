// Package cli implements studyctl, which runs the function handlers from a
// workstation against real AWS resources.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"studyassist/internal/app"
	"studyassist/internal/config"
	"studyassist/internal/logging"
	"studyassist/internal/search"
)

type QuestionsRunner interface {
	Generate(ctx context.Context, paths []string) (json.RawMessage, error)
}

type SearchRunner interface {
	Resolve(ctx context.Context, q search.Query) ([]json.RawMessage, error)
}

// Overrides are flag values applied on top of the loaded config.
type Overrides struct {
	Region             string
	Bucket             string
	GenerationEndpoint string
	SearchEndpoint     string
	LogLevel           string
}

// Factory builds the runners. Tests swap it for fakes.
type Factory struct {
	Questions func(ctx context.Context, o Overrides) (QuestionsRunner, error)
	Search    func(ctx context.Context, o Overrides) (SearchRunner, error)
}

func NewRootCmd(f Factory) *cobra.Command {
	var o Overrides
	var compact bool

	root := &cobra.Command{
		Use:          "studyctl",
		Short:        "Run the study-assist functions locally",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&o.Region, "region", "", "AWS region (overrides AWS_REGION)")
	root.PersistentFlags().StringVar(&o.LogLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
	root.PersistentFlags().BoolVar(&compact, "compact", false, "print JSON on one line")

	questionsCmd := &cobra.Command{
		Use:   "questions [path...]",
		Short: "Generate study questions from stored files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := f.Questions(cmd.Context(), o)
			if err != nil {
				return err
			}
			out, err := r.Generate(cmd.Context(), args)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), out, compact)
		},
	}
	questionsCmd.Flags().StringVar(&o.Bucket, "bucket", "", "storage bucket (overrides STORAGE_BUCKET)")
	questionsCmd.Flags().StringVar(&o.GenerationEndpoint, "endpoint", "", "generation endpoint (overrides GENERATION_ENDPOINT)")

	searchCmd := &cobra.Command{
		Use:   "search [title]",
		Short: "Search movies by title",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := f.Search(cmd.Context(), o)
			if err != nil {
				return err
			}
			docs, err := r.Resolve(cmd.Context(), search.Query{Title: args[0]})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), docs, compact)
		},
	}
	searchCmd.Flags().StringVar(&o.SearchEndpoint, "endpoint", "", "search domain endpoint (overrides SEARCH_ENDPOINT)")

	root.AddCommand(questionsCmd, searchCmd)
	return root
}

func writeJSON(w io.Writer, v any, compact bool) error {
	var (
		b   []byte
		err error
	)
	if compact {
		b, err = json.Marshal(v)
	} else {
		b, err = json.MarshalIndent(v, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

// Execute runs studyctl with the AWS-backed factory.
func Execute() error {
	return NewRootCmd(DefaultFactory()).ExecuteContext(context.Background())
}

func DefaultFactory() Factory {
	return Factory{
		Questions: func(ctx context.Context, o Overrides) (QuestionsRunner, error) {
			cfg, log, err := load(o)
			if err != nil {
				return nil, err
			}
			awsCfg, err := app.LoadAWSConfig(ctx, cfg)
			if err != nil {
				return nil, err
			}
			return app.NewQuestionsHandler(ctx, awsCfg, cfg, log)
		},
		Search: func(ctx context.Context, o Overrides) (SearchRunner, error) {
			cfg, log, err := load(o)
			if err != nil {
				return nil, err
			}
			awsCfg, err := app.LoadAWSConfig(ctx, cfg)
			if err != nil {
				return nil, err
			}
			return app.NewSearchResolver(ctx, awsCfg, cfg, log)
		},
	}
}

func load(o Overrides) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	apply(cfg, o)
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func apply(cfg *config.Config, o Overrides) {
	if o.Region != "" {
		cfg.Region = o.Region
	}
	if o.Bucket != "" {
		cfg.Bucket = o.Bucket
	}
	if o.GenerationEndpoint != "" {
		cfg.GenerationEndpoint = o.GenerationEndpoint
		cfg.GenerationEndpointParam = ""
	}
	if o.SearchEndpoint != "" {
		cfg.SearchEndpoint = o.SearchEndpoint
		cfg.SearchEndpointParam = ""
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
}
