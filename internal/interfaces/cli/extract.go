package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/turtacn/ChemRoute-Intelligence/internal/application/assembly"
	"github.com/turtacn/ChemRoute-Intelligence/internal/application/pipeline"
	"github.com/turtacn/ChemRoute-Intelligence/internal/config"
	redcache "github.com/turtacn/ChemRoute-Intelligence/internal/infrastructure/cache/redis"
	"github.com/turtacn/ChemRoute-Intelligence/internal/infrastructure/document"
	"github.com/turtacn/ChemRoute-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemRoute-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ChemRoute-Intelligence/internal/infrastructure/pdfio"
	"github.com/turtacn/ChemRoute-Intelligence/internal/infrastructure/recognition"
	"github.com/turtacn/ChemRoute-Intelligence/internal/infrastructure/rendering"
	"github.com/turtacn/ChemRoute-Intelligence/internal/intelligence/reaction"
	"github.com/turtacn/ChemRoute-Intelligence/internal/intelligence/textmining"
	"github.com/turtacn/ChemRoute-Intelligence/pkg/types/route"
)

// extractOptions holds the flags of the extract command.  Only flags the user
// actually set override the resolved configuration.
type extractOptions struct {
	Input       string
	Output      string
	MaxPages    int
	NoImages    bool
	IncludeSI   bool
	Language    string
	Template    string
	SaveRawData bool
}

func newExtractCmd(root *rootOptions) *cobra.Command {
	opts := &extractOptions{}

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Process a PDF file or directory into synthesis-route documents",
		Long: "extract reads one PDF or every PDF under a directory, mines each for\n" +
			"its experimental text and reaction diagrams, and writes a per-paper\n" +
			"route document plus a machine-readable batch report.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			applyExtractFlags(cmd, opts, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runExtract(ctx, cfg, opts.Input, logger)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.Input, "input", "i", "", "PDF file or directory to process (required)")
	f.StringVarP(&opts.Output, "output", "o", "", "output root directory")
	f.IntVar(&opts.MaxPages, "max-pages", 0, "maximum number of pages to read per PDF")
	f.BoolVar(&opts.NoImages, "no-images", false, "skip reaction structure image generation")
	f.BoolVar(&opts.IncludeSI, "include-si", false, "include supplementary-information PDFs when scanning a directory")
	f.StringVar(&opts.Language, "language", "", "document language: en, zh, or both")
	f.StringVar(&opts.Template, "template", "", "optional office document used as a template")
	f.BoolVar(&opts.SaveRawData, "save-raw-data", false, "write the raw extraction JSON next to each document")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

// applyExtractFlags copies set flags over the resolved config, so precedence
// is flags > file > environment > defaults.
func applyExtractFlags(cmd *cobra.Command, opts *extractOptions, cfg *config.Config) {
	if cmd.Flags().Changed("output") {
		cfg.Pipeline.OutputDir = opts.Output
	}
	if cmd.Flags().Changed("max-pages") {
		cfg.Pipeline.MaxPages = opts.MaxPages
	}
	if cmd.Flags().Changed("no-images") {
		cfg.Pipeline.GenerateImages = !opts.NoImages
	}
	if cmd.Flags().Changed("include-si") {
		cfg.Pipeline.IncludeSI = opts.IncludeSI
	}
	if cmd.Flags().Changed("language") {
		cfg.Pipeline.Language = opts.Language
	}
	if cmd.Flags().Changed("template") {
		cfg.Pipeline.TemplatePath = opts.Template
	}
	if cmd.Flags().Changed("save-raw-data") {
		cfg.Pipeline.SaveRawData = opts.SaveRawData
	}
}

// buildProcessor assembles the full stage graph from the configuration.  The
// returned cleanup closes any connections the graph opened; it is always
// non-nil.
func buildProcessor(cfg *config.Config, metrics *prometheus.Metrics, logger logging.Logger) (*pipeline.Processor, func(), error) {
	reader := pdfio.NewReader(cfg.Pipeline.MaxPages, logger)

	miner := textmining.NewExtractor(textmining.Caps{
		MaxFallbackLines:        cfg.Extractor.MaxFallbackLines,
		MaxPhysicalProps:        cfg.Extractor.MaxPhysicalProps,
		MaxCompoundDescriptions: cfg.Extractor.MaxCompoundDescriptions,
		DescriptionMaxChars:     cfg.Extractor.DescriptionMaxChars,
	}, logger)

	recognizer := recognition.NewClient(recognition.Config{
		BaseURL:    cfg.Recognition.BaseURL,
		Timeout:    cfg.Recognition.Timeout,
		MaxRetries: cfg.Recognition.MaxRetries,
		MolScribe:  cfg.Recognition.MolScribe,
		OCR:        cfg.Recognition.OCR,
	}, logger)

	cleanup := func() {}
	if cfg.Cache.Enabled {
		caching := redcache.NewCachingRecognizer(recognizer, redcache.Config{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
			TTL:      cfg.Cache.TTL,
			Prefix:   cfg.Cache.Prefix,
		}, logger)
		if err := caching.Ping(context.Background()); err != nil {
			// The cache is an optimization; a dead Redis only costs
			// repeated recognition calls.
			logger.Warn("recognition cache unreachable, continuing without it",
				logging.String("addr", cfg.Cache.Addr), logging.Err(err))
		}
		recognizer = caching
		cleanup = func() { _ = caching.Close() }
	}

	var images *pipeline.ImageStage
	if cfg.Pipeline.GenerateImages {
		renderer := rendering.NewClient(rendering.Config{
			BaseURL: cfg.Rendering.BaseURL,
			Timeout: cfg.Rendering.Timeout,
			Width:   cfg.Rendering.Width,
			Height:  cfg.Rendering.Height,
		}, logger)
		images = pipeline.NewImageStage(renderer, logger)
	} else {
		images = pipeline.NewImageStage(nil, logger)
	}

	assembler := assembly.NewAssembler(document.NewFactory(logger), logger)

	processor := pipeline.NewProcessor(
		reader,
		miner,
		recognizer,
		reaction.NewNormalizer(logger),
		images,
		assembler,
		metrics,
		pipeline.ProcessorOptions{
			OutputDir:      cfg.Pipeline.OutputDir,
			MaxPages:       cfg.Pipeline.MaxPages,
			GenerateImages: cfg.Pipeline.GenerateImages,
			Language:       route.Language(cfg.Pipeline.Language),
			TemplatePath:   cfg.Pipeline.TemplatePath,
			SaveRawData:    cfg.Pipeline.SaveRawData,
		},
		logger,
	)
	return processor, cleanup, nil
}

func runExtract(ctx context.Context, cfg *config.Config, input string, logger logging.Logger) error {
	metrics := prometheus.NewMetrics()

	processor, cleanup, err := buildProcessor(cfg, metrics, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	args := route.RunArgs{
		Input:          input,
		Output:         cfg.Pipeline.OutputDir,
		MaxPages:       cfg.Pipeline.MaxPages,
		GenerateImages: cfg.Pipeline.GenerateImages,
		IncludeSI:      cfg.Pipeline.IncludeSI,
		Language:       route.Language(cfg.Pipeline.Language),
		Template:       cfg.Pipeline.TemplatePath,
		SaveRawData:    cfg.Pipeline.SaveRawData,
	}

	batch := pipeline.NewBatch(processor, metrics, args, cfg.Pipeline.SIMarker, logger)
	report, err := batch.Run(ctx)
	if err != nil {
		return err
	}
	if report.SuccessCount() == 0 {
		return fmt.Errorf("no files processed successfully (%d attempted)", len(report.Results))
	}
	return nil
}
