package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/turtacn/ChemRoute-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemRoute-Intelligence/internal/infrastructure/rendering"
	"github.com/turtacn/ChemRoute-Intelligence/pkg/types/route"
)

// imagesSubdir is created under each document's output directory.
const imagesSubdir = "reaction_images"

// ImageStage renders reactant/product depictions for normalized reactions.
// Rendering is best-effort: a record whose identifiers fail to parse or
// render keeps ImagesGenerated false and the stage moves on.
type ImageStage struct {
	renderer rendering.Renderer
	logger   logging.Logger
}

// NewImageStage returns an ImageStage using renderer, which may be nil.
func NewImageStage(renderer rendering.Renderer, logger logging.Logger) *ImageStage {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &ImageStage{renderer: renderer, logger: logger.Named("images")}
}

// Render attempts depiction for every record independently and returns the
// same records with image paths filled in where rendering succeeded.  When
// the depiction service is absent the input is returned unchanged.
func (s *ImageStage) Render(ctx context.Context, records []route.ReactionRecord, outputDir string) []route.ReactionRecord {
	if len(records) == 0 {
		return records
	}
	if s.renderer == nil || !s.renderer.Available(ctx) {
		s.logger.Warn("depiction service unavailable, skipping image generation")
		return records
	}

	imagesDir := filepath.Join(outputDir, imagesSubdir)
	if err := os.MkdirAll(imagesDir, 0o755); err != nil {
		s.logger.Error("cannot create image directory", logging.String("dir", imagesDir), logging.Err(err))
		return records
	}

	for i := range records {
		s.renderRecord(ctx, &records[i], imagesDir)
	}
	return records
}

func (s *ImageStage) renderRecord(ctx context.Context, record *route.ReactionRecord, imagesDir string) {
	if err := s.renderer.Parse(ctx, record.ReactantSMILES); err != nil {
		s.logger.Warn("reactant identifier not renderable",
			logging.Int("reaction_id", record.ReactionID), logging.Err(err))
		return
	}
	if err := s.renderer.Parse(ctx, record.ProductSMILES); err != nil {
		s.logger.Warn("product identifier not renderable",
			logging.Int("reaction_id", record.ReactionID), logging.Err(err))
		return
	}

	reactantPath := filepath.Join(imagesDir, fmt.Sprintf("reaction_%d_reactant.png", record.ReactionID))
	if err := s.depictTo(ctx, record.ReactantSMILES, reactantPath); err != nil {
		s.logger.Warn("reactant depiction failed",
			logging.Int("reaction_id", record.ReactionID), logging.Err(err))
		return
	}

	productPath := filepath.Join(imagesDir, fmt.Sprintf("reaction_%d_product.png", record.ReactionID))
	if err := s.depictTo(ctx, record.ProductSMILES, productPath); err != nil {
		s.logger.Warn("product depiction failed",
			logging.Int("reaction_id", record.ReactionID), logging.Err(err))
		return
	}

	record.ReactantImage = reactantPath
	record.ProductImage = productPath
	record.ImagesGenerated = true
	s.logger.Debug("rendered reaction images", logging.Int("reaction_id", record.ReactionID))
}

func (s *ImageStage) depictTo(ctx context.Context, smiles, path string) error {
	image, err := s.renderer.Depict(ctx, smiles)
	if err != nil {
		return err
	}
	return os.WriteFile(path, image, 0o644)
}

// CountGenerated reports how many records carry rendered images.
func CountGenerated(records []route.ReactionRecord) int {
	n := 0
	for _, r := range records {
		if r.ImagesGenerated {
			n++
		}
	}
	return n
}
