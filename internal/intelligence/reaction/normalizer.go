// Package reaction turns the recognition model's raw per-figure output into
// the pipeline's ReactionRecord form.
package reaction

import (
	"github.com/turtacn/ChemRoute-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemRoute-Intelligence/internal/infrastructure/recognition"
	"github.com/turtacn/ChemRoute-Intelligence/pkg/types/route"
)

// Normalizer filters and renumbers raw recognition output.  It is stable
// only as far as the model's own result ordering is stable; input order is
// treated as significant.
type Normalizer struct {
	logger logging.Logger
}

// NewNormalizer returns a Normalizer.
func NewNormalizer(logger logging.Logger) *Normalizer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Normalizer{logger: logger.Named("reaction")}
}

// Normalize converts figures into ReactionRecords.  An entry contributes a
// record only when both a reactant and a product identifier are present;
// incomplete entries are dropped as a data-quality filter, not an error.
// Record ids run from 1 in acceptance order, scoped to one document.  The
// model's 0-based page indexes become 1-based.
func (n *Normalizer) Normalize(figures []recognition.FigureResult) []route.ReactionRecord {
	records := []route.ReactionRecord{}
	dropped := 0

	for _, figure := range figures {
		for _, raw := range figure.Reactions {
			reactant := firstSMILES(raw.Reactants)
			product := firstSMILES(raw.Products)
			if reactant == "" || product == "" {
				dropped++
				continue
			}
			records = append(records, route.ReactionRecord{
				ReactionID:     len(records) + 1,
				Page:           figure.Page + 1,
				ReactantSMILES: reactant,
				ProductSMILES:  product,
				RawData:        raw.Raw,
			})
		}
	}

	n.logger.Debug("normalized reactions",
		logging.Int("accepted", len(records)),
		logging.Int("dropped", dropped))
	return records
}

// firstSMILES returns the first species with a non-empty structure
// identifier, in the model's own listing order.
func firstSMILES(species []recognition.Species) string {
	for _, s := range species {
		if s.SMILES != "" {
			return s.SMILES
		}
	}
	return ""
}
