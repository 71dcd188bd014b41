package recognition

import "encoding/json"

// Species is one recognized chemical entity inside a reaction diagram.
type Species struct {
	SMILES   string `json:"smiles"`
	Category string `json:"category"`
}

// RawReaction is a single reaction as reported by the recognition model.
// Raw preserves the exact response entry so downstream artifacts can carry
// model fields this package does not interpret.
type RawReaction struct {
	Reactants []Species
	Products  []Species
	Raw       json.RawMessage
}

// UnmarshalJSON decodes the known fields and keeps a verbatim copy of the
// whole entry.
func (r *RawReaction) UnmarshalJSON(data []byte) error {
	var known struct {
		Reactants []Species `json:"reactants"`
		Products  []Species `json:"products"`
	}
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	r.Reactants = known.Reactants
	r.Products = known.Products
	r.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON emits the preserved entry when present so round trips are
// lossless.
func (r RawReaction) MarshalJSON() ([]byte, error) {
	if len(r.Raw) > 0 {
		return r.Raw, nil
	}
	return json.Marshal(struct {
		Reactants []Species `json:"reactants"`
		Products  []Species `json:"products"`
	}{Reactants: r.Reactants, Products: r.Products})
}

// FigureResult groups the reactions recognized on one page.  Page indexes
// are zero-based in the service response.
type FigureResult struct {
	Page      int           `json:"page"`
	Reactions []RawReaction `json:"reactions"`
}
