package llm

// Model describes one selectable model.
type Model struct {
	ID                string
	SupportsReasoning bool
}

// DefaultModelID is the reasoning-capable default.
const DefaultModelID = "o4-mini"

// registry is the fixed set of selectable models. Providers that reject
// the reasoning part type get reasoning content stripped before resubmission.
var registry = []Model{
	{ID: "o4-mini", SupportsReasoning: true},
	{ID: "gpt-4o", SupportsReasoning: false},
	{ID: "gpt-4o-mini", SupportsReasoning: false},
	{ID: "gpt-4.1", SupportsReasoning: false},
}

// LookupModel returns the model for an id.
func LookupModel(id string) (Model, bool) {
	for _, m := range registry {
		if m.ID == id {
			return m, true
		}
	}
	return Model{}, false
}

// ModelIDs returns every selectable model id, default first.
func ModelIDs() []string {
	ids := make([]string, len(registry))
	for i, m := range registry {
		ids[i] = m.ID
	}
	return ids
}
