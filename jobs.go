// jobs.go defines the three job kinds the service runs: Amazon product
// collection (synchronous, the original phase-0 intent), persona generation,
// and trend discovery (both asynchronous). Each kind contributes its
// parameter validation, the instruction text fed to the agent, and the
// structured-output schema the agent must satisfy.
package main

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// Intents accepted by POST /run.
const (
	IntentCollectProducts  = "collect_amazon_products"
	IntentGeneratePersonas = "generate_personas"
	IntentDiscoverTrends   = "discover_trends"
)

// jobParams is the kind-specific parameter block of a submission. validate
// applies defaults from config and rejects out-of-range values;
// instructions renders the natural-language task for the agent.
type jobParams interface {
	validate(cfg *Config) error
	instructions(cfg *Config) string
}

// JobKind ties an intent name to its behavior.
type JobKind struct {
	Intent string
	// Async kinds return a task id from /run; sync kinds block the
	// request until the agent finishes.
	Async bool
	// ItemsKey is the array field of the structured output that holds
	// the discovered items ("products", "personas", "trends").
	ItemsKey string
	// Schema is the JSON schema sent to the agent as the output contract.
	Schema json.RawMessage
	// NewParams allocates an empty parameter block for decoding.
	NewParams func() jobParams
}

// jobKinds maps intent names to their behavior.
var jobKinds = map[string]*JobKind{
	IntentCollectProducts: {
		Intent:    IntentCollectProducts,
		Async:     false,
		ItemsKey:  "products",
		Schema:    mustSchemaFor[ProductBatch](),
		NewParams: func() jobParams { return &ProductSearchArgs{} },
	},
	IntentGeneratePersonas: {
		Intent:    IntentGeneratePersonas,
		Async:     true,
		ItemsKey:  "personas",
		Schema:    mustSchemaFor[PersonaBatch](),
		NewParams: func() jobParams { return &PersonaArgs{} },
	},
	IntentDiscoverTrends: {
		Intent:    IntentDiscoverTrends,
		Async:     true,
		ItemsKey:  "trends",
		Schema:    mustSchemaFor[TrendBatch](),
		NewParams: func() jobParams { return &TrendArgs{} },
	},
}

// mustSchemaFor derives the JSON schema for a structured-output type from
// its struct tags, the same way MCP tool schemas are derived. Kind schemas
// are fixed at startup, so any derivation failure is a programming error.
func mustSchemaFor[T any]() json.RawMessage {
	schema, err := jsonschema.For[T](nil)
	if err != nil {
		panic(fmt.Sprintf("derive output schema: %v", err))
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		panic(fmt.Sprintf("marshal output schema: %v", err))
	}
	return raw
}

// ---------------------------------------------------------------------------
// collect_amazon_products
// ---------------------------------------------------------------------------

// ProductSearchArgs selects what to hunt for on the marketplace.
type ProductSearchArgs struct {
	Idea        string `json:"idea"`
	Brief       string `json:"brief"`
	Marketplace string `json:"marketplace,omitempty"`
	MaxProducts int    `json:"max_products,omitempty"`
}

func (a *ProductSearchArgs) validate(cfg *Config) error {
	if a.Idea == "" {
		return fmt.Errorf("idea is required")
	}
	if a.Brief == "" {
		return fmt.Errorf("brief is required")
	}
	if a.Marketplace == "" {
		a.Marketplace = cfg.Marketplace
	}
	if a.MaxProducts == 0 {
		a.MaxProducts = 3
	}
	if a.MaxProducts < 1 || a.MaxProducts > 6 {
		return fmt.Errorf("max_products must be between 1 and 6, got %d", a.MaxProducts)
	}
	return nil
}

// Product is one captured marketplace listing.
type Product struct {
	Title        string   `json:"title" jsonschema:"Exact product title from the detail page"`
	ProductURL   string   `json:"product_url" jsonschema:"Canonical detail page link"`
	AffiliateURL string   `json:"affiliate_url,omitempty" jsonschema:"SiteStripe text link including partner tag"`
	ImageURL     string   `json:"image_url,omitempty" jsonschema:"Direct image URL captured from the product gallery"`
	PriceText    string   `json:"price_text,omitempty" jsonschema:"Price string exactly as shown on the page"`
	ASIN         string   `json:"asin,omitempty" jsonschema:"ASIN if available on the page"`
	Highlights   []string `json:"highlights,omitempty" jsonschema:"Key features, marketing angles, or compliance notes"`
	Reasoning    string   `json:"reasoning,omitempty" jsonschema:"Why this product fits the campaign brief"`
}

// ProductBatch is the structured output for a product-collection run.
type ProductBatch struct {
	Products []Product `json:"products" jsonschema:"Captured products for the provided idea"`
	Summary  string    `json:"summary,omitempty" jsonschema:"High-level recap of why these products were chosen"`
}

// ---------------------------------------------------------------------------
// generate_personas
// ---------------------------------------------------------------------------

// PersonaArgs shapes an audience-research run.
type PersonaArgs struct {
	Brief         string `json:"brief"`
	AudienceHints string `json:"audience_hints,omitempty"`
	Count         int    `json:"count,omitempty"`
}

func (a *PersonaArgs) validate(cfg *Config) error {
	if a.Brief == "" {
		return fmt.Errorf("brief is required")
	}
	if a.Count == 0 {
		a.Count = 3
	}
	if a.Count < 1 || a.Count > 8 {
		return fmt.Errorf("count must be between 1 and 8, got %d", a.Count)
	}
	return nil
}

// Persona is one synthesized buyer profile.
type Persona struct {
	Name        string   `json:"name" jsonschema:"Short memorable handle for the persona"`
	AgeRange    string   `json:"age_range,omitempty" jsonschema:"Approximate age bracket, e.g. 25-34"`
	Occupation  string   `json:"occupation,omitempty" jsonschema:"Typical job or life situation"`
	PainPoints  []string `json:"pain_points,omitempty" jsonschema:"Problems the campaign's products solve for them"`
	Motivations []string `json:"motivations,omitempty" jsonschema:"What drives their purchase decisions"`
	Channels    []string `json:"channels,omitempty" jsonschema:"Where they spend attention online"`
	Reasoning   string   `json:"reasoning,omitempty" jsonschema:"Evidence from the research supporting this persona"`
}

// PersonaBatch is the structured output for a persona-generation run.
type PersonaBatch struct {
	Personas []Persona `json:"personas" jsonschema:"Synthesized personas for the campaign brief"`
	Summary  string    `json:"summary,omitempty" jsonschema:"Recap of the audience landscape observed"`
}

// ---------------------------------------------------------------------------
// discover_trends
// ---------------------------------------------------------------------------

// TrendArgs shapes a trend-discovery run.
type TrendArgs struct {
	Topic     string `json:"topic"`
	Brief     string `json:"brief"`
	Region    string `json:"region,omitempty"`
	MaxTrends int    `json:"max_trends,omitempty"`
}

func (a *TrendArgs) validate(cfg *Config) error {
	if a.Topic == "" {
		return fmt.Errorf("topic is required")
	}
	if a.Brief == "" {
		return fmt.Errorf("brief is required")
	}
	if a.MaxTrends == 0 {
		a.MaxTrends = 5
	}
	if a.MaxTrends < 1 || a.MaxTrends > 10 {
		return fmt.Errorf("max_trends must be between 1 and 10, got %d", a.MaxTrends)
	}
	return nil
}

// Trend is one observed content or product trend.
type Trend struct {
	Title     string   `json:"title" jsonschema:"Short name of the trend"`
	SourceURL string   `json:"source_url,omitempty" jsonschema:"Page where the trend was observed"`
	Momentum  string   `json:"momentum,omitempty" jsonschema:"Rising, peaking, or fading, with a one-line justification"`
	Audience  string   `json:"audience,omitempty" jsonschema:"Who is engaging with this trend"`
	HookIdeas []string `json:"hook_ideas,omitempty" jsonschema:"Short-form ad hooks riffing on the trend"`
	Reasoning string   `json:"reasoning,omitempty" jsonschema:"Why this trend is relevant to the brief"`
}

// TrendBatch is the structured output for a trend-discovery run.
type TrendBatch struct {
	Trends  []Trend `json:"trends" jsonschema:"Observed trends relevant to the topic"`
	Summary string  `json:"summary,omitempty" jsonschema:"Recap of the overall trend landscape"`
}
