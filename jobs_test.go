package main

import (
	"encoding/json"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// Parameter validation and defaults
// ---------------------------------------------------------------------------

func TestProductArgsDefaults(t *testing.T) {
	cfg := DefaultConfig()
	args := &ProductSearchArgs{Idea: "lanterns", Brief: "brief"}
	if err := args.validate(cfg); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if args.Marketplace != cfg.Marketplace {
		t.Fatalf("marketplace default not applied: %q", args.Marketplace)
	}
	if args.MaxProducts != 3 {
		t.Fatalf("max_products default should be 3, got %d", args.MaxProducts)
	}
}

func TestProductArgsValidation(t *testing.T) {
	cfg := DefaultConfig()
	cases := []struct {
		name string
		args ProductSearchArgs
	}{
		{"missing idea", ProductSearchArgs{Brief: "b"}},
		{"missing brief", ProductSearchArgs{Idea: "i"}},
		{"too many products", ProductSearchArgs{Idea: "i", Brief: "b", MaxProducts: 7}},
		{"negative products", ProductSearchArgs{Idea: "i", Brief: "b", MaxProducts: -1}},
	}
	for _, tc := range cases {
		if err := tc.args.validate(cfg); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}

func TestPersonaArgsValidation(t *testing.T) {
	cfg := DefaultConfig()

	args := &PersonaArgs{Brief: "b"}
	if err := args.validate(cfg); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if args.Count != 3 {
		t.Fatalf("count default should be 3, got %d", args.Count)
	}

	bad := &PersonaArgs{Brief: "b", Count: 9}
	if err := bad.validate(cfg); err == nil {
		t.Fatal("expected error for count out of range")
	}
	empty := &PersonaArgs{}
	if err := empty.validate(cfg); err == nil {
		t.Fatal("expected error for missing brief")
	}
}

func TestTrendArgsValidation(t *testing.T) {
	cfg := DefaultConfig()

	args := &TrendArgs{Topic: "t", Brief: "b"}
	if err := args.validate(cfg); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if args.MaxTrends != 5 {
		t.Fatalf("max_trends default should be 5, got %d", args.MaxTrends)
	}

	bad := &TrendArgs{Topic: "t", Brief: "b", MaxTrends: 11}
	if err := bad.validate(cfg); err == nil {
		t.Fatal("expected error for max_trends out of range")
	}
}

// ---------------------------------------------------------------------------
// Kind registry and schemas
// ---------------------------------------------------------------------------

func TestJobKindModes(t *testing.T) {
	if jobKinds[IntentCollectProducts].Async {
		t.Fatal("product collection runs synchronously")
	}
	if !jobKinds[IntentGeneratePersonas].Async || !jobKinds[IntentDiscoverTrends].Async {
		t.Fatal("persona and trend kinds run asynchronously")
	}
}

func TestSchemasExposeItemArrays(t *testing.T) {
	for intent, kind := range jobKinds {
		var schema map[string]any
		if err := json.Unmarshal(kind.Schema, &schema); err != nil {
			t.Fatalf("%s: schema is not valid JSON: %v", intent, err)
		}
		props, ok := schema["properties"].(map[string]any)
		if !ok {
			t.Fatalf("%s: schema has no properties", intent)
		}
		if _, ok := props[kind.ItemsKey]; !ok {
			t.Fatalf("%s: schema missing items key %q", intent, kind.ItemsKey)
		}
	}
}

// ---------------------------------------------------------------------------
// Instruction rendering
// ---------------------------------------------------------------------------

func TestProductInstructionsContainParameters(t *testing.T) {
	cfg := DefaultConfig()
	args := &ProductSearchArgs{Idea: "camping lanterns", Brief: "spring outdoor push"}
	if err := args.validate(cfg); err != nil {
		t.Fatalf("validate: %v", err)
	}

	text := args.instructions(cfg)
	for _, want := range []string{"camping lanterns", "spring outdoor push", cfg.Marketplace, "SiteStripe"} {
		if !strings.Contains(text, want) {
			t.Fatalf("instructions missing %q", want)
		}
	}
}

func TestLoginInstructionsWithoutCredentials(t *testing.T) {
	cfg := DefaultConfig()
	text := loginInstructions(cfg)
	if !strings.Contains(text, "existing Chrome profile session") {
		t.Fatalf("expected profile-session fallback, got %q", text)
	}
	if strings.Contains(text, "Password") {
		t.Fatal("no credentials should appear without configuration")
	}
}

func TestLoginInstructionsWithCredentials(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Amazon.LoginEmail = "scout@example.com"
	cfg.Amazon.LoginPassword = "hunter2"

	text := loginInstructions(cfg)
	if !strings.Contains(text, "scout@example.com") || !strings.Contains(text, "hunter2") {
		t.Fatal("stored credentials should be embedded")
	}
	if !strings.Contains(text, "Never expose the credentials") {
		t.Fatal("never-expose reminder missing")
	}
	if strings.Contains(text, "OTP:") {
		t.Fatal("no OTP block without a TOTP secret")
	}
}

func TestLoginInstructionsWithTOTP(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Amazon.LoginEmail = "scout@example.com"
	cfg.Amazon.LoginPassword = "hunter2"
	cfg.Amazon.TOTPSecret = "GEZDGNBVGEZDGNBVGEZDGNBVGEZDGNBV"

	text := loginInstructions(cfg)
	if !strings.Contains(text, "OTP:") {
		t.Fatal("expected an embedded OTP code")
	}
}

func TestPersonaInstructionsDefaultHints(t *testing.T) {
	cfg := DefaultConfig()
	args := &PersonaArgs{Brief: "b"}
	args.validate(cfg)

	text := args.instructions(cfg)
	if !strings.Contains(text, "infer plausible audiences") {
		t.Fatal("expected default audience hint text")
	}
	if !strings.Contains(text, "exactly 3 distinct buyer personas") {
		t.Fatalf("count not rendered: %s", text)
	}
}

func TestTrendInstructionsDefaultRegion(t *testing.T) {
	cfg := DefaultConfig()
	args := &TrendArgs{Topic: "t", Brief: "b"}
	args.validate(cfg)

	if !strings.Contains(args.instructions(cfg), "global") {
		t.Fatal("expected the global region default")
	}
}
