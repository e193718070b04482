// prompts.go renders the instruction text handed to the automation agent.
// Pure string templating over validated parameters; the only state consulted
// is the configured Amazon Associates login material.
package main

import (
	"fmt"
	"strings"
)

// loginInstructions builds the sign-in block for marketplace prompts. With
// no stored credentials the agent is told to rely on the existing browser
// profile session. When a TOTP secret is configured a current code is
// embedded; the agent is reminded never to echo any of it back.
func loginInstructions(cfg *Config) string {
	if cfg.Amazon.LoginEmail == "" || cfg.Amazon.LoginPassword == "" {
		return "If you are prompted to sign in, use the existing Chrome profile session." +
			" Do not attempt to log in with blank credentials."
	}

	lines := []string{
		"If Amazon asks you to sign in, use the stored Associates account:",
		"- Email: " + cfg.Amazon.LoginEmail,
		"- Password: " + cfg.Amazon.LoginPassword,
	}

	if cfg.Amazon.TOTPSecret != "" {
		if code, err := totpNow(cfg.Amazon.TOTPSecret); err == nil {
			lines = append(lines,
				"If a one-time password is requested, enter this current code:",
				"- OTP: "+code,
				"If the code expires before submission, wait for the next one"+
					" or pause for manual assistance.")
		}
	}

	lines = append(lines,
		"Never expose the credentials in your final response."+
			" Use them only to authenticate.")
	return strings.Join(lines, "\n")
}

func (a *ProductSearchArgs) instructions(cfg *Config) string {
	productGoal := "product"
	if a.MaxProducts > 1 {
		productGoal = "products"
	}

	return fmt.Sprintf(`You are an ecommerce scout helping an affiliate marketing team.

Campaign brief:
%s

Focus idea:
%s

Marketplace URL:
%s

Instructions:
1. Open %s and search for the focus idea.
2. Make sure you are logged into Amazon so the SiteStripe toolbar appears. %s
3. Find up to %d on-brand %s that would perform well in short-form UGC ads.
4. For each product:
   - Open the product detail page in a new tab.
   - Capture the exact detail page URL.
   - Use the SiteStripe "Text" option and copy the generated affiliate link (plain URL, no HTML).
   - Grab the primary product image URL (open image in new tab if needed and copy the CDN link).
   - Record the price text exactly as displayed.
   - Note the ASIN if it is visible.
   - List 2-3 highlights that make the product compelling for this campaign, plus any compliance callouts.
5. Provide a short reasoning blurb describing why each product supports the brief.
6. If SiteStripe does not appear (e.g. login blocked), still gather the product URL and add a highlight explaining the issue.

Compliance reminders:
- Do not use link shorteners.
- Keep the destination clear in the final affiliate URL.
- Never include private credentials or OTP codes in the structured output.

Return structured data that matches the provided schema exactly.
`, a.Brief, a.Idea, a.Marketplace, a.Marketplace, loginInstructions(cfg), a.MaxProducts, productGoal)
}

func (a *PersonaArgs) instructions(cfg *Config) string {
	hints := a.AudienceHints
	if hints == "" {
		hints = "None provided; infer plausible audiences from the brief."
	}

	return fmt.Sprintf(`You are an audience researcher for an affiliate marketing team.

Campaign brief:
%s

Audience hints:
%s

Instructions:
1. Browse public communities, reviews, and social discussions related to the brief.
2. Look for recurring buyer situations: who is shopping, what problem they describe, what language they use.
3. Synthesize exactly %d distinct buyer personas grounded in what you actually observed.
4. For each persona capture name, age range, occupation, pain points, motivations, and the channels where they spend attention.
5. Cite your evidence in the reasoning field; do not invent demographics you saw no support for.
6. Finish with a short summary of the overall audience landscape.

Return structured data that matches the provided schema exactly.
`, a.Brief, hints, a.Count)
}

func (a *TrendArgs) instructions(cfg *Config) string {
	region := a.Region
	if region == "" {
		region = "global"
	}

	return fmt.Sprintf(`You are a trend scout for an affiliate marketing team.

Campaign brief:
%s

Topic:
%s

Region focus:
%s

Instructions:
1. Browse trend surfaces, social feeds, and marketplaces for movement around the topic.
2. Identify up to %d trends with visible momentum: rising search interest, viral formats, or fast-selling product angles.
3. For each trend capture its title, a source URL where you observed it, a momentum judgement, the engaging audience, and 2-3 short-form hook ideas.
4. Explain in the reasoning field why the trend is relevant to the brief.
5. Skip evergreen content; only movement counts.
6. Finish with a short summary of the trend landscape.

Return structured data that matches the provided schema exactly.
`, a.Brief, a.Topic, region, a.MaxTrends)
}
