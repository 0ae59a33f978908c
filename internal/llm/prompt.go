package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// TechnicalPrompt is the request/response contract every provider sends.
const TechnicalPrompt = `## Technical Role
You are a JSON-to-JSON translation engine for presentation slides.

## Data Handling
1. Input Format: a JSON array of objects with "id" and "text". A "text" value is either an XML fragment of a slide text body or plain text.
2. XML Integrity: preserve every XML tag and attribute (e.g. <a:p>, <a:r>, <a:rPr>, <a:t>, <a:br/>) exactly as given. Translate only the text content inside <a:t> elements. Do not add, drop or reorder tags.
3. Placeholders: tokens of the form [[HLINK_n]] stand for hyperlinks and [[FIELD_n]] for fields such as slide numbers or dates. Never translate, alter or drop them. You may move a token to the position the target grammar requires.
4. Output Format: return a JSON object with the key "translations". Each item must contain the original "id" and the "translated_text".
5. Format Strictness: use ONLY valid JSON in your response, with no explanations or markdown code blocks.`

// DefaultLocalizationPrompt is the style guidance used when no custom prompt
// is configured.
const DefaultLocalizationPrompt = `## Localization
You are a professional localizer translating business presentations into {{targetLang}}.

- Tone: professional, analytical and concise.
- Translate for naturalness and fluency in {{targetLang}}, not word for word.
- Keep product names, brand names and titles of works in their original form.
- Keep numbers, units, dates and currency symbols as written.
- Use industry-standard terminology established in {{targetLang}}.`

// LanguageName returns a human readable name for a language tag, e.g.
// "Simplified Chinese (简体中文)". Unparseable tags are returned as given.
func LanguageName(tag string) string {
	t, err := language.Parse(tag)
	if err != nil {
		return tag
	}
	en := display.English.Tags().Name(t)
	self := display.Self.Name(t)
	switch {
	case en == "":
		return tag
	case self == "" || self == en:
		return en
	default:
		return fmt.Sprintf("%s (%s)", en, self)
	}
}

// SystemPrompt assembles the system prompt for a request.
func SystemPrompt(opts Options) string {
	guidance := opts.Prompt
	if guidance == "" {
		guidance = DefaultLocalizationPrompt
	}
	lang := opts.Language
	if lang == "" {
		lang = DefaultOptions().Language
	}
	guidance = strings.ReplaceAll(guidance, "{{targetLang}}", LanguageName(lang))

	var sb strings.Builder
	sb.WriteString(TechnicalPrompt)
	sb.WriteString("\n\n")
	sb.WriteString(guidance)
	if g := strings.TrimSpace(opts.Glossary); g != "" {
		sb.WriteString("\n\n## Terminology Mapping\n")
		sb.WriteString(g)
	}
	return sb.String()
}

// UserPayload encodes items as the JSON array sent as the user message.
// Markup is not HTML-escaped so fragments reach the service verbatim.
func UserPayload(items []Item) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(items); err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
