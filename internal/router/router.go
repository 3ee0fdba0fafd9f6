// Package router implements the Translation Strategy Router (spec §4.2):
// it classifies each ContentBlock and picks the handler that will process
// it, without ever routing a preserve-kind block through translation.
package router

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/pdfxlate/pdfxlate/internal/document"
)

// Strategy names the handler a block is routed to.
type Strategy int

const (
	// StrategyPreserve copies OriginalText to TranslatedText verbatim and
	// makes no translation endpoint call.
	StrategyPreserve Strategy = iota
	// StrategySelfCorrecting routes through translate+validate+retry
	// with strict structural validation (tables).
	StrategySelfCorrecting
	// StrategyMarkdownAwareQuality uses the quality-tier model.
	StrategyMarkdownAwareQuality
	// StrategyMarkdownAwareCost uses the cost-tier model.
	StrategyMarkdownAwareCost
)

func (s Strategy) String() string {
	switch s {
	case StrategyPreserve:
		return "preserve"
	case StrategySelfCorrecting:
		return "self_correcting"
	case StrategyMarkdownAwareQuality:
		return "markdown_aware_quality"
	case StrategyMarkdownAwareCost:
		return "markdown_aware_cost"
	default:
		return "unknown"
	}
}

// Knob is the global strategy knob (spec §4.2): it shifts Paragraph
// routing thresholds but never changes a preserve/self_correcting choice.
type Knob int

const (
	KnobBalanced Knob = iota
	KnobCostOptimized
	KnobQualityFocused
	KnobSpeedFocused
)

// ParseKnob maps a config string to a Knob, defaulting to KnobBalanced.
func ParseKnob(s string) Knob {
	switch s {
	case "cost_optimized":
		return KnobCostOptimized
	case "quality_focused":
		return KnobQualityFocused
	case "speed_focused":
		return KnobSpeedFocused
	default:
		return KnobBalanced
	}
}

// Decision is the routing outcome for one block.
type Decision struct {
	Strategy   Strategy
	Importance Importance
}

// Router dispatches ContentBlocks to a Strategy per the spec §4.2 table.
type Router struct {
	Knob                Knob
	ComplexityThreshold float64
	Glossary            map[string]bool
}

// New returns a Router with the spec's default complexity threshold.
func New(knob Knob, glossary map[string]bool) *Router {
	return &Router{Knob: knob, ComplexityThreshold: 0.5, Glossary: glossary}
}

// Route classifies b and returns the Decision that governs how it is
// translated downstream.
func (r *Router) Route(b document.Block) Decision {
	if txt, ok := translatableText(b); ok && r.shouldSkip(txt) {
		return Decision{Strategy: StrategyPreserve, Importance: ImportanceLow}
	}
	switch v := b.(type) {
	case *document.MathFormula, *document.CodeBlock, *document.ImagePlaceholder:
		_ = v
		return Decision{Strategy: StrategyPreserve, Importance: ImportanceHigh}
	case *document.Table:
		return Decision{Strategy: StrategySelfCorrecting, Importance: ImportanceHigh}
	case *document.Heading:
		return Decision{Strategy: StrategyMarkdownAwareQuality, Importance: r.headingImportance(v)}
	case *document.Footnote:
		return Decision{Strategy: StrategyMarkdownAwareQuality, Importance: ImportanceMedium}
	case *document.Caption:
		return Decision{Strategy: StrategyMarkdownAwareCost, Importance: ImportanceMedium}
	case *document.ListItem:
		return r.routeListItem(v)
	case *document.Paragraph:
		return r.routeParagraph(v)
	default:
		return Decision{Strategy: StrategyMarkdownAwareCost, Importance: ImportanceMedium}
	}
}

// headingImportance mirrors translation_strategy_manager.py's h1/h2/h3
// split: h1 is always high, h2 depends on length, h3 is medium.
func (r *Router) headingImportance(h *document.Heading) Importance {
	switch {
	case h.Level <= 1:
		return ImportanceHigh
	case h.Level == 2:
		if len(h.OriginalText) > 20 {
			return ImportanceHigh
		}
		return ImportanceMedium
	default:
		return ImportanceMedium
	}
}

func (r *Router) routeListItem(li *document.ListItem) Decision {
	imp := ListItemImportance(li.OriginalText)
	return Decision{Strategy: StrategyMarkdownAwareCost, Importance: imp}
}

// routeParagraph splits Paragraph between the cost and quality tiers
// based on a weighted complexity score, shifted by the global Knob.
func (r *Router) routeParagraph(p *document.Paragraph) Decision {
	score := ComplexityScore(p.OriginalText)
	threshold := r.thresholdForKnob()
	imp := ParagraphImportance(p.OriginalText)

	if r.hasGlossaryTerm(p.OriginalText) {
		// A paragraph touching a glossary term always gets the quality
		// tier: consistent terminology matters more than cost here.
		if imp < ImportanceHigh {
			imp = ImportanceHigh
		}
		return Decision{Strategy: StrategyMarkdownAwareQuality, Importance: imp}
	}

	if score >= threshold {
		return Decision{Strategy: StrategyMarkdownAwareQuality, Importance: imp}
	}
	return Decision{Strategy: StrategyMarkdownAwareCost, Importance: imp}
}

// hasGlossaryTerm reports whether text contains any configured glossary
// term, case-insensitively, as a whole word.
func (r *Router) hasGlossaryTerm(text string) bool {
	if len(r.Glossary) == 0 {
		return false
	}
	for term := range r.Glossary {
		if regexp.MustCompile(`(?i)(^|\W)` + regexp.QuoteMeta(term) + `(\W|$)`).MatchString(text) {
			return true
		}
	}
	return false
}

// thresholdForKnob shifts the complexity threshold without ever touching
// preserve/self_correcting routing (spec §4.2).
func (r *Router) thresholdForKnob() float64 {
	switch r.Knob {
	case KnobCostOptimized:
		return r.ComplexityThreshold + 0.2
	case KnobQualityFocused:
		return r.ComplexityThreshold - 0.2
	case KnobSpeedFocused:
		return r.ComplexityThreshold + 0.1
	default:
		return r.ComplexityThreshold
	}
}

// translatableText returns the block's translatable text and whether the
// skip check applies to its kind at all (ImagePlaceholder has no text and
// is never skipped by this check; preserve-kinds already route to
// preserve regardless).
func translatableText(b document.Block) (string, bool) {
	switch v := b.(type) {
	case *document.Paragraph:
		return v.OriginalText, true
	case *document.ListItem:
		return v.OriginalText, true
	case *document.Caption:
		return v.OriginalText, true
	case *document.Footnote:
		return v.OriginalText, true
	default:
		return "", false
	}
}

// shouldSkip reports whether text should bypass translation entirely,
// ported from translation_strategy_manager.py's _should_skip_translation:
// boilerplate (copyright notices, bare page numbers, roman numerals),
// code-looking lines, text below a minimum rune count, and text that is
// mostly non-alphabetic are all skipped with no API call.
func (r *Router) shouldSkip(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	lower := strings.ToLower(trimmed)
	for _, pat := range skipPatterns {
		if pat.MatchString(lower) {
			return true
		}
	}
	for _, pat := range codePatterns {
		if pat.MatchString(trimmed) {
			return true
		}
	}
	if len([]rune(trimmed)) < 3 {
		return true
	}

	var alpha int
	runes := []rune(trimmed)
	for _, c := range runes {
		if unicode.IsLetter(c) {
			alpha++
		}
	}
	if float64(alpha)/float64(len(runes)) < 0.3 {
		return true
	}
	return false
}

var skipPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\s*all rights reserved\s*$`),
	regexp.MustCompile(`^\s*copyright\s+\d{4}`),
	regexp.MustCompile(`^\s*confidential\s*$`),
	regexp.MustCompile(`^\s*page\s+\d+\s*$`),
	regexp.MustCompile(`^\s*\d+\s*$`),
	regexp.MustCompile(`^\s*[ivxlcdm]+\s*$`),
}

var codePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\s*(func|package|import|if|for|while|try|except|def|class)\s+`),
	regexp.MustCompile(`^\s*[a-zA-Z_][a-zA-Z0-9_]*\s*:?=\s*`),
	regexp.MustCompile(`^\s*//.*$`),
	regexp.MustCompile(`^\s*/\*.*\*/\s*$`),
	regexp.MustCompile(`^\s*<[^>]+>\s*$`),
}
