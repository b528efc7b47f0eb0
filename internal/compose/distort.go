package compose

import (
	"math/rand"
	"strings"
	"unicode"

	"github.com/mkarsten/kaltvik/internal/models"
)

// Psychosis-tier transform names.
const (
	PolicyCorrupt = "corrupt"
	PolicyReverse = "reverse"
	PolicyRedact  = "redact"
)

// Distortion pass names reported on Composed.Distortion.
const (
	distortionNone         = ""
	distortionSubstitution = "substitution"
)

// substitutions is the fixed hysteria-tier word-replacement table. Matches
// are whole-word and case-preserving.
var substitutions = map[string]string{
	"door":   "mouth",
	"window": "eye",
	"shadow": "void",
	"light":  "glare",
	"wall":   "skin",
	"tree":   "claw",
	"sky":    "lid",
	"floor":  "flesh",
	"hope":   "delusion",
	"memory": "scar",
	"friend": "stranger",
	"enemy":  "reflection",
}

// glyphs maps letters to visually similar replacements for the corruption
// transform.
var glyphs = map[rune]rune{
	'a': '4', 'A': '4',
	'b': '6', 'B': '8',
	'e': '3', 'E': '3',
	'g': '9', 'G': '6',
	'i': '1', 'I': '1',
	'l': '1', 'L': '1',
	'o': '0', 'O': '0',
	's': '5', 'S': '5',
	't': '7', 'T': '7',
}

const (
	corruptChance = 0.3
	redactChance  = 0.15
)

// distort applies the sanity-tier transform to assembled segments, strictly
// after composition. At full sanity it is the identity. The hysteria tier is
// fully deterministic; the psychosis tier draws from a source seeded with
// Options.Seed so any render can be re-derived.
func distort(segments []segment, player *models.PlayerState, opts Options) ([]segment, string) {
	switch player.Tier() {
	case models.TierLucid, models.TierUnsettled:
		// Unsettled distortion is authored per-scene as parenthetical
		// inserts, not generated here.
		return segments, distortionNone
	case models.TierHysteria:
		out := make([]segment, len(segments))
		for i, seg := range segments {
			out[i] = segment{text: substituteWords(seg.text), style: seg.style}
		}
		return out, distortionSubstitution
	default:
	}

	policy := opts.Policy
	if policy == "" {
		policy = PolicyCorrupt
	}
	rng := rand.New(rand.NewSource(opts.Seed))

	switch policy {
	case PolicyReverse:
		// Reversal operates on the whole composed string, so the styled runs
		// collapse into a single distorted run.
		var sb strings.Builder
		for i, seg := range segments {
			if i > 0 {
				sb.WriteString("\n\n")
			}
			sb.WriteString(seg.text)
		}
		return []segment{{text: reverse(sb.String()), style: StyleDistort}}, PolicyReverse
	case PolicyRedact:
		out := make([]segment, len(segments))
		for i, seg := range segments {
			out[i] = segment{text: redactWords(seg.text, rng), style: seg.style}
		}
		return out, PolicyRedact
	default:
		out := make([]segment, len(segments))
		for i, seg := range segments {
			out[i] = segment{text: corruptGlyphs(seg.text, rng), style: seg.style}
		}
		return out, PolicyCorrupt
	}
}

// substituteWords applies the hysteria table to every whole word,
// preserving the original word's case and surrounding punctuation. Words
// are delimited by any whitespace, and the original separators survive
// untouched so line and paragraph breaks come through intact.
func substituteWords(text string) string {
	runes := []rune(text)
	out := make([]rune, 0, len(runes))
	for start := 0; start < len(runes); {
		if unicode.IsSpace(runes[start]) {
			out = append(out, runes[start])
			start++
			continue
		}
		end := start
		for end < len(runes) && !unicode.IsSpace(runes[end]) {
			end++
		}
		word := string(runes[start:end])
		prefix, core, suffix := trimPunct(word)
		if replacement, ok := substitutions[strings.ToLower(core)]; ok {
			word = prefix + matchCase(core, replacement) + suffix
		}
		out = append(out, []rune(word)...)
		start = end
	}
	return string(out)
}

// trimPunct splits leading and trailing punctuation off a word.
func trimPunct(word string) (prefix, core, suffix string) {
	runes := []rune(word)
	start, end := 0, len(runes)
	for start < end && unicode.IsPunct(runes[start]) {
		start++
	}
	for end > start && unicode.IsPunct(runes[end-1]) {
		end--
	}
	return string(runes[:start]), string(runes[start:end]), string(runes[end:])
}

func matchCase(original, replacement string) string {
	if original == strings.ToUpper(original) && original != strings.ToLower(original) {
		return strings.ToUpper(replacement)
	}
	runes := []rune(original)
	if len(runes) > 0 && unicode.IsUpper(runes[0]) {
		head := []rune(replacement)
		if len(head) > 0 {
			head[0] = unicode.ToUpper(head[0])
		}
		return string(head)
	}
	return replacement
}

func corruptGlyphs(text string, rng *rand.Rand) string {
	runes := []rune(text)
	for i, r := range runes {
		replacement, ok := glyphs[r]
		if !ok {
			continue
		}
		if rng.Float64() < corruptChance {
			runes[i] = replacement
		}
	}
	return string(runes)
}

func reverse(text string) string {
	runes := []rune(text)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}

func redactWords(text string, rng *rand.Rand) string {
	words := strings.Split(text, " ")
	out := make([]string, 0, len(words))
	for i := 0; i < len(words); i++ {
		if rng.Float64() < redactChance {
			span := 1 + rng.Intn(3)
			out = append(out, "[REDACTED]")
			i += span - 1
			continue
		}
		out = append(out, words[i])
	}
	return strings.Join(out, " ")
}
