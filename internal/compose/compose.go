// Package compose assembles scene text from layered sources: an objective
// base, an additive archetype lens overlay, conditional inserts, and a final
// sanity-driven distortion pass.
//
// The layering preserves the shared-observed-reality rule: lens text adds
// context to the base, it never replaces it. All randomness is seeded so a
// composition can be re-derived exactly.
package compose

import (
	"strings"

	"github.com/mkarsten/kaltvik/internal/models"
)

// Token is one styled run of composed text. Concatenating the Text fields of
// a composition's tokens reproduces its plain text exactly; the front end's
// renderer consumes the runs for styling and streaming.
type Token struct {
	Text  string `json:"text"`
	Style string `json:"style"`
}

// Styles emitted on tokens.
const (
	StyleBase    = "base"
	StyleLens    = "lens"
	StyleInsert  = "insert"
	StyleDistort = "distort"
)

// Composed is the result of one scene render.
type Composed struct {
	Text           string
	Tokens         []Token
	LensUsed       models.Archetype
	InsertsApplied []string
	Distortion     string
}

// Options tune one composition call.
type Options struct {
	// Seed drives the psychosis-tier transforms. The same seed and inputs
	// always produce the same output.
	Seed int64
	// Policy overrides the psychosis transform: "corrupt", "reverse" or
	// "redact". Empty picks the scene default, then "corrupt".
	Policy string
	// ActiveTheories is the set of theory ids currently active on the board,
	// consulted by theory_active insert conditions.
	ActiveTheories map[string]bool
}

// Atmosphere lines appended when an archetype has no authored lens text for
// the scene.
var microOverlays = map[models.Archetype]string{
	models.ArchetypeBeliever: "The air feels charged with something unseen.",
	models.ArchetypeSkeptic:  "There's a rational explanation. There always is.",
	models.ArchetypeHaunted:  "You've seen this before. Haven't you?",
}

// segment is an intermediate styled run, before distortion.
type segment struct {
	text  string
	style string
}

// Compose renders scene text for the given player.
//
// Pipeline: base (or thermal) text, then the lens overlay appended for the
// player's archetype, then every insert whose condition holds spliced at its
// position, then the sanity distortion pass over the fully assembled text.
// Inserts targeting the same position apply in authored order.
func Compose(text models.SceneText, player *models.PlayerState, opts Options) Composed {
	base := text.Base
	if player.ThermalMode && text.Thermal != "" {
		base = text.Thermal
	}

	// Partition inserts by position up front. Paragraph-targeted inserts
	// splice into the base before the other layers stack on.
	var (
		afterBase, afterLens, beforeChoices []models.Insert
		inParagraphs                        []models.Insert
		applied                             []string
	)
	for _, ins := range text.Inserts {
		if !Eval(ins.Condition, player, opts.ActiveTheories) {
			continue
		}
		switch ins.InsertAt {
		case models.AfterBase:
			afterBase = append(afterBase, ins)
		case models.AfterLens:
			afterLens = append(afterLens, ins)
		case models.BeforeChoices:
			beforeChoices = append(beforeChoices, ins)
		case models.MidParagraph, models.AfterParagraph:
			inParagraphs = append(inParagraphs, ins)
		default:
			// Unknown positions are rejected at content load; skip here.
			continue
		}
	}

	segments, paragraphApplied := spliceParagraphs(base, inParagraphs)
	applied = append(applied, paragraphApplied...)

	for _, ins := range afterBase {
		segments = append(segments, segment{text: ins.Text, style: StyleInsert})
		applied = append(applied, ins.ID)
	}

	lensUsed := models.ArchetypeNeutral
	if player.Archetype != models.ArchetypeNeutral {
		if overlay, ok := text.Lens[player.Archetype]; ok {
			segments = append(segments, segment{text: overlay, style: StyleLens})
			lensUsed = player.Archetype
		} else if atmosphere, ok := microOverlays[player.Archetype]; ok {
			segments = append(segments, segment{text: atmosphere, style: StyleLens})
			lensUsed = player.Archetype
		}
	}

	for _, ins := range afterLens {
		segments = append(segments, segment{text: ins.Text, style: StyleInsert})
		applied = append(applied, ins.ID)
	}
	for _, ins := range beforeChoices {
		segments = append(segments, segment{text: ins.Text, style: StyleInsert})
		applied = append(applied, ins.ID)
	}

	segments, distortion := distort(segments, player, opts)

	tokens := make([]Token, 0, len(segments))
	var sb strings.Builder
	for i, seg := range segments {
		runText := seg.text
		if i > 0 {
			runText = "\n\n" + runText
		}
		sb.WriteString(runText)
		tokens = append(tokens, Token{Text: runText, Style: seg.style})
	}

	return Composed{
		Text:           sb.String(),
		Tokens:         tokens,
		LensUsed:       lensUsed,
		InsertsApplied: applied,
		Distortion:     distortion,
	}
}

// spliceParagraphs splits the base text into blank-line-delimited paragraphs
// and splices paragraph-targeted inserts. AFTER_PARAGRAPH:n is 0-indexed;
// out-of-range n is a no-op. MID_PARAGRAPH targets the middle paragraph.
func spliceParagraphs(base string, inserts []models.Insert) ([]segment, []string) {
	paragraphs := strings.Split(base, "\n\n")

	// Inserts landing after each paragraph index, in authored order.
	after := make(map[int][]models.Insert)
	var applied []string
	for _, ins := range inserts {
		idx := ins.Paragraph
		if ins.InsertAt == models.MidParagraph {
			idx = (len(paragraphs) - 1) / 2
		}
		if idx < 0 || idx >= len(paragraphs) {
			continue
		}
		after[idx] = append(after[idx], ins)
		applied = append(applied, ins.ID)
	}

	var segments []segment
	for i, paragraph := range paragraphs {
		segments = append(segments, segment{text: paragraph, style: StyleBase})
		for _, ins := range after[i] {
			segments = append(segments, segment{text: ins.Text, style: StyleInsert})
		}
	}
	return segments, applied
}
