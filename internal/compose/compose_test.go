package compose

import (
	"strings"
	"testing"

	"github.com/mkarsten/kaltvik/internal/models"
	"github.com/stretchr/testify/require"
)

func newPlayer() *models.PlayerState {
	return models.NewPlayerState()
}

func TestComposeBaseOnly(t *testing.T) {
	player := newPlayer()
	composed := Compose(models.SceneText{Base: "The cabin is cold."}, player, Options{})
	require.Equal(t, "The cabin is cold.", composed.Text)
	require.Equal(t, models.ArchetypeNeutral, composed.LensUsed)
	require.Empty(t, composed.InsertsApplied)
}

func TestComposeLensIsAdditive(t *testing.T) {
	player := newPlayer()
	player.SetArchetype(models.ArchetypeBeliever)

	text := models.SceneText{
		Base: "The radio hisses static.",
		Lens: map[models.Archetype]string{
			models.ArchetypeBeliever: "Under the static, something is trying to speak.",
		},
	}
	composed := Compose(text, player, Options{})

	// The base stays; the lens appends. Shared observed reality holds.
	require.True(t, strings.HasPrefix(composed.Text, "The radio hisses static."))
	require.Contains(t, composed.Text, "something is trying to speak")
	require.Equal(t, models.ArchetypeBeliever, composed.LensUsed)
}

func TestComposeMicroOverlayFallback(t *testing.T) {
	player := newPlayer()
	player.SetArchetype(models.ArchetypeSkeptic)

	composed := Compose(models.SceneText{Base: "A floorboard creaks upstairs."}, player, Options{})
	require.Contains(t, composed.Text, "There's a rational explanation.")
	require.Equal(t, models.ArchetypeSkeptic, composed.LensUsed)
}

func TestComposeInsertConditions(t *testing.T) {
	player := newPlayer()
	player.Skills["Forensics"] = 3
	player.Flags["found_key"] = true

	text := models.SceneText{
		Base: "The desk drawer hangs open.",
		Inserts: []models.Insert{
			{
				ID:        "forensics-note",
				Condition: models.Condition{Kind: models.CondSkillGTE, Skill: "Forensics", Value: 2},
				Text:      "Scratches around the lock. Someone forced it.",
				InsertAt:  models.AfterBase,
			},
			{
				ID:        "locked-out",
				Condition: models.Condition{Kind: models.CondSkillGTE, Skill: "Forensics", Value: 5},
				Text:      "You will never see this.",
				InsertAt:  models.AfterBase,
			},
			{
				ID:        "key-memory",
				Condition: models.Condition{Kind: models.CondFlagSet, Name: "found_key"},
				Text:      "The key in your pocket feels heavier.",
				InsertAt:  models.BeforeChoices,
			},
		},
	}
	composed := Compose(text, player, Options{})

	require.Contains(t, composed.Text, "Someone forced it.")
	require.Contains(t, composed.Text, "feels heavier")
	require.NotContains(t, composed.Text, "never see this")
	require.Equal(t, []string{"forensics-note", "key-memory"}, composed.InsertsApplied)
}

func TestComposeAfterParagraph(t *testing.T) {
	player := newPlayer()
	text := models.SceneText{
		Base: "First paragraph.\n\nSecond paragraph.\n\nThird paragraph.",
		Inserts: []models.Insert{
			{
				ID:        "mid",
				Condition: models.Condition{Kind: models.CondSanityLT, Value: 101},
				Text:      "Spliced after the second.",
				InsertAt:  models.AfterParagraph,
				Paragraph: 1,
			},
		},
	}
	composed := Compose(text, player, Options{})
	require.Equal(t,
		"First paragraph.\n\nSecond paragraph.\n\nSpliced after the second.\n\nThird paragraph.",
		composed.Text)
}

func TestComposeAfterParagraphOutOfRange(t *testing.T) {
	player := newPlayer()
	text := models.SceneText{
		Base: "Only paragraph.",
		Inserts: []models.Insert{
			{
				ID:        "overflow",
				Condition: models.Condition{Kind: models.CondSanityLT, Value: 101},
				Text:      "Nowhere to go.",
				InsertAt:  models.AfterParagraph,
				Paragraph: 5,
			},
		},
	}
	// Out-of-range paragraph targets are forgiving no-ops.
	composed := Compose(text, player, Options{})
	require.Equal(t, "Only paragraph.", composed.Text)
	require.Empty(t, composed.InsertsApplied)
}

func TestComposeThermalMode(t *testing.T) {
	player := newPlayer()
	player.ThermalMode = true
	text := models.SceneText{
		Base:    "The diner is empty.",
		Thermal: "Heat blooms across the far booth. Something sat there minutes ago.",
	}
	composed := Compose(text, player, Options{})
	require.Contains(t, composed.Text, "Heat blooms")
	require.NotContains(t, composed.Text, "The diner is empty.")
}

func TestComposeTokensReassemble(t *testing.T) {
	player := newPlayer()
	player.SetArchetype(models.ArchetypeHaunted)
	text := models.SceneText{
		Base: "Paragraph one.\n\nParagraph two.",
		Lens: map[models.Archetype]string{models.ArchetypeHaunted: "You remember this hallway."},
		Inserts: []models.Insert{
			{
				ID:        "ins",
				Condition: models.Condition{Kind: models.CondSanityLT, Value: 101},
				Text:      "An insert.",
				InsertAt:  models.AfterLens,
			},
		},
	}
	composed := Compose(text, player, Options{})

	var sb strings.Builder
	for _, token := range composed.Tokens {
		sb.WriteString(token.Text)
	}
	require.Equal(t, composed.Text, sb.String())

	styles := make(map[string]bool)
	for _, token := range composed.Tokens {
		styles[token.Style] = true
	}
	require.True(t, styles[StyleBase])
	require.True(t, styles[StyleLens])
	require.True(t, styles[StyleInsert])
}

func TestComposeIdempotentAtFullSanity(t *testing.T) {
	player := newPlayer()
	require.Equal(t, 100, player.Sanity)
	text := models.SceneText{Base: "The door is locked."}

	first := Compose(text, player, Options{Seed: 7})
	second := Compose(text, player, Options{Seed: 7})
	require.Equal(t, "The door is locked.", first.Text)
	require.Equal(t, first, second)
}

func TestComposeDeterministicAcrossSeeds(t *testing.T) {
	player := newPlayer()
	player.Sanity = 10
	text := models.SceneText{Base: "The long hallway stretches on and the lights flicker overhead."}

	first := Compose(text, player, Options{Seed: 99})
	second := Compose(text, player, Options{Seed: 99})
	require.Equal(t, first, second)
}
