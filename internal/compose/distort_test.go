package compose

import (
	"strings"
	"testing"

	"github.com/mkarsten/kaltvik/internal/models"
	"github.com/stretchr/testify/require"
)

func TestHysteriaSubstitution(t *testing.T) {
	player := newPlayer()
	player.Sanity = 30

	composed := Compose(models.SceneText{Base: "The door is locked."}, player, Options{})
	require.Equal(t, "The mouth is locked.", composed.Text)
	require.Equal(t, distortionSubstitution, composed.Distortion)
}

func TestHysteriaCasePreserving(t *testing.T) {
	player := newPlayer()
	player.Sanity = 30

	composed := Compose(models.SceneText{Base: "DOOR. Door. door."}, player, Options{})
	require.Equal(t, "MOUTH. Mouth. mouth.", composed.Text)
}

func TestHysteriaWholeWordOnly(t *testing.T) {
	player := newPlayer()
	player.Sanity = 30

	// "doorway" must not match the "door" entry.
	composed := Compose(models.SceneText{Base: "The doorway gapes."}, player, Options{})
	require.Equal(t, "The doorway gapes.", composed.Text)
}

func TestHysteriaSubstitutesAcrossLineBreaks(t *testing.T) {
	player := newPlayer()
	player.Sanity = 30

	// Words split from their neighbors by a lone newline are still whole
	// words; the break itself must survive.
	composed := Compose(models.SceneText{Base: "Try the\ndoor.\n\nThe light holds."}, player, Options{})
	require.Equal(t, "Try the\nmouth.\n\nThe glare holds.", composed.Text)
}

func TestHysteriaPreservesPunctuation(t *testing.T) {
	player := newPlayer()
	player.Sanity = 40

	composed := Compose(models.SceneText{Base: "Behind the window, a shadow."}, player, Options{})
	require.Equal(t, "Behind the eye, a void.", composed.Text)
}

func TestUnsettledLeavesTextAlone(t *testing.T) {
	player := newPlayer()
	player.Sanity = 60

	composed := Compose(models.SceneText{Base: "The door is locked."}, player, Options{})
	require.Equal(t, "The door is locked.", composed.Text)
	require.Equal(t, distortionNone, composed.Distortion)
}

func TestPsychosisReversal(t *testing.T) {
	player := newPlayer()
	player.Sanity = 10

	composed := Compose(models.SceneText{Base: "abc def"}, player, Options{Policy: PolicyReverse})
	require.Equal(t, "fed cba", composed.Text)
	require.Equal(t, PolicyReverse, composed.Distortion)
	// Reversal collapses the styled runs into a single distorted run.
	require.Len(t, composed.Tokens, 1)
	require.Equal(t, StyleDistort, composed.Tokens[0].Style)
}

func TestPsychosisRedaction(t *testing.T) {
	player := newPlayer()
	player.Sanity = 5
	base := strings.Repeat("the watcher waits beyond the treeline ", 20)

	composed := Compose(models.SceneText{Base: base}, player, Options{Policy: PolicyRedact, Seed: 3})
	require.Contains(t, composed.Text, "[REDACTED]")
	require.Equal(t, PolicyRedact, composed.Distortion)

	again := Compose(models.SceneText{Base: base}, player, Options{Policy: PolicyRedact, Seed: 3})
	require.Equal(t, composed.Text, again.Text)
}

func TestPsychosisCorruptionSeeded(t *testing.T) {
	player := newPlayer()
	player.Sanity = 1
	base := "the lights are still on in the station house"

	first := Compose(models.SceneText{Base: base}, player, Options{Policy: PolicyCorrupt, Seed: 11})
	second := Compose(models.SceneText{Base: base}, player, Options{Policy: PolicyCorrupt, Seed: 11})
	require.Equal(t, first.Text, second.Text)
	require.Equal(t, PolicyCorrupt, first.Distortion)
	require.Len(t, first.Text, len(base))

	other := Compose(models.SceneText{Base: base}, player, Options{Policy: PolicyCorrupt, Seed: 12})
	require.Len(t, other.Text, len(base))
}

func TestPsychosisDefaultPolicyIsCorrupt(t *testing.T) {
	player := newPlayer()
	player.Sanity = 24

	composed := Compose(models.SceneText{Base: "static"}, player, Options{Seed: 1})
	require.Equal(t, PolicyCorrupt, composed.Distortion)
}

func TestSanityZeroClampsIntoPsychosis(t *testing.T) {
	player := newPlayer()
	player.ModifySanity(-500)
	require.Equal(t, 0, player.Sanity)
	require.Equal(t, models.TierPsychosis, player.Tier())
}
