package board_test

import (
	"io"
	"testing"

	"github.com/mkarsten/kaltvik/internal/board"
	"github.com/mkarsten/kaltvik/internal/models"
	"github.com/mkarsten/kaltvik/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

func newBoard(t *testing.T) *board.Board {
	t.Helper()
	return board.New(testhelpers.NewLogger(io.Discard))
}

func TestAddEvidenceUpdatesCounts(t *testing.T) {
	b := newBoard(t)
	require.NoError(t, b.AddTheory(models.Theory{
		ID:     "entity",
		Name:   "Something Lives In The Lake",
		Status: models.TheoryAvailable,
	}))

	err := b.AddEvidence(models.Evidence{
		ID:   "claw-marks",
		Name: "Claw marks on the jetty",
		Links: []models.TheoryLink{
			{TheoryID: "entity", Relation: models.RelSupports},
		},
	}, 480)
	require.NoError(t, err)

	theory, err := b.Theory("entity")
	require.NoError(t, err)
	require.Equal(t, 1, theory.EvidenceCount)
	require.Equal(t, 0, theory.ContradictionCount)
	require.Equal(t, 480, theory.LastReinforced)
}

func TestAddEvidenceUnknownTheoryIsStoredButUnlinked(t *testing.T) {
	b := newBoard(t)

	// Evidence may be authored before the theory exists; the link is skipped.
	err := b.AddEvidence(models.Evidence{
		ID:    "odd-photo",
		Links: []models.TheoryLink{{TheoryID: "missing", Relation: models.RelSupports}},
	}, 0)
	require.NoError(t, err)

	_, err = b.Evidence("odd-photo")
	require.NoError(t, err)
}

func TestAddEvidenceIsIdempotent(t *testing.T) {
	b := newBoard(t)
	require.NoError(t, b.AddTheory(models.Theory{ID: "entity", Status: models.TheoryAvailable}))

	ev := models.Evidence{
		ID:    "claw-marks",
		Links: []models.TheoryLink{{TheoryID: "entity", Relation: models.RelSupports}},
	}
	require.NoError(t, b.AddEvidence(ev, 0))
	require.NoError(t, b.AddEvidence(ev, 0))

	theory, err := b.Theory("entity")
	require.NoError(t, err)
	require.Equal(t, 1, theory.EvidenceCount)
}

func TestLinkEvidenceUnknownIDs(t *testing.T) {
	b := newBoard(t)
	require.NoError(t, b.AddTheory(models.Theory{ID: "entity", Status: models.TheoryAvailable}))
	require.NoError(t, b.AddEvidence(models.Evidence{ID: "claw-marks"}, 0))

	require.ErrorIs(t, b.LinkEvidence("claw-marks", "missing", models.RelSupports, 0), models.ErrNotFound)
	require.ErrorIs(t, b.LinkEvidence("missing", "entity", models.RelSupports, 0), models.ErrNotFound)
}

func TestAvailabilityRequirements(t *testing.T) {
	theory := &models.Theory{
		ID: "watched",
		Requirements: models.TheoryRequirements{
			CluesRequired: []string{"tire-tracks"},
			FlagsRequired: []string{"met_sheriff"},
			ScenesVisited: []string{"diner"},
			MinSkill:      map[string]int{"Logic": 2},
		},
	}

	player := models.NewPlayerState()
	require.False(t, board.Available(theory, player, nil))

	player.Clues["tire-tracks"] = true
	player.Flags["met_sheriff"] = true
	player.VisitedScenes["diner"] = true
	player.Skills["Logic"] = 2
	require.True(t, board.Available(theory, player, nil))

	player.Skills["Logic"] = 1
	require.False(t, board.Available(theory, player, nil))
}

func TestUnlockAvailable(t *testing.T) {
	b := newBoard(t)
	require.NoError(t, b.AddTheory(models.Theory{
		ID:           "watched",
		Status:       models.TheoryLocked,
		Requirements: models.TheoryRequirements{FlagsRequired: []string{"saw_the_van"}},
	}))

	player := models.NewPlayerState()
	require.Empty(t, b.UnlockAvailable(player))

	player.Flags["saw_the_van"] = true
	require.Equal(t, []string{"watched"}, b.UnlockAvailable(player))

	theory, err := b.Theory("watched")
	require.NoError(t, err)
	require.Equal(t, models.TheoryAvailable, theory.Status)
}

// The critical consistency invariant: internalizing a theory that conflicts
// with an active one leaves skills exactly as if the old theory had never
// been activated, plus exactly the new theory's effects.
func TestConflictRevertLeavesNoResidue(t *testing.T) {
	b := newBoard(t)
	require.NoError(t, b.AddTheory(models.Theory{
		ID:      "t2",
		Status:  models.TheoryAvailable,
		Effects: map[string]int{"Wits": 2},
	}))
	require.NoError(t, b.AddTheory(models.Theory{
		ID:            "t1",
		Status:        models.TheoryAvailable,
		Effects:       map[string]int{"Logic": 1},
		ConflictsWith: []string{"t2"},
	}))

	player := models.NewPlayerState()
	player.Skills["Wits"] = 1
	player.Skills["Logic"] = 1

	require.NoError(t, b.Internalize("t2", player, 0))
	require.Equal(t, 3, player.Skills["Wits"])

	require.NoError(t, b.Internalize("t1", player, 0))
	require.Equal(t, 1, player.Skills["Wits"], "Wits reverted to pre-t2 baseline")
	require.Equal(t, 2, player.Skills["Logic"], "Logic increased by exactly 1")

	t2, err := b.Theory("t2")
	require.NoError(t, err)
	require.Equal(t, models.TheoryLocked, t2.Status)
}

func TestInternalizeOnlyFromAvailable(t *testing.T) {
	b := newBoard(t)
	require.NoError(t, b.AddTheory(models.Theory{ID: "locked", Status: models.TheoryLocked}))

	player := models.NewPlayerState()
	require.ErrorIs(t, b.Internalize("locked", player, 0), models.ErrInput)
	require.ErrorIs(t, b.Internalize("missing", player, 0), models.ErrNotFound)
}

func TestInternalizeSlotLimit(t *testing.T) {
	b := newBoard(t)
	for _, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, b.AddTheory(models.Theory{ID: id, Status: models.TheoryAvailable}))
	}

	player := models.NewPlayerState()
	require.NoError(t, b.Internalize("a", player, 0))
	require.NoError(t, b.Internalize("b", player, 0))
	require.NoError(t, b.Internalize("c", player, 0))
	require.ErrorIs(t, b.Internalize("d", player, 0), models.ErrInput)
}

func TestOnInternalizeEffectsApplyInOrder(t *testing.T) {
	b := newBoard(t)
	require.NoError(t, b.AddTheory(models.Theory{
		ID:     "nightmares",
		Status: models.TheoryAvailable,
		OnInternalize: []models.Effect{
			{Op: models.OpSetFlag, Name: "believes_nightmares"},
			{Op: models.OpModifySanity, Value: -10},
			{Op: models.OpModifyTrust, NPC: "sheriff", Value: -5},
		},
	}))

	player := models.NewPlayerState()
	require.NoError(t, b.Internalize("nightmares", player, 0))
	require.True(t, player.Flags["believes_nightmares"])
	require.Equal(t, 90, player.Sanity)
	require.Equal(t, -5, player.Trust["sheriff"])
}

func TestOnInternalizeUnknownOpAppliesNothing(t *testing.T) {
	b := newBoard(t)
	require.NoError(t, b.AddTheory(models.Theory{
		ID:     "broken",
		Status: models.TheoryAvailable,
		OnInternalize: []models.Effect{
			{Op: models.OpModifySanity, Value: -10},
			{Op: models.EffectOp("explode"), Value: 1},
		},
	}))

	player := models.NewPlayerState()
	require.ErrorIs(t, b.Internalize("broken", player, 0), models.ErrConfig)
	require.Equal(t, 100, player.Sanity, "partial application is a defect")

	theory, err := b.Theory("broken")
	require.NoError(t, err)
	require.Equal(t, models.TheoryAvailable, theory.Status)
}

func TestMarkInternalizedAndUnlearn(t *testing.T) {
	b := newBoard(t)
	require.NoError(t, b.AddTheory(models.Theory{
		ID:      "entity",
		Status:  models.TheoryAvailable,
		Effects: map[string]int{"Paranormal Sensitivity": 2},
	}))

	player := models.NewPlayerState()
	require.NoError(t, b.Internalize("entity", player, 0))
	require.ErrorIs(t, b.Unlearn("entity", player), models.ErrInput)

	require.NoError(t, b.MarkInternalized("entity"))
	require.NoError(t, b.Unlearn("entity", player))
	require.Equal(t, 0, player.Skills["Paranormal Sensitivity"])

	theory, err := b.Theory("entity")
	require.NoError(t, err)
	require.Equal(t, models.TheoryAvailable, theory.Status)
}

func TestHealthMonotonicity(t *testing.T) {
	b := newBoard(t)
	require.NoError(t, b.AddTheory(models.Theory{
		ID:              "entity",
		Status:          models.TheoryAvailable,
		DegradationRate: 2,
	}))

	now := 0
	prev, err := b.Health("entity", now)
	require.NoError(t, err)

	// Supporting evidence never decreases health.
	for i := 0; i < 8; i++ {
		require.NoError(t, b.AddEvidence(models.Evidence{
			ID:    "support-" + string(rune('a'+i)),
			Links: []models.TheoryLink{{TheoryID: "entity", Relation: models.RelSupports}},
		}, now))
		health, herr := b.Health("entity", now)
		require.NoError(t, herr)
		require.GreaterOrEqual(t, health, prev)
		prev = health
	}

	// Contradicting evidence never increases health.
	for i := 0; i < 8; i++ {
		require.NoError(t, b.AddEvidence(models.Evidence{
			ID:    "contra-" + string(rune('a'+i)),
			Links: []models.TheoryLink{{TheoryID: "entity", Relation: models.RelContradicts}},
		}, now))
		health, herr := b.Health("entity", now)
		require.NoError(t, herr)
		require.LessOrEqual(t, health, prev)
		prev = health
	}
}

func TestHealthDecaysOverTime(t *testing.T) {
	b := newBoard(t)
	require.NoError(t, b.AddTheory(models.Theory{
		ID:              "entity",
		Status:          models.TheoryAvailable,
		DegradationRate: 10,
	}))
	require.NoError(t, b.AddEvidence(models.Evidence{
		ID:    "support",
		Links: []models.TheoryLink{{TheoryID: "entity", Relation: models.RelSupports}},
	}, 0))

	fresh, err := b.Health("entity", 0)
	require.NoError(t, err)
	later, err := b.Health("entity", 6*60)
	require.NoError(t, err)
	require.Less(t, later, fresh)

	strained, err := b.Strained("entity", 6*60)
	require.NoError(t, err)
	require.True(t, strained)
}

func TestHealthClampedToRange(t *testing.T) {
	b := newBoard(t)
	require.NoError(t, b.AddTheory(models.Theory{ID: "entity", DegradationRate: 100}))

	for i := 0; i < 20; i++ {
		require.NoError(t, b.AddEvidence(models.Evidence{
			ID:    "support-" + string(rune('a'+i)),
			Links: []models.TheoryLink{{TheoryID: "entity", Relation: models.RelSupports}},
		}, 0))
	}
	health, err := b.Health("entity", 0)
	require.NoError(t, err)
	require.Equal(t, 100.0, health)

	health, err = b.Health("entity", 100000)
	require.NoError(t, err)
	require.Equal(t, 0.0, health)
}

func TestCollapseClosesTheoryAndReportsSanityDamage(t *testing.T) {
	b := newBoard(t)
	require.NoError(t, b.AddTheory(models.Theory{
		ID:              "fragile",
		Status:          models.TheoryAvailable,
		Effects:         map[string]int{"Logic": 1},
		DegradationRate: 1,
	}))

	player := models.NewPlayerState()
	require.NoError(t, b.Internalize("fragile", player, 0))

	for i := 0; i < 6; i++ {
		require.NoError(t, b.AddEvidence(models.Evidence{
			ID:    "contra-" + string(rune('a'+i)),
			Links: []models.TheoryLink{{TheoryID: "fragile", Relation: models.RelContradicts}},
		}, 0))
	}

	collapsed, damage := b.Collapse(player, 0)
	require.Equal(t, []string{"fragile"}, collapsed)
	require.Equal(t, 30, damage)
	require.Equal(t, 0, player.Skills["Logic"], "collapse reverts deltas")

	theory, err := b.Theory("fragile")
	require.NoError(t, err)
	require.Equal(t, models.TheoryClosed, theory.Status)
}

func TestUnlearnBrokenRevertsInternalizedTheory(t *testing.T) {
	b := newBoard(t)
	require.NoError(t, b.AddTheory(models.Theory{
		ID:      "certainty",
		Status:  models.TheoryAvailable,
		Effects: map[string]int{"Logic": 2},
	}))

	player := models.NewPlayerState()
	require.NoError(t, b.Internalize("certainty", player, 0))
	require.NoError(t, b.MarkInternalized("certainty"))

	// Internalized theories survive collapse; only contradiction-driven
	// unlearning moves them.
	for i := 0; i < 6; i++ {
		require.NoError(t, b.AddEvidence(models.Evidence{
			ID:    "contra-" + string(rune('a'+i)),
			Links: []models.TheoryLink{{TheoryID: "certainty", Relation: models.RelContradicts}},
		}, 0))
	}
	collapsed, _ := b.Collapse(player, 0)
	require.Empty(t, collapsed)

	unlearned := b.UnlearnBroken(player, 0)
	require.Equal(t, []string{"certainty"}, unlearned)
	require.Equal(t, 0, player.Skills["Logic"], "unlearning reverts deltas")

	theory, err := b.Theory("certainty")
	require.NoError(t, err)
	require.Equal(t, models.TheoryAvailable, theory.Status)
}

func TestUnlearnBrokenLeavesHealthyTheoriesAlone(t *testing.T) {
	b := newBoard(t)
	require.NoError(t, b.AddTheory(models.Theory{ID: "sturdy", Status: models.TheoryAvailable}))

	player := models.NewPlayerState()
	require.NoError(t, b.Internalize("sturdy", player, 0))
	require.NoError(t, b.MarkInternalized("sturdy"))

	require.Empty(t, b.UnlearnBroken(player, 0))
	theory, err := b.Theory("sturdy")
	require.NoError(t, err)
	require.Equal(t, models.TheoryInternalized, theory.Status)
}

func TestSnapshotRoundTrip(t *testing.T) {
	b := newBoard(t)
	require.NoError(t, b.AddTheory(models.Theory{
		ID:              "entity",
		Name:            "Something Lives In The Lake",
		Status:          models.TheoryAvailable,
		Effects:         map[string]int{"Paranormal Sensitivity": 2},
		DegradationRate: 5,
	}))
	require.NoError(t, b.AddTheory(models.Theory{
		ID:            "rational",
		Status:        models.TheoryAvailable,
		ConflictsWith: []string{"entity"},
	}))
	require.NoError(t, b.AddEvidence(models.Evidence{
		ID:          "claw-marks",
		Reliability: 0.7,
		Links:       []models.TheoryLink{{TheoryID: "entity", Relation: models.RelSupports}},
	}, 120))

	player := models.NewPlayerState()
	require.NoError(t, b.Internalize("entity", player, 120))

	snapshot := b.ToSnapshot()
	restored, err := board.FromSnapshot(snapshot, testhelpers.NewLogger(io.Discard))
	require.NoError(t, err)
	require.Equal(t, snapshot, restored.ToSnapshot())

	// The restored board still reverts exactly on conflict.
	require.NoError(t, restored.Internalize("rational", player, 120))
	require.Equal(t, 0, player.Skills["Paranormal Sensitivity"])
}

func TestSnapshotRejectsUnknownVersion(t *testing.T) {
	_, err := board.FromSnapshot(board.Snapshot{Version: 99}, testhelpers.NewLogger(io.Discard))
	require.ErrorIs(t, err, models.ErrConfig)
}
