package board

import (
	"log/slog"
	"sort"

	"github.com/mkarsten/kaltvik/internal/errors"
	"github.com/mkarsten/kaltvik/internal/models"
)

// SnapshotVersion is the current persisted-format version of a board
// snapshot. The save system owns migration between versions; the engine only
// refuses what it does not understand.
const SnapshotVersion = 1

// Snapshot is the full serializable state of a board. ToSnapshot and
// FromSnapshot are pure and round-trip exactly.
type Snapshot struct {
	Version  int                       `json:"version"`
	Slots    int                       `json:"slots"`
	Theories []models.Theory           `json:"theories"`
	Evidence []models.Evidence         `json:"evidence"`
	Edges    []Edge                    `json:"edges"`
	Applied  map[string]map[string]int `json:"applied_deltas"`
}

// ToSnapshot captures the board. Collections are sorted by id so equal
// boards produce equal snapshots.
func (b *Board) ToSnapshot() Snapshot {
	theories := make([]models.Theory, 0, len(b.theories))
	for _, theory := range b.theories {
		theories = append(theories, *theory)
	}
	sort.Slice(theories, func(i, j int) bool { return theories[i].ID < theories[j].ID })

	evidence := make([]models.Evidence, 0, len(b.evidence))
	for _, ev := range b.evidence {
		evidence = append(evidence, *ev)
	}
	sort.Slice(evidence, func(i, j int) bool { return evidence[i].ID < evidence[j].ID })

	applied := make(map[string]map[string]int, len(b.applied))
	for id, deltas := range b.applied {
		cloned := make(map[string]int, len(deltas))
		for skill, delta := range deltas {
			cloned[skill] = delta
		}
		applied[id] = cloned
	}

	return Snapshot{
		Version:  SnapshotVersion,
		Slots:    b.slots,
		Theories: theories,
		Evidence: evidence,
		Edges:    append([]Edge(nil), b.edges...),
		Applied:  applied,
	}
}

// FromSnapshot reconstructs a board exactly as captured.
func FromSnapshot(snapshot Snapshot, logger *slog.Logger) (*Board, error) {
	if snapshot.Version != SnapshotVersion {
		return nil, errors.Wrap(models.ErrConfig, "unsupported board snapshot version",
			slog.Int("version", snapshot.Version))
	}
	b := New(logger)
	if snapshot.Slots > 0 {
		b.slots = snapshot.Slots
	}
	for _, theory := range snapshot.Theories {
		if err := b.AddTheory(theory); err != nil {
			return nil, err
		}
	}
	for _, ev := range snapshot.Evidence {
		cloned := ev
		if _, ok := b.evidence[ev.ID]; ok {
			return nil, errors.Wrap(models.ErrConfig, "duplicate evidence id", slog.String("evidenceID", ev.ID))
		}
		// Counts and edges were captured explicitly; do not re-link.
		b.evidence[ev.ID] = &cloned
	}
	b.edges = append([]Edge(nil), snapshot.Edges...)
	for id, deltas := range snapshot.Applied {
		cloned := make(map[string]int, len(deltas))
		for skill, delta := range deltas {
			cloned[skill] = delta
		}
		b.applied[id] = cloned
	}
	return b, nil
}
