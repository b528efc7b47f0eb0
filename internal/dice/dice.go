// Package dice implements the 2d6 skill-check resolution engine.
//
// A check resolves as 2d6 + modifiers against a difficulty class. Naturals
// are read off the dice before modifiers: a natural 12 is always a critical
// success and a natural 2 always a critical failure, whatever the DC.
package dice

import (
	"log/slog"
	"math/rand"

	"github.com/mkarsten/kaltvik/internal/errors"
	"github.com/mkarsten/kaltvik/internal/models"
)

// Outcome is the tier a resolved check lands in.
type Outcome int

const (
	OutcomeUnspecified Outcome = iota
	OutcomeCriticalFailure
	OutcomeFailure
	OutcomePartialSuccess
	OutcomeSuccess
	OutcomeCriticalSuccess
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUnspecified:
		return "Unspecified"
	case OutcomeCriticalFailure:
		return "Critical failure"
	case OutcomeFailure:
		return "Failure"
	case OutcomePartialSuccess:
		return "Partial success"
	case OutcomeSuccess:
		return "Success"
	case OutcomeCriticalSuccess:
		return "Critical success"
	default:
		return "Unknown"
	}
}

// Succeeded reports whether the outcome achieves the check's goal. Partial
// successes succeed, at a cost chosen by the calling scene.
func (o Outcome) Succeeded() bool {
	switch o {
	case OutcomePartialSuccess, OutcomeSuccess, OutcomeCriticalSuccess:
		return true
	default:
		return false
	}
}

// Difficulty bands per the game canon.
const (
	DCTrivial   = 5
	DCEasy      = 7
	DCStandard  = 9
	DCHard      = 11
	DCExtreme   = 13
	DCLegendary = 15
)

// Band gives the human-readable difficulty description for a DC.
func Band(dc int) string {
	switch {
	case dc <= DCTrivial:
		return "Trivial"
	case dc <= DCEasy:
		return "Easy"
	case dc <= DCStandard:
		return "Standard"
	case dc <= DCHard:
		return "Hard"
	case dc <= DCExtreme:
		return "Extreme"
	default:
		return "Legendary"
	}
}

// Roll is the raw pre-modifier result of two six-sided dice. Manual marks a
// caller-supplied total entered on physical dice.
type Roll struct {
	D1     int
	D2     int
	Total  int
	Manual bool
}

// Doubles reports whether both dice show the same face.
func (r Roll) Doubles() bool {
	return r.D1 == r.D2
}

// Roller produces rolls from a seeded source. The same seed always yields
// the same sequence of rolls.
type Roller struct {
	rng *rand.Rand
}

// NewRoller constructs a Roller seeded with seed.
func NewRoller(seed int64) *Roller {
	return &Roller{rng: rand.New(rand.NewSource(seed))}
}

// Roll throws 2d6.
func (r *Roller) Roll() Roll {
	d1 := r.rng.Intn(6) + 1
	d2 := r.rng.Intn(6) + 1
	return Roll{D1: d1, D2: d2, Total: d1 + d2, Manual: false}
}

// ManualRoll builds a Roll from a player-entered total in [2,12]. This is
// the accessibility path for players rolling physical dice: the engine only
// ever sees the total, so the faces are reconstructed as an even split.
func ManualRoll(total int) (Roll, error) {
	if total < 2 || total > 12 {
		return Roll{}, errors.Wrap(models.ErrInput, "manual roll out of range", slog.Int("total", total))
	}
	d1 := total / 2
	d2 := total - d1
	return Roll{D1: d1, D2: d2, Total: total, Manual: true}, nil
}

// Result is the complete resolution of one check.
type Result struct {
	Roll     Roll
	Modifier int
	Total    int
	DC       int
	Margin   int
	Outcome  Outcome
}

// Resolve evaluates a check for the given player skills and an
// already-thrown roll. It is pure: same roll, modifiers and DC always
// produce the same result, and it applies no narrative consequences; the
// caller does that.
//
// The modifier is the player's skill value plus the attribute bonus plus all
// situational modifiers, summed algebraically.
func Resolve(check models.Check, skills map[string]int, roll Roll) (Result, error) {
	if check.Skill == "" {
		return Result{}, errors.Wrap(models.ErrConfig, "check has no skill")
	}
	if check.DC < 2 || check.DC > 20 {
		return Result{}, errors.Wrap(models.ErrConfig, "check DC out of range",
			slog.String("skill", check.Skill), slog.Int("dc", check.DC))
	}

	modifier := skills[check.Skill]
	if check.Attribute != "" {
		modifier += skills[check.Attribute]
	}
	for _, m := range check.Modifiers {
		if m.Name == "" {
			return Result{}, errors.Wrap(models.ErrConfig, "unnamed check modifier",
				slog.String("skill", check.Skill))
		}
		modifier += m.Value
	}

	total := roll.Total + modifier
	margin := total - check.DC

	var outcome Outcome
	switch {
	case roll.Total == 2:
		// Natural snake-eyes, pre-modifier.
		outcome = OutcomeCriticalFailure
	case roll.Total == 12:
		// Natural boxcars, pre-modifier.
		outcome = OutcomeCriticalSuccess
	case margin >= 0:
		outcome = OutcomeSuccess
	case margin >= -2:
		outcome = OutcomePartialSuccess
	default:
		outcome = OutcomeFailure
	}

	return Result{
		Roll:     roll,
		Modifier: modifier,
		Total:    total,
		DC:       check.DC,
		Margin:   margin,
		Outcome:  outcome,
	}, nil
}

// skillCosts maps skills to the cost a narrow success typically incurs.
var skillCosts = map[string]models.CostKind{
	"Stealth":       models.CostNoise,
	"Forensics":     models.CostEvidence,
	"Athletics":     models.CostInjury,
	"Charm":         models.CostTrust,
	"Interrogation": models.CostTrust,
	"Firearms":      models.CostNoise,
	"Research":      models.CostTime,
	"Survival":      models.CostInjury,
}

// PartialCost picks the cost of a partial success. The scene author's
// explicit choice wins; otherwise the skill's customary cost applies, with
// time as the fallback.
func PartialCost(check models.Check) models.CostKind {
	if check.PartialCost != "" {
		return check.PartialCost
	}
	if cost, ok := skillCosts[check.Skill]; ok {
		return cost
	}
	return models.CostTime
}
