package compose

import "github.com/mkarsten/kaltvik/internal/models"

// Eval checks one authored condition against player state. The active set
// carries the ids of currently active theories, since theory status lives on
// the board rather than on the player.
//
// Unknown condition kinds evaluate to false so that a typo in content gates
// the insert off instead of crashing the render. The content loader catches
// them at load time.
func Eval(cond models.Condition, player *models.PlayerState, active map[string]bool) bool {
	switch cond.Kind {
	case models.CondSkillGTE:
		return player.Skills[cond.Skill] >= cond.Value
	case models.CondFlagSet:
		return player.Flags[cond.Name]
	case models.CondTheoryActive:
		return active[cond.Theory]
	case models.CondTrustGTE:
		return player.Trust[cond.NPC] >= cond.Value
	case models.CondThermalMode:
		return player.ThermalMode == cond.Enabled
	case models.CondSanityLT:
		return player.Sanity < cond.Value
	case models.CondSceneVisited:
		return player.VisitedScenes[cond.Scene]
	case models.CondHasItem:
		return player.HasItem(cond.Item)
	default:
		return false
	}
}

// EvalAll reports whether every condition holds. An empty list holds.
func EvalAll(conds []models.Condition, player *models.PlayerState, active map[string]bool) bool {
	for _, cond := range conds {
		if !Eval(cond, player, active) {
			return false
		}
	}
	return true
}
