package content

import (
	"log/slog"

	"github.com/mkarsten/kaltvik/internal/errors"
	"github.com/mkarsten/kaltvik/internal/models"
)

var validConditionKinds = map[models.ConditionKind]bool{
	models.CondSkillGTE:     true,
	models.CondFlagSet:      true,
	models.CondTheoryActive: true,
	models.CondTrustGTE:     true,
	models.CondThermalMode:  true,
	models.CondSanityLT:     true,
	models.CondSceneVisited: true,
	models.CondHasItem:      true,
}

var validInsertPositions = map[models.InsertPosition]bool{
	models.AfterBase:      true,
	models.AfterLens:      true,
	models.BeforeChoices:  true,
	models.MidParagraph:   true,
	models.AfterParagraph: true,
}

var validEffectOps = map[models.EffectOp]bool{
	models.OpSetFlag:           true,
	models.OpModifySanity:      true,
	models.OpModifyReality:     true,
	models.OpModifyTrust:       true,
	models.OpModifyAttention:   true,
	models.OpAdvanceTime:       true,
	models.OpAddItem:           true,
	models.OpRemoveItem:        true,
	models.OpAddClue:           true,
	models.OpSetSkill:          true,
	models.OpCollectEvidence:   true,
	models.OpInternalizeTheory: true,
}

// Validate checks the whole catalog for authoring defects. It fails fast
// with the offending id so broken content never reaches a session.
func (c *Catalog) Validate() error {
	theoryIDs := map[string]bool{}
	for _, theory := range c.theories {
		if theory.ID == "" {
			return errors.Wrap(models.ErrConfig, "theory without id", slog.String("name", theory.Name))
		}
		if theoryIDs[theory.ID] {
			return errors.Wrap(models.ErrConfig, "duplicate theory id", slog.String("theoryID", theory.ID))
		}
		theoryIDs[theory.ID] = true
	}

	for id, scene := range c.scenes {
		if err := c.validateScene(id, scene, theoryIDs); err != nil {
			return err
		}
	}
	for _, theory := range c.theories {
		for _, conflictID := range theory.ConflictsWith {
			if !theoryIDs[conflictID] {
				return errors.Wrap(models.ErrConfig, "theory conflicts with unknown theory",
					slog.String("theoryID", theory.ID), slog.String("conflictID", conflictID))
			}
		}
		for _, effect := range theory.OnInternalize {
			if !validEffectOps[effect.Op] ||
				effect.Op == models.OpCollectEvidence || effect.Op == models.OpInternalizeTheory {
				return errors.Wrap(models.ErrConfig, "theory has unknown effect op",
					slog.String("theoryID", theory.ID), slog.String("op", string(effect.Op)))
			}
		}
	}

	if c.StartScene != "" {
		if _, ok := c.scenes[c.StartScene]; !ok {
			return errors.Wrap(models.ErrConfig, "start scene does not exist",
				slog.String("sceneID", c.StartScene))
		}
	}
	return nil
}

func (c *Catalog) validateScene(id string, scene *models.Scene, theoryIDs map[string]bool) error {
	// Dead ends trap the player; every non-terminal scene needs an exit.
	if !scene.Ending && len(scene.Choices) == 0 {
		return errors.Wrap(models.ErrConfig, "scene has no choices", slog.String("sceneID", id))
	}

	for _, cond := range scene.Prereqs {
		if !validConditionKinds[cond.Kind] {
			return errors.Wrap(models.ErrConfig, "scene has unknown prereq kind",
				slog.String("sceneID", id), slog.String("kind", string(cond.Kind)))
		}
	}

	for _, insert := range scene.Text.Inserts {
		if !validInsertPositions[insert.InsertAt] {
			return errors.Wrap(models.ErrConfig, "insert has unknown position",
				slog.String("sceneID", id), slog.String("insertID", insert.ID),
				slog.String("position", string(insert.InsertAt)))
		}
		if !validConditionKinds[insert.Condition.Kind] {
			return errors.Wrap(models.ErrConfig, "insert has unknown condition kind",
				slog.String("sceneID", id), slog.String("insertID", insert.ID),
				slog.String("kind", string(insert.Condition.Kind)))
		}
	}

	for i, choice := range scene.Choices {
		if choice.NextScene == "" {
			return errors.Wrap(models.ErrConfig, "choice without target scene",
				slog.String("sceneID", id), slog.Int("choice", i))
		}
		if _, ok := c.scenes[choice.NextScene]; !ok {
			return errors.Wrap(models.ErrConfig, "choice targets unknown scene",
				slog.String("sceneID", id), slog.String("target", choice.NextScene))
		}
		if choice.Check != nil {
			if choice.Check.Skill == "" {
				return errors.Wrap(models.ErrConfig, "check without skill",
					slog.String("sceneID", id), slog.Int("choice", i))
			}
			if choice.Check.DC < 2 || choice.Check.DC > 20 {
				return errors.Wrap(models.ErrConfig, "check DC out of range",
					slog.String("sceneID", id), slog.Int("choice", i), slog.Int("dc", choice.Check.DC))
			}
			if choice.Check.FailScene != "" {
				if _, ok := c.scenes[choice.Check.FailScene]; !ok {
					return errors.Wrap(models.ErrConfig, "check fail scene does not exist",
						slog.String("sceneID", id), slog.String("target", choice.Check.FailScene))
				}
			}
		}
		for _, cond := range choice.Prereqs {
			if !validConditionKinds[cond.Kind] {
				return errors.Wrap(models.ErrConfig, "choice has unknown prereq kind",
					slog.String("sceneID", id), slog.String("kind", string(cond.Kind)))
			}
		}
		internalizes := 0
		for _, effect := range choice.Effects {
			if !validEffectOps[effect.Op] {
				return errors.Wrap(models.ErrConfig, "choice has unknown effect op",
					slog.String("sceneID", id), slog.String("op", string(effect.Op)))
			}
			if effect.Op == models.OpCollectEvidence {
				if _, ok := c.evidence[effect.Name]; !ok {
					return errors.Wrap(models.ErrConfig, "choice collects unknown evidence",
						slog.String("sceneID", id), slog.String("evidenceID", effect.Name))
				}
			}
			if effect.Op == models.OpInternalizeTheory {
				if !theoryIDs[effect.Name] {
					return errors.Wrap(models.ErrConfig, "choice internalizes unknown theory",
						slog.String("sceneID", id), slog.String("theoryID", effect.Name))
				}
				internalizes++
			}
		}
		// One per choice: a later internalize failing mid-list would leave
		// the earlier one's board changes behind a discarded player commit.
		if internalizes > 1 {
			return errors.Wrap(models.ErrConfig, "choice internalizes more than one theory",
				slog.String("sceneID", id), slog.Int("choice", i))
		}
	}
	return nil
}
