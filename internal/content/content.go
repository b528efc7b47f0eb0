// Package content loads and validates authored game content: scenes,
// theories and evidence. Validation is fail-fast at load time; a malformed
// definition surfaces as a config error naming the offending id rather than
// a crash mid-session.
package content

import (
	"encoding/json"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/mkarsten/kaltvik/internal/errors"
	"github.com/mkarsten/kaltvik/internal/models"
)

// Catalog is the loaded, validated content set. It is read-only after Load;
// sessions share one catalog.
type Catalog struct {
	StartScene string
	scenes     map[string]*models.Scene
	theories   []models.Theory
	evidence   map[string]models.Evidence
}

// manifest is the optional catalog-level configuration file.
type manifest struct {
	StartScene string `json:"start_scene"`
}

// Load reads a content tree: scenes/*.json (one scene or a list per file),
// theories.json, evidence.json and an optional manifest.json naming the
// start scene.
func Load(fsys fs.FS, logger *slog.Logger) (*Catalog, error) {
	catalog := &Catalog{
		StartScene: "",
		scenes:     map[string]*models.Scene{},
		theories:   nil,
		evidence:   map[string]models.Evidence{},
	}

	sceneFiles, err := fs.Glob(fsys, "scenes/*.json")
	if err != nil {
		return nil, errors.Wrap(err, "glob scenes")
	}
	for _, name := range sceneFiles {
		if err = catalog.loadScenes(fsys, name); err != nil {
			return nil, err
		}
	}

	if err = catalog.loadTheories(fsys, "theories.json"); err != nil {
		return nil, err
	}
	if err = catalog.loadEvidence(fsys, "evidence.json", logger); err != nil {
		return nil, err
	}

	var m manifest
	if data, readErr := fs.ReadFile(fsys, "manifest.json"); readErr == nil {
		if err = json.Unmarshal(data, &m); err != nil {
			return nil, errors.Wrap(models.ErrConfig, "malformed manifest.json")
		}
		catalog.StartScene = m.StartScene
	}

	if err = catalog.Validate(); err != nil {
		return nil, err
	}
	return catalog, nil
}

func (c *Catalog) loadScenes(fsys fs.FS, name string) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return errors.Wrap(err, "read scene file", slog.String("file", name))
	}

	var scenes []models.Scene
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		if err = json.Unmarshal(data, &scenes); err != nil {
			return errors.Wrap(models.ErrConfig, "malformed scene file", slog.String("file", name))
		}
	} else {
		var scene models.Scene
		if err = json.Unmarshal(data, &scene); err != nil {
			return errors.Wrap(models.ErrConfig, "malformed scene file", slog.String("file", name))
		}
		scenes = append(scenes, scene)
	}

	for i := range scenes {
		scene := scenes[i]
		if scene.ID == "" {
			return errors.Wrap(models.ErrConfig, "scene without id", slog.String("file", name))
		}
		if _, ok := c.scenes[scene.ID]; ok {
			return errors.Wrap(models.ErrConfig, "duplicate scene id", slog.String("sceneID", scene.ID))
		}
		c.scenes[scene.ID] = &scene
	}
	return nil
}

func (c *Catalog) loadTheories(fsys fs.FS, name string) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		// Theories are optional content.
		return nil
	}
	if err = json.Unmarshal(data, &c.theories); err != nil {
		return errors.Wrap(models.ErrConfig, "malformed theories.json")
	}
	return nil
}

func (c *Catalog) loadEvidence(fsys fs.FS, name string, logger *slog.Logger) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil
	}
	var evidence []models.Evidence
	if err = json.Unmarshal(data, &evidence); err != nil {
		return errors.Wrap(models.ErrConfig, "malformed evidence.json")
	}
	for _, ev := range evidence {
		if ev.ID == "" {
			return errors.Wrap(models.ErrConfig, "evidence without id", slog.String("name", ev.Name))
		}
		if _, ok := c.evidence[ev.ID]; ok {
			return errors.Wrap(models.ErrConfig, "duplicate evidence id", slog.String("evidenceID", ev.ID))
		}
		theoryIDs := map[string]bool{}
		for _, theory := range c.theories {
			theoryIDs[theory.ID] = true
		}
		for _, link := range ev.Links {
			if !theoryIDs[link.TheoryID] {
				// Out-of-order authoring is allowed; the board skips the
				// link at collection time too.
				logger.Warn("evidence links to unknown theory",
					"evidenceID", ev.ID, "theoryID", link.TheoryID)
			}
		}
		c.evidence[ev.ID] = ev
	}
	return nil
}

// Scene returns a scene by id.
func (c *Catalog) Scene(id string) (*models.Scene, bool) {
	scene, ok := c.scenes[id]
	return scene, ok
}

// Scenes returns the scene map. Callers must treat it as read-only.
func (c *Catalog) Scenes() map[string]*models.Scene {
	return c.scenes
}

// Theories returns the theory definitions in authored order.
func (c *Catalog) Theories() []models.Theory {
	return c.theories
}

// EvidenceByID returns an evidence definition.
func (c *Catalog) EvidenceByID(id string) (models.Evidence, bool) {
	ev, ok := c.evidence[id]
	return ev, ok
}
