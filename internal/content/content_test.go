package content_test

import (
	"io"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkarsten/kaltvik/internal/content"
	"github.com/mkarsten/kaltvik/internal/models"
	"github.com/mkarsten/kaltvik/internal/testhelpers"
)

func fsysWith(files map[string]string) fstest.MapFS {
	fsys := fstest.MapFS{}
	for name, data := range files {
		fsys[name] = &fstest.MapFile{Data: []byte(data)}
	}
	return fsys
}

const cabinScene = `{
  "id": "cabin",
  "location": "Cabin",
  "time_cost": 10,
  "text": {
    "base": "The cabin is cold.\n\nFrost covers the window.",
    "inserts": [
      {
        "id": "frost-detail",
        "condition": {"kind": "skill_gte", "skill": "Wits", "value": 2},
        "text": "The frost forms a spiral.",
        "insert_at": "AFTER_PARAGRAPH:1"
      }
    ]
  },
  "choices": [
    {"label": "Step outside", "next_scene": "yard"}
  ]
}`

const yardScene = `{
  "id": "yard",
  "location": "Yard",
  "text": {"base": "Snow, unbroken."},
  "choices": [
    {
      "label": "Force the shed door",
      "next_scene": "shed",
      "check": {"skill": "Brawn", "dc": 9, "partial_cost": "noise", "fail_scene": "yard"},
      "effects": [{"op": "add_evidence", "name": "ev-bootprint"}]
    },
    {"label": "Go back in", "next_scene": "cabin"}
  ]
}`

const shedScene = `{
  "id": "shed",
  "location": "Shed",
  "text": {"base": "Tools hang in rows."},
  "ending": true
}`

func validFS() fstest.MapFS {
	return fsysWith(map[string]string{
		"scenes/cabin.json": cabinScene,
		"scenes/yard.json":  yardScene,
		"scenes/shed.json":  shedScene,
		"theories.json": `[
  {"id": "th-intruder", "name": "Someone else is here"},
  {"id": "th-alone", "name": "You are alone", "conflicts_with": ["th-intruder"]}
]`,
		"evidence.json": `[
  {"id": "ev-bootprint", "name": "Boot print", "type": "physical",
   "links_to_theories": [{"theory_id": "th-intruder", "relation": "supports"}]}
]`,
		"manifest.json": `{"start_scene": "cabin"}`,
	})
}

func TestLoad(t *testing.T) {
	t.Parallel()

	logger := testhelpers.NewLogger(io.Discard)
	catalog, err := content.Load(validFS(), logger)
	require.NoError(t, err)

	assert.Equal(t, "cabin", catalog.StartScene)
	assert.Len(t, catalog.Scenes(), 3)
	assert.Len(t, catalog.Theories(), 2)

	cabin, ok := catalog.Scene("cabin")
	require.True(t, ok)
	require.Len(t, cabin.Text.Inserts, 1)
	insert := cabin.Text.Inserts[0]
	assert.Equal(t, models.AfterParagraph, insert.InsertAt, "AFTER_PARAGRAPH:n did not split into position")
	assert.Equal(t, 1, insert.Paragraph)

	ev, ok := catalog.EvidenceByID("ev-bootprint")
	require.True(t, ok)
	assert.Equal(t, "th-intruder", ev.Links[0].TheoryID)
}

func TestLoadSceneList(t *testing.T) {
	t.Parallel()

	fsys := fsysWith(map[string]string{
		"scenes/all.json": `[
  {"id": "one", "location": "A", "text": {"base": "a"}, "choices": [{"label": "go", "next_scene": "two"}]},
  {"id": "two", "location": "B", "text": {"base": "b"}, "ending": true}
]`,
	})
	catalog, err := content.Load(fsys, testhelpers.NewLogger(io.Discard))
	require.NoError(t, err)
	assert.Len(t, catalog.Scenes(), 2)
}

func TestLoadRejectsBrokenContent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(fsys fstest.MapFS)
		wantMsg string
	}{
		{
			name: "dead end scene",
			mutate: func(fsys fstest.MapFS) {
				fsys["scenes/shed.json"] = &fstest.MapFile{Data: []byte(
					`{"id": "shed", "location": "Shed", "text": {"base": "Tools."}}`)}
			},
			wantMsg: "scene has no choices",
		},
		{
			name: "choice targets unknown scene",
			mutate: func(fsys fstest.MapFS) {
				fsys["scenes/shed.json"] = &fstest.MapFile{Data: []byte(
					`{"id": "shed", "location": "Shed", "text": {"base": "Tools."},
					  "choices": [{"label": "leave", "next_scene": "nowhere"}]}`)}
			},
			wantMsg: "choice targets unknown scene",
		},
		{
			name: "check DC out of range",
			mutate: func(fsys fstest.MapFS) {
				fsys["scenes/yard.json"] = &fstest.MapFile{Data: []byte(
					`{"id": "yard", "location": "Yard", "text": {"base": "Snow."},
					  "choices": [{"label": "force", "next_scene": "shed",
					    "check": {"skill": "Brawn", "dc": 25}}]}`)}
			},
			wantMsg: "check DC out of range",
		},
		{
			name: "unknown effect op",
			mutate: func(fsys fstest.MapFS) {
				fsys["scenes/yard.json"] = &fstest.MapFile{Data: []byte(
					`{"id": "yard", "location": "Yard", "text": {"base": "Snow."},
					  "choices": [{"label": "force", "next_scene": "shed",
					    "effects": [{"op": "summon_demon"}]}]}`)}
			},
			wantMsg: "choice has unknown effect op",
		},
		{
			name: "collects unknown evidence",
			mutate: func(fsys fstest.MapFS) {
				fsys["scenes/yard.json"] = &fstest.MapFile{Data: []byte(
					`{"id": "yard", "location": "Yard", "text": {"base": "Snow."},
					  "choices": [{"label": "force", "next_scene": "shed",
					    "effects": [{"op": "add_evidence", "name": "ev-ghost"}]}]}`)}
			},
			wantMsg: "choice collects unknown evidence",
		},
		{
			name: "unknown insert position",
			mutate: func(fsys fstest.MapFS) {
				fsys["scenes/cabin.json"] = &fstest.MapFile{Data: []byte(
					`{"id": "cabin", "location": "Cabin",
					  "text": {"base": "Cold.", "inserts": [
					    {"id": "x", "condition": {"kind": "flag_set", "name": "f"},
					     "text": "t", "insert_at": "SIDEWAYS"}]},
					  "choices": [{"label": "out", "next_scene": "yard"}]}`)}
			},
			wantMsg: "insert has unknown position",
		},
		{
			name: "theory conflicts with unknown theory",
			mutate: func(fsys fstest.MapFS) {
				fsys["theories.json"] = &fstest.MapFile{Data: []byte(
					`[{"id": "th-alone", "name": "Alone", "conflicts_with": ["th-phantom"]}]`)}
				fsys["evidence.json"] = &fstest.MapFile{Data: []byte(`[
  {"id": "ev-bootprint", "name": "Boot print", "type": "physical"}]`)}
			},
			wantMsg: "theory conflicts with unknown theory",
		},
		{
			name: "internalizes unknown theory",
			mutate: func(fsys fstest.MapFS) {
				fsys["scenes/yard.json"] = &fstest.MapFile{Data: []byte(
					`{"id": "yard", "location": "Yard", "text": {"base": "Snow."},
					  "choices": [{"label": "decide", "next_scene": "shed",
					    "effects": [{"op": "internalize_theory", "name": "th-phantom"}]}]}`)}
			},
			wantMsg: "choice internalizes unknown theory",
		},
		{
			name: "internalizes more than one theory",
			mutate: func(fsys fstest.MapFS) {
				fsys["scenes/yard.json"] = &fstest.MapFile{Data: []byte(
					`{"id": "yard", "location": "Yard", "text": {"base": "Snow."},
					  "choices": [{"label": "decide", "next_scene": "shed",
					    "effects": [
					      {"op": "internalize_theory", "name": "th-intruder"},
					      {"op": "internalize_theory", "name": "th-alone"}]}]}`)}
			},
			wantMsg: "choice internalizes more than one theory",
		},
		{
			name: "theory internalizes a theory",
			mutate: func(fsys fstest.MapFS) {
				fsys["theories.json"] = &fstest.MapFile{Data: []byte(
					`[{"id": "th-alone", "name": "Alone", "on_internalize_effects": [
					    {"op": "internalize_theory", "name": "th-alone"}]}]`)}
			},
			wantMsg: "theory has unknown effect op",
		},
		{
			name: "start scene does not exist",
			mutate: func(fsys fstest.MapFS) {
				fsys["manifest.json"] = &fstest.MapFile{Data: []byte(`{"start_scene": "limbo"}`)}
			},
			wantMsg: "start scene does not exist",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fsys := validFS()
			tt.mutate(fsys)
			_, err := content.Load(fsys, testhelpers.NewLogger(io.Discard))
			require.ErrorIs(t, err, models.ErrConfig)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestLoadDuplicateSceneID(t *testing.T) {
	t.Parallel()

	fsys := validFS()
	fsys["scenes/zz.json"] = &fstest.MapFile{Data: []byte(shedScene)}
	_, err := content.Load(fsys, testhelpers.NewLogger(io.Discard))
	require.ErrorIs(t, err, models.ErrConfig)
	assert.Contains(t, err.Error(), "duplicate scene id")
}
