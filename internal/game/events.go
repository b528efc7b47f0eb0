package game

// EventKind names an entry in the session event log.
type EventKind string

const (
	EventSceneEntered       EventKind = "scene_entered"
	EventCheckResolved      EventKind = "check_resolved"
	EventChoiceTaken        EventKind = "choice_taken"
	EventEvidenceCollected  EventKind = "evidence_collected"
	EventTheoryUnlocked     EventKind = "theory_unlocked"
	EventTheoryInternalized EventKind = "theory_internalized"
	EventTheoryUnlearned    EventKind = "theory_unlearned"
	EventTheoryCollapsed    EventKind = "theory_collapsed"
	EventSessionEnded       EventKind = "session_ended"
	EventDebug              EventKind = "debug"
)

// Event is one append-only record of something the engine did. The log is
// the raw material for the record, playback and debugexport commands, and
// observers can stream it live through the broker.
type Event struct {
	Turn  int               `json:"turn"`
	Kind  EventKind         `json:"kind"`
	Scene string            `json:"scene,omitempty"`
	Data  map[string]string `json:"data,omitempty"`
}

// eventBuffer bounds the live observer channel. A slow observer drops
// events rather than stalling the session; the session's own log is always
// complete.
const eventBuffer = 64

func (s *Session) emit(ev Event) {
	s.Events = append(s.Events, ev)
	if s.stream == nil {
		return
	}
	select {
	case s.stream <- ev:
	default:
	}
}
