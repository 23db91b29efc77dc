package workflow

// Stage is the position of a run in the workflow.
//
// A run only moves forward: Idle → Loaded → Trained → Evaluated →
// Predicted → Saved → Done. A failed step leaves the run at the last
// completed stage.
type Stage int

const (
	Idle Stage = iota
	Loaded
	Trained
	Evaluated
	Predicted
	Saved
	Done
)

var stageNames = [...]string{"Idle", "Loaded", "Trained", "Evaluated", "Predicted", "Saved", "Done"}

func (s Stage) String() string {
	if s < Idle || s > Done {
		return "Unknown"
	}
	return stageNames[s]
}

// MarshalText encodes the stage by name.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
