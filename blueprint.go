package stageflow

// Stage is a named state that a Run may occupy.
type Stage struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	IsInitial   bool   `json:"is_initial"`
	IsFinal     bool   `json:"is_final"`
	Enabled     bool   `json:"enabled"`
	Description string `json:"description,omitempty"`
}

// Step is a directed transition between stages. A step may be legal from more than one source stage but always
// lands on a single target stage.
type Step struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Enabled    bool     `json:"enabled"`
	FromStages []string `json:"from_stages"`
	ToStage    string   `json:"to_stage"`
}

// Blueprint defines the legal stages and steps of a process type. Once registered it is treated as read-only and
// runs refer to it by ID only.
type Blueprint struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Stages []Stage `json:"stages"`
	Steps  []Step  `json:"steps"`
}

// Stage returns the stage with the provided id.
func (b *Blueprint) Stage(id string) (Stage, bool) {
	for _, s := range b.Stages {
		if s.ID == id {
			return s, true
		}
	}

	return Stage{}, false
}

// Step returns the step with the provided id.
func (b *Blueprint) Step(id string) (Step, bool) {
	for _, s := range b.Steps {
		if s.ID == id {
			return s, true
		}
	}

	return Step{}, false
}

// InitialStage returns the first stage flagged as initial. Registered blueprints have exactly one.
func (b *Blueprint) InitialStage() (Stage, bool) {
	for _, s := range b.Stages {
		if s.IsInitial {
			return s, true
		}
	}

	return Stage{}, false
}

// Clone returns a deep copy so that stores never share slices with their callers.
func (b *Blueprint) Clone() *Blueprint {
	if b == nil {
		return nil
	}

	c := &Blueprint{
		ID:   b.ID,
		Name: b.Name,
	}

	if b.Stages != nil {
		c.Stages = make([]Stage, len(b.Stages))
		copy(c.Stages, b.Stages)
	}

	if b.Steps != nil {
		c.Steps = make([]Step, len(b.Steps))
		for i, s := range b.Steps {
			c.Steps[i] = s
			if s.FromStages != nil {
				c.Steps[i].FromStages = append([]string(nil), s.FromStages...)
			}
		}
	}

	return c
}

func (s Step) allowedFrom(stageID string) bool {
	for _, from := range s.FromStages {
		if from == stageID {
			return true
		}
	}

	return false
}
