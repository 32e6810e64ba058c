package harness

// TickCounts are the counters of one scheduler tick.
type TickCounts struct {
	Resumed    int `json:"resumed"`
	Abandoned  int `json:"abandoned"`
	Deferred   int `json:"deferred"`
	Locked     int `json:"locked"`
	Dispatched int `json:"dispatched"`
}

func (c TickCounts) get(name string) int {
	switch name {
	case "resumed":
		return c.Resumed
	case "abandoned":
		return c.Abandoned
	case "deferred":
		return c.Deferred
	case "locked":
		return c.Locked
	case "dispatched":
		return c.Dispatched
	}
	return -1
}

// EntryState is a stored entry with its source reduced to a name relative
// to the watch directory.
type EntryState struct {
	ID           int64  `json:"id"`
	Content      string `json:"content"`
	CreationDate string `json:"creation_date"`
	File         string `json:"file"`
}

// State is what the directories, the WAL and the database hold after the
// last tick. All lists are sorted.
type State struct {
	Watch   []string     `json:"watch"`
	Success []string     `json:"success"`
	Fail    []string     `json:"fail"`
	Pending []string     `json:"pending"`
	Entries []EntryState `json:"entries"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	Ticks []TickCounts `json:"ticks"`
	State State        `json:"state"`

	// Errors holds one message per failed assertion.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Ticks:  []TickCounts{},
		Errors: []string{},
	}
}

// AddError records a failed assertion and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
