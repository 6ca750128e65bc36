package runlog

// Run statuses.
const (
	StatusRunning = "running"
	StatusOK      = "ok"
	StatusFailed  = "failed"
)

// Artifact kinds.
const (
	KindPNG = "png"
	KindPDF = "pdf"
	KindDOM = "dom"
)

// Run is one recorded scenario run.
type Run struct {
	ID         string `json:"id"`
	Scenario   string `json:"scenario"`
	URL        string `json:"url"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	StartedAt  int64  `json:"started_at"`  // ms
	FinishedAt *int64 `json:"finished_at,omitempty"` // ms, nil while running
}

// Artifact is one file produced by a run.
type Artifact struct {
	ID        int64  `json:"id"`
	RunID     string `json:"run_id"`
	Kind      string `json:"kind"`
	Path      string `json:"path"`
	Bytes     int64  `json:"bytes"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	Pages     int    `json:"pages,omitempty"`
	CreatedAt int64  `json:"created_at"` // ms
}

// Event is one step-level trace entry within a run.
type Event struct {
	ID        int64  `json:"id"`
	RunID     string `json:"run_id"`
	Seq       int    `json:"seq"`
	Step      string `json:"step"`
	Detail    string `json:"detail,omitempty"`
	Error     string `json:"error,omitempty"`
	ElapsedMs int64  `json:"elapsed_ms"`
	CreatedAt int64  `json:"created_at"` // ms
}
