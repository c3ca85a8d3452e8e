package model

import "time"

// Challenge kinds understood by the solver.
const (
	KindSignature = "sig"
	KindNParam    = "nsig"
)

// Solver input and output type tags.
const (
	InputTypePlayer = "player"
	OutputResult    = "result"
	OutputError     = "error"
)

// Job status constants for persisted history.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Request is one group of challenges of a single kind.
// Challenges is never nil; an empty slice means nothing to decode.
type Request struct {
	Type       string   `json:"type"`
	Challenges []string `json:"challenges"`
}

// Input is the payload handed to a solver: the player script plus the
// challenges to decode. PlayerURL only labels the job for history and is
// never sent to the solver.
type Input struct {
	Type               string    `json:"type"`
	Player             string    `json:"player"`
	OutputPreprocessed bool      `json:"output_preprocessed"`
	Requests           []Request `json:"requests"`
	PlayerURL          string    `json:"-"`
}

// NewInput builds a player input with one request per kind. Empty challenge
// strings are dropped so the solver never sees them.
func NewInput(playerURL, player, signature, nParam string) Input {
	return Input{
		Type:      InputTypePlayer,
		Player:    player,
		PlayerURL: playerURL,
		Requests: []Request{
			{Type: KindSignature, Challenges: challenges(signature)},
			{Type: KindNParam, Challenges: challenges(nParam)},
		},
	}
}

func challenges(s string) []string {
	if s == "" {
		return []string{}
	}
	return []string{s}
}

// CountChallenges returns the number of challenges of the given kind.
func (in Input) CountChallenges(kind string) int {
	n := 0
	for _, r := range in.Requests {
		if r.Type == kind {
			n += len(r.Challenges)
		}
	}
	return n
}

// Response is the solver answer for one Request, in the same order.
type Response struct {
	Type  string            `json:"type"`
	Data  map[string]string `json:"data,omitempty"`
	Error string            `json:"error,omitempty"`
}

// Output is what a solver returns for an Input. Type is "result" with
// per-request Responses, or "error" with Error set for a whole-input failure.
type Output struct {
	Type      string     `json:"type"`
	Responses []Response `json:"responses,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// Lookup returns the decoded value for challenge from any successful response.
func (o Output) Lookup(challenge string) (string, bool) {
	if challenge == "" {
		return "", false
	}
	for _, r := range o.Responses {
		if r.Type != OutputResult {
			continue
		}
		if v, ok := r.Data[challenge]; ok {
			return v, true
		}
	}
	return "", false
}

// JobRecord is the persisted history of one settled job.
type JobRecord struct {
	ID         string    `json:"id"`
	Status     string    `json:"status"`
	PlayerURL  string    `json:"player_url"`
	WorkerID   int       `json:"worker_id"`
	SigCount   int       `json:"sig_count"`
	NSigCount  int       `json:"nsig_count"`
	Error      string    `json:"error,omitempty"`
	WaitMS     int       `json:"wait_ms"`
	DurationMS int       `json:"duration_ms"`
	QueuedAt   time.Time `json:"queued_at"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// PlayerEntry describes one persisted player script in the cache manifest.
type PlayerEntry struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	Size      int64     `json:"size"`
	FetchedAt time.Time `json:"fetched_at"`
}
