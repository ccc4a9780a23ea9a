package models

// SliderValues are the four design-preference modifiers attached to a
// submission, each 0-100.
type SliderValues struct {
	Sunlight float64 `json:"sunlight"`
	Movement float64 `json:"movement"`
	Privacy  float64 `json:"privacy"`
	Harmony  float64 `json:"harmony"`
}

// Prompts is the free-text portion of a submission.
type Prompts struct {
	MainSubject  string       `json:"mainSubject"`
	Context      string       `json:"context"`
	Avoid        string       `json:"avoid"`
	SliderValues SliderValues `json:"sliderValues"`
}

// Submission is one saved canvas result: where it was made, the generated
// image, and the prompts that produced it.
type Submission struct {
	Timestamp string  `json:"timestamp"`
	Location  LatLng  `json:"location"`
	ImageURL  string  `json:"imageUrl"`
	Prompts   Prompts `json:"prompts"`
}

// VoteCount tracks up/down votes for a single submission, keyed by the
// submission timestamp.
type VoteCount struct {
	Upvotes   int `json:"upvotes"`
	Downvotes int `json:"downvotes"`
}

// Votes is the full vote table as stored and served.
type Votes map[string]VoteCount
