package assistant

import "time"

// Source is a document section an answer was grounded on.
type Source struct {
	Index      int     `json:"index"`
	HeaderPath string  `json:"header_path,omitempty"`
	Score      float64 `json:"score"`
	Excerpt    string  `json:"excerpt"`
}

// Answer is the reply to one question.
type Answer struct {
	Text     string
	Sources  []Source
	Duration time.Duration
}
