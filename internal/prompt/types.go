package prompt

// Prompt is one passage of text to be typed in a race.
type Prompt struct {
	ID     string
	Text   string
	Theme  string
	Source string // "curated" for DB rows, "builtin" for the embedded set
}
