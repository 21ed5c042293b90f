package entities

import "encoding/json"

// Match is a ranked result for one query string ("need"). Similarity is
// always the raw vector-similarity component, even when Score has been
// fused with a keyword rank via RRF — threshold filtering always looks at
// Similarity, never at the fused Score.
type Match struct {
	NodeKey     string
	DataKey     string
	Description string
	Payload     json.RawMessage
	Similarity  float64
	Score       float64
	NeedIndex   int
}
