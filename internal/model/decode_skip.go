package model

// DecodeSkip records a page entry that was dropped during decoding.
type DecodeSkip struct {
	Kind  string `json:"kind"`
	Index int    `json:"index"`
	Key   string `json:"key,omitempty"`
	Raw   string `json:"raw"`
	Error string `json:"error"`
}
