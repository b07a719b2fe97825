package model

// Property is a single key/value metadata fact attached to a document.
type Property struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}
