package model

// DatasetEntry is a block of reference text for a subject in the topic dataset
type DatasetEntry struct {
	Subject string `toml:"subject"`
	Text    string `toml:"text"`
}
