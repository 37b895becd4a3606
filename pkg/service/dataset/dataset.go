package dataset

import (
	_ "embed"
	"os"
	"sort"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/secmon-lab/studypal/pkg/domain/model"
)

//go:embed default.toml
var defaultDataset []byte

// Dataset holds reference text per subject for topic quizzes
type Dataset struct {
	entries []model.DatasetEntry
}

type file struct {
	Entries []model.DatasetEntry `toml:"entry"`
}

// Parse decodes a TOML dataset with [[entry]] tables of subject and text
func Parse(data []byte) (*Dataset, error) {
	var f file
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, goerr.Wrap(err, "failed to parse dataset")
	}

	for i, e := range f.Entries {
		if strings.TrimSpace(e.Subject) == "" {
			return nil, goerr.New("dataset entry has no subject", goerr.V("index", i))
		}
	}
	return &Dataset{entries: f.Entries}, nil
}

// Load reads a dataset file. An empty path loads the built-in dataset.
func Load(path string) (*Dataset, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read dataset file", goerr.V("path", path))
	}

	ds, err := Parse(data)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid dataset file", goerr.V("path", path))
	}
	return ds, nil
}

// Default returns the built-in dataset
func Default() *Dataset {
	ds, err := Parse(defaultDataset)
	if err != nil {
		panic("built-in dataset is invalid: " + err.Error())
	}
	return ds
}

// TextFor joins the text of every entry whose subject contains topic, ignoring case.
// It returns false when no entry matches or the matched text is blank.
func (d *Dataset) TextFor(topic string) (string, bool) {
	topic = strings.ToLower(strings.TrimSpace(topic))
	if topic == "" {
		return "", false
	}

	var parts []string
	for _, e := range d.entries {
		if strings.Contains(strings.ToLower(e.Subject), topic) {
			if text := strings.TrimSpace(e.Text); text != "" {
				parts = append(parts, text)
			}
		}
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, " "), true
}

// Subjects returns the distinct subjects in sorted order
func (d *Dataset) Subjects() []string {
	seen := make(map[string]struct{})
	var subjects []string
	for _, e := range d.entries {
		if _, ok := seen[e.Subject]; ok {
			continue
		}
		seen[e.Subject] = struct{}{}
		subjects = append(subjects, e.Subject)
	}
	sort.Strings(subjects)
	return subjects
}
