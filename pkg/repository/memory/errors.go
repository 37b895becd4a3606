package memory

import "github.com/secmon-lab/studypal/pkg/domain/model"

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = model.ErrNotFound
