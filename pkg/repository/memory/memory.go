package memory

import (
	"github.com/secmon-lab/studypal/pkg/domain/interfaces"
)

// Repository is an alias for Memory to match the pattern
type Repository = Memory

// Memory is an in-process repository for development and tests
type Memory struct {
	chunk *chunkRepository
	note  *noteRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	return &Memory{
		chunk: newChunkRepository(),
		note:  newNoteRepository(),
	}
}

func (m *Memory) Chunk() interfaces.ChunkRepository {
	return m.chunk
}

func (m *Memory) Note() interfaces.NoteRepository {
	return m.note
}

func (m *Memory) Close() error {
	return nil
}
