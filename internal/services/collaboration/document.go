package collaboration

import (
	"fmt"
	"sync"

	"quantum-collab/internal/models"
)

/*
Document state is last-writer-wins with one version counter per project.
Two clients editing against the same version race for the lock: the first
edit is applied, the second gets a SyncRequiredError and must retry
against fresh state. There is no transform or merge step.
*/

type documentState struct {
	content []rune
	edits   []models.Edit
}

// DocumentStore owns the shared buffers of every project
type DocumentStore struct {
	docs map[string]*documentState
	mu   sync.Mutex
}

func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		docs: make(map[string]*documentState),
	}
}

// get returns the document for projectID, creating it if needed. Caller holds mu.
func (s *DocumentStore) get(projectID string) *documentState {
	doc, ok := s.docs[projectID]
	if !ok {
		doc = &documentState{content: []rune{}}
		s.docs[projectID] = doc
	}
	return doc
}

// Has reports whether the project already has in-memory state
func (s *DocumentStore) Has(projectID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.docs[projectID]
	return ok
}

// GetOrCreate returns a copy of the project's state
func (s *DocumentStore) GetOrCreate(projectID string) models.DocumentState {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.get(projectID)
	edits := make([]models.Edit, len(doc.edits))
	copy(edits, doc.edits)

	return models.DocumentState{
		ProjectID: projectID,
		Content:   string(doc.content),
		Version:   len(doc.edits),
		Edits:     edits,
	}
}

// Snapshot returns content and version only
func (s *DocumentStore) Snapshot(projectID string) models.DocumentSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.get(projectID)
	return models.DocumentSnapshot{
		Content: string(doc.content),
		Version: len(doc.edits),
	}
}

// Seed installs a persisted state for a project that has none in memory yet.
// It returns false if the project is already live.
func (s *DocumentStore) Seed(state models.DocumentState) (bool, error) {
	if state.Version != len(state.Edits) {
		return false, fmt.Errorf("seed %s: version %d does not match %d edits",
			state.ProjectID, state.Version, len(state.Edits))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[state.ProjectID]; ok {
		return false, nil
	}

	edits := make([]models.Edit, len(state.Edits))
	copy(edits, state.Edits)
	s.docs[state.ProjectID] = &documentState{
		content: []rune(state.Content),
		edits:   edits,
	}
	return true, nil
}

// TryApplyEdit applies edit if clientVersion matches the current version
// and returns the new version. A stale version yields *SyncRequiredError and
// leaves the document untouched.
func (s *DocumentStore) TryApplyEdit(projectID string, edit models.Edit, clientVersion int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.get(projectID)
	current := len(doc.edits)

	if clientVersion != current {
		return current, &SyncRequiredError{
			CurrentVersion: current,
			State: models.DocumentSnapshot{
				Content: string(doc.content),
				Version: current,
			},
		}
	}

	if edit.Operation != models.EditInsert && edit.Operation != models.EditDelete {
		// replace has no defined payload shape (a single content field
		// cannot carry both old and new text), so it is refused.
		return current, fmt.Errorf("%w: %q", ErrUnsupportedOperation, edit.Operation)
	}

	payload := []rune(edit.Content)
	pos := edit.Position
	if pos < 0 || pos > len(doc.content) {
		return current, fmt.Errorf("%w: %d not in [0, %d]", ErrInvalidPosition, pos, len(doc.content))
	}

	switch edit.Operation {
	case models.EditInsert:
		next := make([]rune, 0, len(doc.content)+len(payload))
		next = append(next, doc.content[:pos]...)
		next = append(next, payload...)
		next = append(next, doc.content[pos:]...)
		doc.content = next

	case models.EditDelete:
		end := pos + len(payload)
		if end > len(doc.content) {
			return current, fmt.Errorf("%w: delete of %d runes at %d exceeds length %d",
				ErrInvalidPosition, len(payload), pos, len(doc.content))
		}
		next := make([]rune, 0, len(doc.content)-len(payload))
		next = append(next, doc.content[:pos]...)
		next = append(next, doc.content[end:]...)
		doc.content = next
	}

	doc.edits = append(doc.edits, edit)
	return len(doc.edits), nil
}

// EditsSince returns the state snapshot and the edits applied after version
func (s *DocumentStore) EditsSince(projectID string, version int) (models.DocumentSnapshot, []models.Edit) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[projectID]
	if !ok {
		return models.DocumentSnapshot{}, nil
	}

	snap := models.DocumentSnapshot{Content: string(doc.content), Version: len(doc.edits)}
	if version < 0 {
		version = 0
	}
	if version >= len(doc.edits) {
		return snap, nil
	}

	edits := make([]models.Edit, len(doc.edits)-version)
	copy(edits, doc.edits[version:])
	return snap, edits
}

// Projects lists every project with in-memory state
func (s *DocumentStore) Projects() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.docs))
	for id := range s.docs {
		ids = append(ids, id)
	}
	return ids
}
