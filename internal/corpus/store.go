// File path: internal/corpus/store.go
package corpus

import "sync"

// Store holds the authoritative set of chunks. The lexical index and any
// vector-side caches are projections of this set and are rebuilt from it
// after every mutation. Reads return copied snapshots so concurrent queries
// never observe a mutation in progress.
type Store struct {
	mu     sync.RWMutex
	chunks []Chunk
	byID   map[string]int
}

func NewStore() *Store {
	return &Store{byID: make(map[string]int)}
}

// Append adds chunks to the corpus. A chunk whose id is already present
// replaces the stored copy rather than duplicating it.
func (s *Store) Append(chunks []Chunk) {
	if len(chunks) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, chunk := range chunks {
		if idx, ok := s.byID[chunk.ID]; ok {
			s.chunks[idx] = chunk
			continue
		}
		s.byID[chunk.ID] = len(s.chunks)
		s.chunks = append(s.chunks, chunk)
	}
}

// Replace swaps the entire corpus for the provided chunks. Used when
// rehydrating from the vector backend at startup.
func (s *Store) Replace(chunks []Chunk) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = make([]Chunk, 0, len(chunks))
	s.byID = make(map[string]int, len(chunks))
	for _, chunk := range chunks {
		if _, ok := s.byID[chunk.ID]; ok {
			continue
		}
		s.byID[chunk.ID] = len(s.chunks)
		s.chunks = append(s.chunks, chunk)
	}
}

// Clear removes every chunk. Bulk clear is the only deletion primitive.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = nil
	s.byID = make(map[string]int)
}

// Snapshot returns a copy of the current chunk sequence in insertion order.
func (s *Store) Snapshot() []Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.chunks) == 0 {
		return nil
	}
	out := make([]Chunk, len(s.chunks))
	copy(out, s.chunks)
	return out
}

// Get returns the chunk with the given id.
func (s *Store) Get(id string) (Chunk, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byID[id]
	if !ok {
		return Chunk{}, false
	}
	return s.chunks[idx], true
}

// Len reports the number of chunks in the corpus.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// WithEmbeddings reports how many chunks carry a cached dense vector.
func (s *Store) WithEmbeddings() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, chunk := range s.chunks {
		if chunk.HasEmbedding() {
			count++
		}
	}
	return count
}
