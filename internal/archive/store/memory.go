package store

import (
	"context"
	"sort"
	"sync"

	"correspondence/internal/archive/models"
	id "correspondence/pkg/domain"
	"correspondence/pkg/platform/sentinel"
	"correspondence/pkg/platform/tx"
)

type folderKey struct {
	name         string
	dependencyID id.DependencyID
}

type InMemory struct {
	mu       sync.RWMutex
	folders  map[id.FolderID]models.Folder
	names    map[folderKey]id.FolderID
	archives map[id.ArchiveID]models.Archive
	// byCommunication mirrors the unique communication_id column.
	byCommunication map[id.CommunicationID]id.ArchiveID
}

func NewInMemory() *InMemory {
	return &InMemory{
		folders:         make(map[id.FolderID]models.Folder),
		names:           make(map[folderKey]id.FolderID),
		archives:        make(map[id.ArchiveID]models.Archive),
		byCommunication: make(map[id.CommunicationID]id.ArchiveID),
	}
}

func (s *InMemory) CreateFolder(ctx context.Context, f *models.Folder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := folderKey{f.Name, f.DependencyID}
	if _, taken := s.names[key]; taken {
		return sentinel.ErrAlreadyUsed
	}
	s.folders[f.ID] = *f
	s.names[key] = f.ID
	tx.RecordUndo(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.folders, f.ID)
		delete(s.names, key)
	})
	return nil
}

func (s *InMemory) FindFolder(_ context.Context, folderID id.FolderID) (*models.Folder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.folders[folderID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &f, nil
}

func (s *InMemory) RenameFolder(ctx context.Context, folderID id.FolderID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.folders[folderID]
	if !ok {
		return sentinel.ErrNotFound
	}
	oldKey, newKey := folderKey{prev.Name, prev.DependencyID}, folderKey{name, prev.DependencyID}
	if owner, taken := s.names[newKey]; taken && owner != folderID {
		return sentinel.ErrAlreadyUsed
	}
	next := prev
	next.Name = name
	delete(s.names, oldKey)
	s.names[newKey] = folderID
	s.folders[folderID] = next
	tx.RecordUndo(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.names, newKey)
		s.names[oldKey] = folderID
		s.folders[folderID] = prev
	})
	return nil
}

// DeleteFolder refuses folders that still hold archives.
func (s *InMemory) DeleteFolder(ctx context.Context, folderID id.FolderID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.folders[folderID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if s.countLocked(folderID) > 0 {
		return sentinel.ErrNotEmpty
	}
	key := folderKey{f.Name, f.DependencyID}
	delete(s.folders, folderID)
	delete(s.names, key)
	tx.RecordUndo(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.folders[folderID] = f
		s.names[key] = folderID
	})
	return nil
}

// ListFolders returns the dependency's folders by name with archive counts.
func (s *InMemory) ListFolders(_ context.Context, dependencyID id.DependencyID) ([]*models.Folder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.Folder{}
	for _, f := range s.folders {
		if f.DependencyID != dependencyID {
			continue
		}
		f.ArchiveCount = s.countLocked(f.ID)
		out = append(out, &f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *InMemory) countLocked(folderID id.FolderID) int {
	n := 0
	for _, a := range s.archives {
		if a.FolderID != nil && *a.FolderID == folderID {
			n++
		}
	}
	return n
}

func (s *InMemory) InsertArchives(ctx context.Context, archives []*models.Archive) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range archives {
		if _, dup := s.byCommunication[a.CommunicationID]; dup {
			return sentinel.ErrAlreadyUsed
		}
		if a.FolderID != nil {
			if _, ok := s.folders[*a.FolderID]; !ok {
				return sentinel.ErrNotFound
			}
		}
	}
	for _, a := range archives {
		s.archives[a.ID] = *a
		s.byCommunication[a.CommunicationID] = a.ID
	}
	tx.RecordUndo(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, a := range archives {
			delete(s.archives, a.ID)
			delete(s.byCommunication, a.CommunicationID)
		}
	})
	return nil
}

func (s *InMemory) FindArchive(_ context.Context, archiveID id.ArchiveID) (*models.Archive, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.archives[archiveID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &a, nil
}

func (s *InMemory) DeleteArchive(ctx context.Context, archiveID id.ArchiveID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.archives[archiveID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.archives, archiveID)
	delete(s.byCommunication, a.CommunicationID)
	tx.RecordUndo(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.archives[archiveID] = a
		s.byCommunication[a.CommunicationID] = archiveID
	})
	return nil
}

// ListArchives returns the newest archives first.
func (s *InMemory) ListArchives(_ context.Context, f models.Filter) (models.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matches []models.Entry
	for _, a := range s.archives {
		if a.DependencyID != f.DependencyID {
			continue
		}
		if f.FolderID != nil && (a.FolderID == nil || *a.FolderID != *f.FolderID) {
			continue
		}
		entry := models.Entry{Archive: &a}
		if a.FolderID != nil {
			entry.FolderName = s.folders[*a.FolderID].Name
		}
		matches = append(matches, entry)
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})

	page := models.Page{Items: []models.Entry{}, Total: len(matches)}
	if f.Offset >= len(matches) {
		return page, nil
	}
	matches = matches[f.Offset:]
	if f.Limit > 0 && f.Limit < len(matches) {
		matches = matches[:f.Limit]
	}
	page.Items = matches
	return page, nil
}
