package testsupport

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"auctionload/internal/source"
)

// MemoryFolder is an in-memory source.Folder. Fail* fields inject errors.
type MemoryFolder struct {
	mu      sync.Mutex
	files   map[string]*memoryFile
	trash   map[string]string
	nextID  int
	created int

	FailList  error
	FailRead  map[string]error
	FailWrite error
	FailMark  error
}

type memoryFile struct {
	file    source.File
	content string
	order   int
}

// NewMemoryFolder returns an empty folder.
func NewMemoryFolder() *MemoryFolder {
	return &MemoryFolder{
		files:    map[string]*memoryFile{},
		trash:    map[string]string{},
		FailRead: map[string]error{},
	}
}

// Add places a file in the folder and returns it.
func (m *MemoryFolder) Add(name, content string) source.File {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addLocked(name, content)
}

func (m *MemoryFolder) addLocked(name, content string) source.File {
	m.nextID++
	f := source.File{ID: fmt.Sprintf("mem-%d", m.nextID), Name: name, Size: int64(len(content))}
	m.files[f.ID] = &memoryFile{file: f, content: content, order: m.nextID}
	return f
}

func (m *MemoryFolder) Describe() string { return "memory" }

func (m *MemoryFolder) List(ctx context.Context) ([]source.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailList != nil {
		return nil, m.FailList
	}
	entries := m.sortedLocked()
	out := make([]source.File, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.file)
	}
	return out, nil
}

func (m *MemoryFolder) sortedLocked() []*memoryFile {
	entries := make([]*memoryFile, 0, len(m.files))
	for _, f := range m.files {
		entries = append(entries, f)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].order < entries[j].order })
	return entries
}

func (m *MemoryFolder) Read(ctx context.Context, f source.File) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.FailRead[f.Name]; err != nil {
		return "", err
	}
	entry, ok := m.files[f.ID]
	if !ok {
		return "", errors.New("file not found: " + f.Name)
	}
	return entry.content, nil
}

func (m *MemoryFolder) Write(ctx context.Context, name, content string) (source.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrite != nil {
		return source.File{}, m.FailWrite
	}
	m.created++
	return m.addLocked(name, content), nil
}

func (m *MemoryFolder) MarkProcessed(ctx context.Context, f source.File, newName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailMark != nil {
		return m.FailMark
	}
	if _, ok := m.files[f.ID]; !ok {
		return errors.New("file not found: " + f.Name)
	}
	delete(m.files, f.ID)
	m.trash[f.ID] = newName
	return nil
}

// Content returns the content of the live file called name.
func (m *MemoryFolder) Content(name string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.files {
		if f.file.Name == name {
			return f.content, true
		}
	}
	return "", false
}

// Names lists live file names in insertion order.
func (m *MemoryFolder) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := m.sortedLocked()
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.file.Name)
	}
	return names
}

// Trashed returns the new name given to the trashed file with id, if any.
func (m *MemoryFolder) Trashed(id string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name, ok := m.trash[id]
	return name, ok
}

// TrashCount reports how many files were marked processed.
func (m *MemoryFolder) TrashCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.trash)
}

// Created reports how many files were written through Write.
func (m *MemoryFolder) Created() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.created
}
