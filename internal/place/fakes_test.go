package place

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
)

// memStore is an in-memory Store for service and handler tests.
type memStore struct {
	mu     sync.Mutex
	places map[string]Place
}

func newMemStore(places ...*Place) *memStore {
	s := &memStore{places: map[string]Place{}}
	for _, p := range places {
		s.places[p.Name] = *p
	}
	return s
}

func (s *memStore) Create(_ context.Context, p *Place) (*Place, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.places[p.Name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, p.Name)
	}
	s.places[p.Name] = *p
	created := *p
	return &created, nil
}

func (s *memStore) Get(_ context.Context, name string) (*Place, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.places[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return &p, nil
}

func (s *memStore) List(_ context.Context) ([]Place, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	places := make([]Place, 0, len(s.places))
	for _, p := range s.places {
		places = append(places, p)
	}
	sort.Slice(places, func(i, j int) bool { return places[i].Name < places[j].Name })
	return places, nil
}

func (s *memStore) Update(_ context.Context, name string, p *Place) (*Place, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.places[name]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if _, taken := s.places[p.Name]; taken && p.Name != name {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, p.Name)
	}
	delete(s.places, name)
	s.places[p.Name] = *p
	updated := *p
	return &updated, nil
}

func (s *memStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.places[name]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	delete(s.places, name)
	return nil
}

func (s *memStore) Close() error { return nil }

// failingUpdates is a memStore whose Update always fails.
type failingUpdates struct {
	*memStore
	err error
}

func (s failingUpdates) Update(context.Context, string, *Place) (*Place, error) {
	return nil, s.err
}

// recordingPublisher keeps every event, or fails every publish when err is set.
type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	var types []EventType
	for _, e := range p.events {
		types = append(types, e.Type)
	}
	return types
}

type memImages struct {
	mu      sync.Mutex
	next    int
	objects map[string][]byte
	types   map[string]string
}

func newMemImages() *memImages {
	return &memImages{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memImages) PutImage(_ context.Context, name string, r io.Reader, _ int64, contentType string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	key := ImageKey(name, fmt.Sprint(m.next))
	m.objects[key] = data
	m.types[key] = contentType
	return key, nil
}

func (m *memImages) DeleteImage(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	delete(m.types, key)
	return nil
}

func (m *memImages) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for key := range m.objects {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (m *memImages) GetImage(_ context.Context, key string) (io.ReadCloser, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, "", errors.New("no such key")
	}
	return io.NopCloser(bytes.NewReader(data)), m.types[key], nil
}
