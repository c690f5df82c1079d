package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/EducacionBuga/educacion-buga-sub003/internal/area"
	"github.com/EducacionBuga/educacion-buga-sub003/internal/localstore"
	"github.com/EducacionBuga/educacion-buga-sub003/internal/planaccion"
	"github.com/EducacionBuga/educacion-buga-sub003/internal/search"
	"github.com/EducacionBuga/educacion-buga-sub003/internal/store"
)

// fakeStore keeps rows in maps. The *Err fields force the matching call to
// fail.
type fakeStore struct {
	mu        sync.Mutex
	clock     time.Time
	folders   map[string]store.Folder
	documents map[string]store.Document
	registros map[string]store.Registro
	informes  map[string]store.Informe
	answers   map[string]store.ChecklistAnswer

	pingErr           error
	insertDocumentErr error
	cascadeErr        error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		clock:     time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC),
		folders:   map[string]store.Folder{},
		documents: map[string]store.Document{},
		registros: map[string]store.Registro{},
		informes:  map[string]store.Informe{},
		answers:   map[string]store.ChecklistAnswer{},
	}
}

func (f *fakeStore) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

func (f *fakeStore) ListFolders(_ context.Context, areaID, moduleType string) ([]store.Folder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := make([]store.Folder, 0)
	for _, folder := range f.folders {
		if folder.AreaID == areaID && folder.ModuleType == moduleType {
			items = append(items, folder)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) })
	return items, nil
}

func (f *fakeStore) GetFolder(_ context.Context, id string) (store.Folder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	folder, ok := f.folders[id]
	if !ok {
		return store.Folder{}, store.ErrNotFound
	}
	return folder, nil
}

func (f *fakeStore) InsertFolder(_ context.Context, folder store.Folder) (store.Folder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.tick()
	folder.CreatedAt, folder.UpdatedAt = now, now
	f.folders[folder.ID] = folder
	return folder, nil
}

func (f *fakeStore) UpdateFolder(_ context.Context, id string, patch store.FolderPatch) (store.Folder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	folder, ok := f.folders[id]
	if !ok {
		return store.Folder{}, store.ErrNotFound
	}
	folder.Name, folder.Color = patch.Name, patch.Color
	if patch.Category != nil {
		folder.Category = *patch.Category
	}
	if patch.Description != nil {
		folder.Description = patch.Description
	}
	switch {
	case patch.ClearDate:
		folder.Date = nil
	case patch.Date != nil:
		folder.Date = patch.Date
	}
	folder.UpdatedAt = f.tick()
	f.folders[id] = folder
	return folder, nil
}

func (f *fakeStore) DeleteFolderCascade(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cascadeErr != nil {
		return f.cascadeErr
	}
	if _, ok := f.folders[id]; !ok {
		return store.ErrNotFound
	}
	for docID, doc := range f.documents {
		if doc.FolderID == id {
			delete(f.documents, docID)
		}
	}
	delete(f.folders, id)
	return nil
}

func (f *fakeStore) ListDocuments(_ context.Context, filter store.DocumentFilter) ([]store.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := make([]store.Document, 0)
	for _, doc := range f.documents {
		if doc.AreaID != filter.AreaID || doc.ModuleType != filter.ModuleType {
			continue
		}
		if filter.FolderID != "" && doc.FolderID != filter.FolderID {
			continue
		}
		items = append(items, doc)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	return items, nil
}

func (f *fakeStore) ListFolderDocuments(_ context.Context, folderID string) ([]store.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := make([]store.Document, 0)
	for _, doc := range f.documents {
		if doc.FolderID == folderID {
			items = append(items, doc)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) })
	return items, nil
}

func (f *fakeStore) GetDocument(_ context.Context, id string) (store.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.documents[id]
	if !ok {
		return store.Document{}, store.ErrNotFound
	}
	return doc, nil
}

func (f *fakeStore) InsertDocument(_ context.Context, doc store.Document) (store.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertDocumentErr != nil {
		return store.Document{}, f.insertDocumentErr
	}
	if _, ok := f.folders[doc.FolderID]; !ok {
		return store.Document{}, fmt.Errorf("insert document: %w", store.ErrInvalidReference)
	}
	now := f.tick()
	doc.CreatedAt, doc.UpdatedAt = now, now
	f.documents[doc.ID] = doc
	return doc, nil
}

func (f *fakeStore) DeleteDocument(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.documents[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.documents, id)
	return nil
}

func (f *fakeStore) ListRegistros(_ context.Context, areaID string) ([]store.Registro, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := make([]store.Registro, 0)
	for _, r := range f.registros {
		if r.AreaID == areaID {
			items = append(items, r)
		}
	}
	return items, nil
}

func (f *fakeStore) GetRegistro(_ context.Context, id string) (store.Registro, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.registros[id]
	if !ok {
		return store.Registro{}, store.ErrNotFound
	}
	return r, nil
}

func (f *fakeStore) DeleteRegistro(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.registros[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.registros, id)
	return nil
}

func (f *fakeStore) ListInformes(_ context.Context, areaID string) ([]store.Informe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := make([]store.Informe, 0)
	for _, i := range f.informes {
		if i.AreaID == areaID {
			items = append(items, i)
		}
	}
	return items, nil
}

func (f *fakeStore) GetInforme(_ context.Context, id string) (store.Informe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i, ok := f.informes[id]
	if !ok {
		return store.Informe{}, store.ErrNotFound
	}
	return i, nil
}

func (f *fakeStore) DeleteInforme(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.informes[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.informes, id)
	return nil
}

func (f *fakeStore) ListChecklistCategories(context.Context) ([]store.ChecklistCategory, error) {
	return []store.ChecklistCategory{{ID: 1, Name: "SAMC", SortOrder: 1}, {ID: 2, Name: "MINIMA CUANTIA", SortOrder: 2}}, nil
}

func (f *fakeStore) ListChecklistStages(context.Context) ([]store.ChecklistStage, error) {
	return []store.ChecklistStage{{ID: 1, Name: "PRECONTRACTUAL", SortOrder: 1}}, nil
}

func (f *fakeStore) ListChecklistItems(_ context.Context, categoryID int64) ([]store.ChecklistItem, error) {
	all := []store.ChecklistItem{
		{ID: 1, CategoryID: 1, StageID: 1, StageName: "PRECONTRACTUAL", Description: "Estudios previos", SortOrder: 1},
		{ID: 2, CategoryID: 2, StageID: 1, StageName: "PRECONTRACTUAL", Description: "Invitación pública", SortOrder: 1},
	}
	items := make([]store.ChecklistItem, 0)
	for _, item := range all {
		if categoryID == 0 || item.CategoryID == categoryID {
			items = append(items, item)
		}
	}
	return items, nil
}

func (f *fakeStore) ListChecklistAnswers(_ context.Context, contractID string) ([]store.ChecklistAnswer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := make([]store.ChecklistAnswer, 0)
	for _, a := range f.answers {
		if a.ContractID == contractID {
			items = append(items, a)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ItemID < items[j].ItemID })
	return items, nil
}

func (f *fakeStore) UpsertChecklistAnswer(_ context.Context, answer store.ChecklistAnswer) (store.ChecklistAnswer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if answer.ItemID > 2 {
		return store.ChecklistAnswer{}, fmt.Errorf("checklist item %d: %w", answer.ItemID, store.ErrInvalidReference)
	}
	key := fmt.Sprintf("%s/%d", answer.ContractID, answer.ItemID)
	if existing, ok := f.answers[key]; ok {
		answer.ID = existing.ID
	}
	answer.UpdatedAt = f.tick()
	f.answers[key] = answer
	return answer, nil
}

// fakeObjects records object keys and the bytes written to them.
type fakeObjects struct {
	mu        sync.Mutex
	objects   map[string][]byte
	puts      []string
	removed   []string
	signed    int
	putErr    error
	removeErr error
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: map[string][]byte{}}
}

func (f *fakeObjects) Put(_ context.Context, key string, r io.Reader, size int64, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	var buf bytes.Buffer
	n, err := io.Copy(&buf, r)
	if err != nil {
		return err
	}
	if n != size {
		return fmt.Errorf("short write: %d of %d bytes", n, size)
	}
	f.objects[key] = buf.Bytes()
	f.puts = append(f.puts, key)
	return nil
}

func (f *fakeObjects) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removeErr != nil {
		return f.removeErr
	}
	delete(f.objects, key)
	f.removed = append(f.removed, key)
	return nil
}

func (f *fakeObjects) PresignGet(_ context.Context, key string, ttl time.Duration, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signed++
	return fmt.Sprintf("https://s3.test/documentos/%s?X-Amz-Expires=%d&sig=%d", key, int(ttl.Seconds()), f.signed), nil
}

func (f *fakeObjects) Ping(context.Context) error { return nil }

func (f *fakeObjects) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok
}

func (f *fakeObjects) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

// fakeSearch runs synchronously so tests can assert on index calls.
type fakeSearch struct {
	mu      sync.Mutex
	indexed map[string]search.DocumentRecord
	resp    search.Response
	lastQ   search.Query
}

func newFakeSearch() *fakeSearch {
	return &fakeSearch{indexed: map[string]search.DocumentRecord{}}
}

func (f *fakeSearch) Search(_ context.Context, q search.Query) (search.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastQ = q
	return f.resp, nil
}

func (f *fakeSearch) IndexDocument(doc search.DocumentRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed[doc.ID] = doc
}

func (f *fakeSearch) DeleteDocument(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.indexed, id)
}

type testEnv struct {
	store   *fakeStore
	objects *fakeObjects
	search  *fakeSearch
	service *Service
}

func newTestEnv() *testEnv {
	env := &testEnv{
		store:   newFakeStore(),
		objects: newFakeObjects(),
		search:  newFakeSearch(),
	}
	env.service = NewService(Options{
		Store:   env.store,
		Objects: env.objects,
		Search:  env.search,
		Plan:    planaccion.NewService(localstore.NewMemoryStore()),
		Areas:   area.Default(),
		Now:     func() time.Time { return time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC) },
	})
	return env
}

func (env *testEnv) areaID(slug string) string {
	a, ok := area.Default().Resolve(slug)
	if !ok {
		panic("unknown test area " + slug)
	}
	return a.ID
}

var errBoom = errors.New("boom")
