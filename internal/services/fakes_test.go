package services

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"skydrive/internal/models"
	"skydrive/internal/pkg"
	"skydrive/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeEntryRepo is an in-memory EntryRepository with the same ordering and
// scoping rules as the mongo implementation
type fakeEntryRepo struct {
	mu      sync.Mutex
	entries map[primitive.ObjectID]*models.Entry
}

func newFakeEntryRepo() *fakeEntryRepo {
	return &fakeEntryRepo{entries: make(map[primitive.ObjectID]*models.Entry)}
}

func (r *fakeEntryRepo) Create(ctx context.Context, entry *models.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	now := time.Now()
	entry.CreatedAt = now
	entry.UpdatedAt = now

	clone := *entry
	r.entries[entry.ID] = &clone
	return nil
}

func (r *fakeEntryRepo) get(id primitive.ObjectID) (*models.Entry, bool) {
	entry, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	clone := *entry
	return &clone, true
}

func (r *fakeEntryRepo) GetByID(ctx context.Context, ownerID, id primitive.ObjectID) (*models.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.get(id)
	if !ok || entry.OwnerID != ownerID || entry.DeletedAt != nil {
		return nil, pkg.ErrEntryNotFound
	}
	return entry, nil
}

func (r *fakeEntryRepo) GetAny(ctx context.Context, ownerID, id primitive.ObjectID) (*models.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.get(id)
	if !ok || entry.OwnerID != ownerID {
		return nil, pkg.ErrEntryNotFound
	}
	return entry, nil
}

func (r *fakeEntryRepo) GetUnscoped(ctx context.Context, id primitive.ObjectID) (*models.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.get(id)
	if !ok || entry.DeletedAt != nil {
		return nil, pkg.ErrEntryNotFound
	}
	return entry, nil
}

func (r *fakeEntryRepo) GetByPath(ctx context.Context, ownerID primitive.ObjectID, path string) (*models.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id := range r.entries {
		entry, _ := r.get(id)
		if entry.OwnerID == ownerID && entry.Path == path && entry.DeletedAt == nil && !entry.IsRoot() {
			return entry, nil
		}
	}
	return nil, pkg.ErrEntryNotFound
}

func (r *fakeEntryRepo) GetRoot(ctx context.Context, ownerID primitive.ObjectID) (*models.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id := range r.entries {
		entry, _ := r.get(id)
		if entry.OwnerID == ownerID && entry.IsRoot() && entry.DeletedAt == nil {
			return entry, nil
		}
	}
	return nil, pkg.ErrEntryNotFound
}

func (r *fakeEntryRepo) ListFolder(ctx context.Context, ownerID primitive.ObjectID, filter repository.EntryFilter, params *pkg.PaginationParams) ([]*models.Entry, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idSet := make(map[primitive.ObjectID]bool)
	for _, id := range filter.IDs {
		idSet[id] = true
	}

	var matched []*models.Entry
	for id := range r.entries {
		entry, _ := r.get(id)
		if entry.OwnerID != ownerID || entry.DeletedAt != nil || entry.IsRoot() {
			continue
		}
		if filter.Search != "" {
			if !strings.Contains(strings.ToLower(entry.Name), strings.ToLower(filter.Search)) {
				continue
			}
		} else if filter.ParentID != nil {
			if entry.ParentID == nil || *entry.ParentID != *filter.ParentID {
				continue
			}
		}
		if filter.IDs != nil && !idSet[entry.ID] {
			continue
		}
		matched = append(matched, entry)
	}

	sortByListOrder(matched)
	total := int64(len(matched))
	return pageSlice(matched, params), total, nil
}

func (r *fakeEntryRepo) ListChildren(ctx context.Context, parentID primitive.ObjectID) ([]*models.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var children []*models.Entry
	for id := range r.entries {
		entry, _ := r.get(id)
		if entry.ParentID != nil && *entry.ParentID == parentID && entry.DeletedAt == nil {
			children = append(children, entry)
		}
	}
	sortByListOrder(children)
	return children, nil
}

func (r *fakeEntryRepo) ListChildrenAny(ctx context.Context, parentID primitive.ObjectID) ([]*models.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var children []*models.Entry
	for id := range r.entries {
		entry, _ := r.get(id)
		if entry.ParentID != nil && *entry.ParentID == parentID {
			children = append(children, entry)
		}
	}
	sortByListOrder(children)
	return children, nil
}

func (r *fakeEntryRepo) ListTrashed(ctx context.Context, ownerID primitive.ObjectID, search string, params *pkg.PaginationParams) ([]*models.Entry, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []*models.Entry
	for id := range r.entries {
		entry, _ := r.get(id)
		if entry.OwnerID != ownerID || entry.DeletedAt == nil {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(entry.Name), strings.ToLower(search)) {
			continue
		}
		matched = append(matched, entry)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.IsFolder != b.IsFolder {
			return a.IsFolder
		}
		if !a.DeletedAt.Equal(*b.DeletedAt) {
			return a.DeletedAt.After(*b.DeletedAt)
		}
		return a.ID.Hex() > b.ID.Hex()
	})

	total := int64(len(matched))
	return pageSlice(matched, params), total, nil
}

func (r *fakeEntryRepo) FindByIDs(ctx context.Context, ownerID primitive.ObjectID, ids []primitive.ObjectID) ([]*models.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found []*models.Entry
	for _, id := range ids {
		entry, ok := r.get(id)
		if ok && entry.OwnerID == ownerID && entry.DeletedAt == nil {
			found = append(found, entry)
		}
	}
	sortByListOrder(found)
	return found, nil
}

func (r *fakeEntryRepo) FindOwned(ctx context.Context, ownerID primitive.ObjectID) ([]*models.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found []*models.Entry
	for id := range r.entries {
		entry, _ := r.get(id)
		if entry.OwnerID == ownerID && entry.DeletedAt == nil {
			found = append(found, entry)
		}
	}
	sortByListOrder(found)
	return found, nil
}

func (r *fakeEntryRepo) FindTrashed(ctx context.Context, ownerID primitive.ObjectID, ids []primitive.ObjectID) ([]*models.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found []*models.Entry
	for _, id := range ids {
		entry, ok := r.get(id)
		if ok && entry.OwnerID == ownerID && entry.DeletedAt != nil {
			found = append(found, entry)
		}
	}
	return found, nil
}

func (r *fakeEntryRepo) FindAllTrashed(ctx context.Context, ownerID primitive.ObjectID) ([]*models.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found []*models.Entry
	for id := range r.entries {
		entry, _ := r.get(id)
		if entry.OwnerID == ownerID && entry.DeletedAt != nil {
			found = append(found, entry)
		}
	}
	return found, nil
}

func (r *fakeEntryRepo) FindTrashedBefore(ctx context.Context, cutoff time.Time) ([]*models.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found []*models.Entry
	for id := range r.entries {
		entry, _ := r.get(id)
		if entry.DeletedAt != nil && entry.DeletedAt.Before(cutoff) {
			found = append(found, entry)
		}
	}
	return found, nil
}

func (r *fakeEntryRepo) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[id]
	if !ok {
		return pkg.ErrEntryNotFound
	}

	if v, ok := updates["name"].(string); ok {
		entry.Name = v
	}
	if v, ok := updates["note_content"].(string); ok {
		entry.NoteContent = v
	}
	if v, ok := updates["size"].(int64); ok {
		entry.Size = v
	}
	entry.UpdatedAt = time.Now()
	return nil
}

func (r *fakeEntryRepo) SoftDelete(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[id]
	if !ok {
		return pkg.ErrEntryNotFound
	}
	now := time.Now()
	entry.DeletedAt = &now
	return nil
}

func (r *fakeEntryRepo) Restore(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[id]
	if !ok {
		return pkg.ErrEntryNotFound
	}
	entry.DeletedAt = nil
	return nil
}

func (r *fakeEntryRepo) HardDelete(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
	return nil
}

func sortByListOrder(entries []*models.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.IsFolder != b.IsFolder {
			return a.IsFolder
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID.Hex() > b.ID.Hex()
	})
}

func pageSlice(entries []*models.Entry, params *pkg.PaginationParams) []*models.Entry {
	start := params.GetOffset()
	if start >= len(entries) {
		return []*models.Entry{}
	}
	end := start + params.Limit
	if end > len(entries) {
		end = len(entries)
	}
	return entries[start:end]
}

// fakeShareRepo is an in-memory ShareRepository
type fakeShareRepo struct {
	mu     sync.Mutex
	shares []*models.Share
}

func newFakeShareRepo() *fakeShareRepo {
	return &fakeShareRepo{}
}

func (r *fakeShareRepo) CreateMany(ctx context.Context, shares []*models.Share) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, share := range shares {
		if r.exists(share.EntryID, share.UserID) {
			continue
		}
		share.ID = primitive.NewObjectID()
		if share.CreatedAt.IsZero() {
			share.CreatedAt = time.Now()
		}
		clone := *share
		r.shares = append(r.shares, &clone)
	}
	return nil
}

func (r *fakeShareRepo) exists(entryID, userID primitive.ObjectID) bool {
	for _, share := range r.shares {
		if share.EntryID == entryID && share.UserID == userID {
			return true
		}
	}
	return false
}

func (r *fakeShareRepo) Exists(ctx context.Context, entryID, userID primitive.ObjectID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.exists(entryID, userID), nil
}

func (r *fakeShareRepo) SharedEntryIDs(ctx context.Context, entryIDs []primitive.ObjectID, userID primitive.ObjectID) (map[primitive.ObjectID]bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	shared := make(map[primitive.ObjectID]bool)
	for _, id := range entryIDs {
		if r.exists(id, userID) {
			shared[id] = true
		}
	}
	return shared, nil
}

func (r *fakeShareRepo) ListByGrantee(ctx context.Context, userID primitive.ObjectID) ([]*models.Share, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found []*models.Share
	for _, share := range r.shares {
		if share.UserID == userID {
			clone := *share
			found = append(found, &clone)
		}
	}
	sort.SliceStable(found, func(i, j int) bool {
		return found[i].CreatedAt.After(found[j].CreatedAt)
	})
	return found, nil
}

func (r *fakeShareRepo) ListByEntryIDs(ctx context.Context, entryIDs []primitive.ObjectID) ([]*models.Share, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idSet := make(map[primitive.ObjectID]bool)
	for _, id := range entryIDs {
		idSet[id] = true
	}
	var found []*models.Share
	for _, share := range r.shares {
		if idSet[share.EntryID] {
			clone := *share
			found = append(found, &clone)
		}
	}
	sort.SliceStable(found, func(i, j int) bool {
		return found[i].CreatedAt.After(found[j].CreatedAt)
	})
	return found, nil
}

func (r *fakeShareRepo) DeleteByEntry(ctx context.Context, entryID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.shares[:0]
	for _, share := range r.shares {
		if share.EntryID != entryID {
			kept = append(kept, share)
		}
	}
	r.shares = kept
	return nil
}

// fakeStarRepo is an in-memory StarRepository
type fakeStarRepo struct {
	mu    sync.Mutex
	stars map[[2]primitive.ObjectID]*models.Star
}

func newFakeStarRepo() *fakeStarRepo {
	return &fakeStarRepo{stars: make(map[[2]primitive.ObjectID]*models.Star)}
}

func (r *fakeStarRepo) Get(ctx context.Context, entryID, userID primitive.ObjectID) (*models.Star, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	star, ok := r.stars[[2]primitive.ObjectID{entryID, userID}]
	if !ok {
		return nil, pkg.ErrEntryNotFound
	}
	clone := *star
	return &clone, nil
}

func (r *fakeStarRepo) Create(ctx context.Context, star *models.Star) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := [2]primitive.ObjectID{star.EntryID, star.UserID}
	if _, ok := r.stars[key]; ok {
		return nil
	}
	star.ID = primitive.NewObjectID()
	star.CreatedAt = time.Now()
	clone := *star
	r.stars[key] = &clone
	return nil
}

func (r *fakeStarRepo) Delete(ctx context.Context, entryID, userID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.stars, [2]primitive.ObjectID{entryID, userID})
	return nil
}

func (r *fakeStarRepo) DeleteByEntry(ctx context.Context, entryID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.stars {
		if key[0] == entryID {
			delete(r.stars, key)
		}
	}
	return nil
}

func (r *fakeStarRepo) EntryIDsByUser(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []primitive.ObjectID
	for key := range r.stars {
		if key[1] == userID {
			ids = append(ids, key[0])
		}
	}
	return ids, nil
}

func (r *fakeStarRepo) StarredSet(ctx context.Context, entryIDs []primitive.ObjectID, userID primitive.ObjectID) (map[primitive.ObjectID]bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	starred := make(map[primitive.ObjectID]bool)
	for _, id := range entryIDs {
		if _, ok := r.stars[[2]primitive.ObjectID{id, userID}]; ok {
			starred[id] = true
		}
	}
	return starred, nil
}

// fakeUserRepo is an in-memory UserRepository
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[primitive.ObjectID]*models.User)}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user.ID = primitive.NewObjectID()
	user.Email = strings.ToLower(user.Email)
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, pkg.ErrUserNotFound
	}
	clone := *user
	return &clone, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == strings.ToLower(email) {
			clone := *user
			return &clone, nil
		}
	}
	return nil, pkg.ErrUserNotFound
}

// memProvider is an in-memory StorageProvider
type memProvider struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newMemProvider() *memProvider {
	return &memProvider{blobs: make(map[string][]byte)}
}

func (p *memProvider) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) (*UploadResult, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.blobs[key] = data
	return &UploadResult{Key: key, Size: int64(len(data))}, nil
}

func (p *memProvider) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	data, ok := p.blobs[key]
	if !ok {
		return nil, pkg.ErrBlobNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (p *memProvider) Delete(ctx context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.blobs, key)
	return nil
}

func (p *memProvider) List(ctx context.Context, prefix string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var keys []string
	for key := range p.blobs {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (p *memProvider) GetURL(ctx context.Context, key string) (string, error) {
	return "https://blobs.test/" + key, nil
}

func (p *memProvider) GetPresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return "https://blobs.test/" + key + "?signed=1", nil
}

func (p *memProvider) has(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.blobs[key]
	return ok
}

func (p *memProvider) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.blobs)
}
