package services

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"picturegram-sync/internal/errs"
	"picturegram-sync/internal/identity"
	"picturegram-sync/internal/models"
)

func as(id, name string) context.Context {
	return identity.WithPrincipal(context.Background(), models.Principal{ID: id, DisplayName: name})
}

type fakePhotoStore struct {
	mu     sync.Mutex
	photos map[string]*models.Photo
	calls  []string
	failOn map[string]error
}

func newFakePhotoStore(photos ...*models.Photo) *fakePhotoStore {
	f := &fakePhotoStore{photos: map[string]*models.Photo{}, failOn: map[string]error{}}
	for _, p := range photos {
		cp := *p
		cp.LikedBy = slices.Clone(p.LikedBy)
		f.photos[p.ID] = &cp
	}
	return f
}

func (f *fakePhotoStore) record(op string) error {
	f.calls = append(f.calls, op)
	return f.failOn[op]
}

func (f *fakePhotoStore) get(id string) (*models.Photo, error) {
	p, ok := f.photos[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return p, nil
}

func (f *fakePhotoStore) Create(_ context.Context, photo *models.Photo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("Create"); err != nil {
		return err
	}
	cp := *photo
	f.photos[photo.ID] = &cp
	return nil
}

func (f *fakePhotoStore) GetByID(_ context.Context, id string) (*models.Photo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("GetByID"); err != nil {
		return nil, err
	}
	p, err := f.get(id)
	if err != nil {
		return nil, err
	}
	cp := *p
	cp.LikedBy = slices.Clone(p.LikedBy)
	return &cp, nil
}

func (f *fakePhotoStore) ListByAuthor(_ context.Context, authorID string) ([]*models.Photo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListByAuthor"); err != nil {
		return nil, err
	}
	out := []*models.Photo{}
	for _, p := range f.photos {
		if p.AuthorID == authorID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePhotoStore) AddLiker(_ context.Context, photoID, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("AddLiker"); err != nil {
		return err
	}
	p, err := f.get(photoID)
	if err != nil {
		return err
	}
	if !slices.Contains(p.LikedBy, username) {
		p.LikedBy = append(p.LikedBy, username)
	}
	return nil
}

func (f *fakePhotoStore) RemoveLiker(_ context.Context, photoID, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("RemoveLiker"); err != nil {
		return err
	}
	p, err := f.get(photoID)
	if err != nil {
		return err
	}
	p.LikedBy = slices.DeleteFunc(p.LikedBy, func(u string) bool { return u == username })
	return nil
}

func (f *fakePhotoStore) IncrementLikeCount(_ context.Context, photoID string, delta int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("IncrementLikeCount"); err != nil {
		return err
	}
	p, err := f.get(photoID)
	if err != nil {
		return err
	}
	p.LikeCount = max(p.LikeCount+delta, 0)
	return nil
}

func (f *fakePhotoStore) UpdateDescription(_ context.Context, photoID, description string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("UpdateDescription"); err != nil {
		return err
	}
	p, err := f.get(photoID)
	if err != nil {
		return err
	}
	p.Description = description
	return nil
}

func (f *fakePhotoStore) Delete(_ context.Context, photoID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("Delete"); err != nil {
		return err
	}
	if _, err := f.get(photoID); err != nil {
		return err
	}
	delete(f.photos, photoID)
	return nil
}

func (f *fakePhotoStore) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

type fakeUserStore struct {
	mu     sync.Mutex
	users  map[string]*models.User
	calls  []string
	failOn map[string]error
}

func newFakeUserStore(users ...*models.User) *fakeUserStore {
	f := &fakeUserStore{users: map[string]*models.User{}, failOn: map[string]error{}}
	for _, u := range users {
		if u.Following == nil {
			u.Following = []string{}
		}
		if u.Followers == nil {
			u.Followers = []string{}
		}
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUserStore) record(op string) error {
	f.calls = append(f.calls, op)
	return f.failOn[op]
}

func (f *fakeUserStore) get(id string) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, errs.ErrNotFound)
	}
	return u, nil
}

func (f *fakeUserStore) Create(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("Create"); err != nil {
		return err
	}
	for _, u := range f.users {
		if u.Name == user.Name {
			return errs.ErrNameTaken
		}
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserStore) GetByID(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("GetByID"); err != nil {
		return nil, err
	}
	return f.get(id)
}

func (f *fakeUserStore) GetByName(_ context.Context, name string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Name == name {
			return u, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeUserStore) NameTaken(_ context.Context, name, exceptID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("NameTaken"); err != nil {
		return false, err
	}
	for _, u := range f.users {
		if u.Name == name && u.ID != exceptID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserStore) UpdateProfile(_ context.Context, userID, name, bio string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("UpdateProfile"); err != nil {
		return err
	}
	u, err := f.get(userID)
	if err != nil {
		return err
	}
	u.Name, u.Bio = name, bio
	return nil
}

func (f *fakeUserStore) UpdatePushToken(_ context.Context, userID string, pushToken *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, err := f.get(userID)
	if err != nil {
		return err
	}
	u.PushToken = pushToken
	return nil
}

func (f *fakeUserStore) List(_ context.Context, query, excludeID string) ([]*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.User{}
	for _, u := range f.users {
		if u.ID == excludeID {
			continue
		}
		if query == "" || strings.Contains(strings.ToLower(u.Name), strings.ToLower(query)) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeUserStore) updateSet(op, userID, member string, add bool, pick func(*models.User) *[]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(op); err != nil {
		return err
	}
	u, err := f.get(userID)
	if err != nil {
		return err
	}
	set := pick(u)
	if add {
		if !slices.Contains(*set, member) {
			*set = append(*set, member)
		}
		return nil
	}
	*set = slices.DeleteFunc(*set, func(m string) bool { return m == member })
	return nil
}

func following(u *models.User) *[]string { return &u.Following }
func followers(u *models.User) *[]string { return &u.Followers }

func (f *fakeUserStore) AddFollowing(_ context.Context, userID, targetID string) error {
	return f.updateSet("AddFollowing", userID, targetID, true, following)
}

func (f *fakeUserStore) RemoveFollowing(_ context.Context, userID, targetID string) error {
	return f.updateSet("RemoveFollowing", userID, targetID, false, following)
}

func (f *fakeUserStore) AddFollower(_ context.Context, userID, followerID string) error {
	return f.updateSet("AddFollower", userID, followerID, true, followers)
}

func (f *fakeUserStore) RemoveFollower(_ context.Context, userID, followerID string) error {
	return f.updateSet("RemoveFollower", userID, followerID, false, followers)
}

func (f *fakeUserStore) IsFollowing(_ context.Context, userID, targetID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, err := f.get(userID)
	if err != nil {
		return false, err
	}
	return slices.Contains(u.Following, targetID), nil
}

func (f *fakeUserStore) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

type fakeNotificationStore struct {
	mu        sync.Mutex
	items     []*models.Notification
	createErr error
	// beforeMark runs between the unread snapshot and the batch update
	beforeMark func()
}

func (f *fakeNotificationStore) Create(_ context.Context, n *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	cp := *n
	f.items = append(f.items, &cp)
	return nil
}

func (f *fakeNotificationStore) ListByRecipient(_ context.Context, username string) ([]*models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.Notification{}
	for i := len(f.items) - 1; i >= 0; i-- {
		if f.items[i].ToUser == username {
			cp := *f.items[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeNotificationStore) ListUnread(ctx context.Context, username string) ([]*models.Notification, error) {
	all, _ := f.ListByRecipient(ctx, username)
	return slices.DeleteFunc(all, func(n *models.Notification) bool { return n.IsRead }), nil
}

func (f *fakeNotificationStore) CountUnread(ctx context.Context, username string) (int, error) {
	unread, _ := f.ListUnread(ctx, username)
	return len(unread), nil
}

func (f *fakeNotificationStore) MarkRead(_ context.Context, username string, ids []string) (int, error) {
	if f.beforeMark != nil {
		f.beforeMark()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	marked := 0
	for _, n := range f.items {
		if n.ToUser == username && !n.IsRead && slices.Contains(ids, n.ID) {
			n.IsRead = true
			marked++
		}
	}
	return marked, nil
}

func (f *fakeNotificationStore) All() []*models.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Notification, 0, len(f.items))
	for _, n := range f.items {
		cp := *n
		out = append(out, &cp)
	}
	return out
}

type fakeCache struct {
	mu      sync.Mutex
	saved   map[string][]*models.Photo
	saves   int
	saveErr error
}

func newFakeCache() *fakeCache {
	return &fakeCache{saved: map[string][]*models.Photo{}}
}

func (f *fakeCache) Load(userID string) ([]*models.Photo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	photos, ok := f.saved[userID]
	if !ok {
		return []*models.Photo{}, nil
	}
	return slices.Clone(photos), nil
}

func (f *fakeCache) Save(userID string, photos []*models.Photo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved[userID] = slices.Clone(photos)
	return nil
}

type fakeBlobs struct {
	mu        sync.Mutex
	objects   map[string]bool
	calls     []string
	deleteErr error
	uploadErr error
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: map[string]bool{}}
}

func (f *fakeBlobs) Upload(_ context.Context, data []byte, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "Upload")
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	url := fmt.Sprintf("https://blobs/photos/%d.jpg", len(f.objects)+1)
	f.objects[url] = true
	return url, nil
}

func (f *fakeBlobs) Delete(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "Delete")
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.objects, url)
	return nil
}

type pushed struct {
	Recipient, Title, Body string
}

type fakePush struct {
	mu   sync.Mutex
	sent []pushed
	err  error
}

func (f *fakePush) ShowLocalNotification(_ context.Context, recipient, title, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, pushed{recipient, title, body})
	return f.err
}

func (f *fakePush) Sent() []pushed {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.sent)
}

type notified struct {
	Kind     models.NotificationKind
	From, To string
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []notified
}

func (r *recordingNotifier) Notify(_ context.Context, kind models.NotificationKind, from, to string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, notified{kind, from, to})
}
