// Package memory provides in-process implementations of the repository
// interfaces. All three views share one lock so cascades and the last-admin
// check see a consistent snapshot.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"task-manager-api/model"
	"task-manager-api/repository"
)

var (
	_ repository.IUserRepository  = (*UserStore)(nil)
	_ repository.ITokenRepository = (*TokenStore)(nil)
	_ repository.ITaskRepository  = (*TaskStore)(nil)
)

type Store struct {
	mu sync.RWMutex

	users      map[int]*model.User
	tokens     map[string]*model.RefreshToken // keyed by token hash
	tasks      map[int]*model.Task
	nextUserID int
	nextToken  int
	nextTaskID int

	// NowTimeFunc can be overridden in tests.
	NowTimeFunc func() time.Time
}

func NewStore() *Store {
	return &Store{
		users:       make(map[int]*model.User),
		tokens:      make(map[string]*model.RefreshToken),
		tasks:       make(map[int]*model.Task),
		NowTimeFunc: time.Now,
	}
}

func (s *Store) Users() *UserStore   { return &UserStore{s} }
func (s *Store) Tokens() *TokenStore { return &TokenStore{s} }
func (s *Store) Tasks() *TaskStore   { return &TaskStore{s} }

func (s *Store) now() time.Time { return s.NowTimeFunc().UTC() }

// UserStore implements repository.IUserRepository.
type UserStore struct{ s *Store }

func (u *UserStore) ExistsByUsernameOrEmail(_ context.Context, username, email string) (bool, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	return u.s.conflictLocked(username, email), nil
}

func (s *Store) conflictLocked(username, email string) bool {
	for _, existing := range s.users {
		if existing.Username == username || existing.Email == email {
			return true
		}
	}
	return false
}

// Create enforces both unique keys under the write lock.
func (u *UserStore) Create(_ context.Context, user *model.User) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	if u.s.conflictLocked(user.Username, user.Email) {
		return repository.ErrDuplicate
	}
	u.s.nextUserID++
	user.ID = u.s.nextUserID
	user.CreatedAt = u.s.now()
	stored := *user
	u.s.users[user.ID] = &stored
	return nil
}

func (u *UserStore) GetByID(_ context.Context, id int) (*model.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	user, ok := u.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *user
	return &cp, nil
}

func (u *UserStore) GetByEmail(_ context.Context, email string) (*model.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	for _, user := range u.s.users {
		if user.Email == email {
			cp := *user
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (u *UserStore) List(_ context.Context) ([]*model.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	out := make([]*model.User, 0, len(u.s.users))
	for _, user := range u.s.users {
		cp := *user
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (u *UserStore) CountByRole(_ context.Context, role model.Role) (int, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	return u.s.countRoleLocked(role), nil
}

func (s *Store) countRoleLocked(role model.Role) int {
	n := 0
	for _, user := range s.users {
		if user.Role == role {
			n++
		}
	}
	return n
}

// Delete removes the user with its refresh tokens and assigned tasks.
func (u *UserStore) Delete(_ context.Context, id int) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	user, ok := u.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	if user.Role == model.RoleAdmin && u.s.countRoleLocked(model.RoleAdmin) <= 1 {
		return repository.ErrLastAdmin
	}
	delete(u.s.users, id)
	for hash, tok := range u.s.tokens {
		if tok.UserID == id {
			delete(u.s.tokens, hash)
		}
	}
	for taskID, task := range u.s.tasks {
		if task.AssignedUserID == id {
			delete(u.s.tasks, taskID)
		}
	}
	return nil
}

// TokenStore implements repository.ITokenRepository.
type TokenStore struct{ s *Store }

func (t *TokenStore) Save(_ context.Context, token *model.RefreshToken) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return t.s.insertTokenLocked(token)
}

func (s *Store) insertTokenLocked(token *model.RefreshToken) error {
	if token.TokenHash == "" {
		token.TokenHash = repository.HashToken(token.Token)
	}
	if _, ok := s.tokens[token.TokenHash]; ok {
		return repository.ErrDuplicate
	}
	s.nextToken++
	token.ID = s.nextToken
	token.CreatedAt = s.now()
	stored := *token
	stored.Token = ""
	s.tokens[token.TokenHash] = &stored
	return nil
}

func (t *TokenStore) FindByToken(_ context.Context, raw string) (*model.RefreshToken, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	tok, ok := t.s.tokens[repository.HashToken(raw)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyToken(tok), nil
}

func copyToken(tok *model.RefreshToken) *model.RefreshToken {
	cp := *tok
	if tok.RevokedAt != nil {
		at := *tok.RevokedAt
		cp.RevokedAt = &at
	}
	if tok.ReplacedByHash != nil {
		h := *tok.ReplacedByHash
		cp.ReplacedByHash = &h
	}
	return &cp
}

func (s *Store) revokeLocked(tok *model.RefreshToken, ip string) bool {
	if tok.RevokedAt != nil {
		return false
	}
	now := s.now()
	tok.RevokedAt = &now
	tok.RevokedByIP = ip
	return true
}

func (t *TokenStore) Revoke(_ context.Context, raw, ip string) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	tok, ok := t.s.tokens[repository.HashToken(raw)]
	if !ok {
		return repository.ErrNotFound
	}
	t.s.revokeLocked(tok, ip)
	return nil
}

// Rotate checks liveness and swaps the token under a single write lock.
func (t *TokenStore) Rotate(_ context.Context, oldRaw string, next *model.RefreshToken, ip string) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	old, ok := t.s.tokens[repository.HashToken(oldRaw)]
	if !ok || !old.IsActive(t.s.now()) {
		return repository.ErrTokenNotActive
	}
	if next.TokenHash == "" {
		next.TokenHash = repository.HashToken(next.Token)
	}
	if err := t.s.insertTokenLocked(next); err != nil {
		return err
	}
	t.s.revokeLocked(old, ip)
	h := next.TokenHash
	old.ReplacedByHash = &h
	return nil
}

func (t *TokenStore) RevokeChain(_ context.Context, raw, ip string) (int64, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	var n int64
	seen := make(map[string]bool)
	hash := repository.HashToken(raw)
	for !seen[hash] {
		seen[hash] = true
		tok, ok := t.s.tokens[hash]
		if !ok {
			break
		}
		if t.s.revokeLocked(tok, ip) {
			n++
		}
		if tok.ReplacedByHash == nil {
			break
		}
		hash = *tok.ReplacedByHash
	}
	return n, nil
}

func (t *TokenStore) RevokeAllForUser(_ context.Context, userID int, ip string) (int64, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	var n int64
	for _, tok := range t.s.tokens {
		if tok.UserID == userID && t.s.revokeLocked(tok, ip) {
			n++
		}
	}
	return n, nil
}

// TaskStore implements repository.ITaskRepository.
type TaskStore struct{ s *Store }

func (t *TaskStore) Create(_ context.Context, task *model.Task) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	user, ok := t.s.users[task.AssignedUserID]
	if !ok {
		return repository.ErrNotFound
	}
	t.s.nextTaskID++
	now := t.s.now()
	task.ID = t.s.nextTaskID
	task.CreatedAt = now
	task.LastUpdatedAt = now
	task.AssignedUsername = user.Username
	stored := *task
	t.s.tasks[task.ID] = &stored
	return nil
}

func (t *TaskStore) withUsernameLocked(task *model.Task) *model.Task {
	cp := *task
	if user, ok := t.s.users[task.AssignedUserID]; ok {
		cp.AssignedUsername = user.Username
	}
	return &cp
}

func (t *TaskStore) GetByID(_ context.Context, id int) (*model.Task, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	task, ok := t.s.tasks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return t.withUsernameLocked(task), nil
}

func (t *TaskStore) List(_ context.Context) ([]*model.Task, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	out := make([]*model.Task, 0, len(t.s.tasks))
	for _, task := range t.s.tasks {
		out = append(out, t.withUsernameLocked(task))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (t *TaskStore) Update(_ context.Context, task *model.Task) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if _, ok := t.s.tasks[task.ID]; !ok {
		return repository.ErrNotFound
	}
	task.LastUpdatedAt = t.s.now()
	stored := *task
	t.s.tasks[task.ID] = &stored
	return nil
}

func (t *TaskStore) Delete(_ context.Context, id int) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if _, ok := t.s.tasks[id]; !ok {
		return repository.ErrNotFound
	}
	delete(t.s.tasks, id)
	return nil
}
