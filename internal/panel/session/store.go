package session

import (
	"sync"

	"github.com/google/uuid"

	"dot5_panel/internal/shared/types"
)

// Token identifies one check invocation. Later tokens always win.
type Token struct {
	Gen   uint64
	RunID string
}

// Store 是只有一个槽位的会话状态：保存最近一次完成的检测结果。
// 写入按 Token 的代次做 last-write-wins，较旧的响应会被丢弃；
// 结果集总是整体替换，从不合并。
type Store struct {
	mu        sync.RWMutex
	nextGen   uint64
	committed uint64
	runID     string
	results   []types.ResultRecord
}

// New creates an empty store.
func New() *Store {
	return &Store{}
}

// Begin hands out the token for a new check.
func (s *Store) Begin() Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextGen++
	return Token{Gen: s.nextGen, RunID: uuid.New().String()}
}

// Commit replaces the stored results if tok is newer than the last commit.
// It reports whether the results were accepted.
func (s *Store) Commit(tok Token, results []types.ResultRecord) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.Gen <= s.committed {
		return false
	}
	cp := make([]types.ResultRecord, len(results))
	copy(cp, results)
	s.committed = tok.Gen
	s.runID = tok.RunID
	s.results = cp
	return true
}

// Results returns a snapshot of the last committed result set.
func (s *Store) Results() []types.ResultRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := make([]types.ResultRecord, len(s.results))
	copy(cp, s.results)
	return cp
}

// Len returns the number of stored results.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results)
}

// RunID returns the run ID of the committed check, or "" before the first one.
func (s *Store) RunID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runID
}
