package config

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// Store は複数のホストセッションで共有される設定のスナップショットを保持します。
// 読み取りはロックフリーで、更新は直列化されます。
type Store struct {
	mu    sync.Mutex
	cur   atomic.Pointer[Config]
	level *slog.LevelVar
	path  string
}

// NewStore は cfg を補正して保持します。level が nil でなければログレベルを追従させます。
func NewStore(cfg Config, level *slog.LevelVar, path string) *Store {
	s := &Store{level: level, path: path}
	s.publish(cfg)
	return s
}

func (s *Store) Load() Config {
	return *s.cur.Load()
}

// Path は保存先のファイルパスです。空なら保存しません。
func (s *Store) Path() string { return s.path }

// Update は fn で現在値を変更し、補正してから公開します。
func (s *Store) Update(fn func(*Config)) Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.Load()
	fn(&next)
	return s.publish(next)
}

// Replace は設定全体を置き換えます。reload で使います。
func (s *Store) Replace(cfg Config) Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.publish(cfg)
}

// Persist は保存先が設定されていれば現在値を書き出します。
func (s *Store) Persist() error {
	if s.path == "" {
		return nil
	}
	return Save(s.path, s.Load())
}

func (s *Store) publish(cfg Config) Config {
	cfg.Clamp()
	s.cur.Store(&cfg)
	if s.level != nil {
		s.level.Set(cfg.SlogLevel())
	}
	return cfg
}
