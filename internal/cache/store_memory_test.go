package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"offersync/pkg/requestcontext"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	base  time.Time
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *InMemoryStoreSuite) at(offset time.Duration) context.Context {
	return requestcontext.WithTime(context.Background(), s.base.Add(offset))
}

func (s *InMemoryStoreSuite) TestGetSet() {
	key := Key("listing", "groceries")

	s.Run("absent key misses", func() {
		_, err := s.store.Get(s.at(0), key)
		s.ErrorIs(err, ErrMiss)
	})

	s.Run("fresh entry hits", func() {
		s.Require().NoError(s.store.Set(s.at(0), key, []byte(`{"n":1}`), 5*time.Second))
		got, err := s.store.Get(s.at(4*time.Second), key)
		s.Require().NoError(err)
		s.JSONEq(`{"n":1}`, string(got))
	})

	s.Run("entry past ttl misses and is evicted", func() {
		s.Require().NoError(s.store.Set(s.at(0), key, []byte(`{"n":1}`), 5*time.Second))
		_, err := s.store.Get(s.at(6*time.Second), key)
		s.ErrorIs(err, ErrMiss)
		s.Equal(0, s.store.Len())
	})

	s.Run("sub-second ttl rounds up to a usable entry", func() {
		s.Require().NoError(s.store.Set(s.at(0), key, []byte(`f`), 500*time.Millisecond))

		got, err := s.store.Get(s.at(800*time.Millisecond), key)
		s.Require().NoError(err)
		s.Equal([]byte(`f`), got)

		_, err = s.store.Get(s.at(1500*time.Millisecond), key)
		s.ErrorIs(err, ErrMiss)
	})

	s.Run("set resets the expiry clock", func() {
		s.Require().NoError(s.store.Set(s.at(0), key, []byte(`1`), 5*time.Second))
		s.Require().NoError(s.store.Set(s.at(4*time.Second), key, []byte(`2`), 5*time.Second))
		got, err := s.store.Get(s.at(8*time.Second), key)
		s.Require().NoError(err)
		s.Equal([]byte(`2`), got)
	})
}

func (s *InMemoryStoreSuite) TestInvalidate() {
	key := Key("listing", "all")
	s.Require().NoError(s.store.Set(s.at(0), key, []byte(`x`), time.Hour))

	s.Require().NoError(s.store.Invalidate(s.at(0), key))

	_, err := s.store.Get(s.at(time.Second), key)
	s.ErrorIs(err, ErrMiss)
}

func (s *InMemoryStoreSuite) TestCleanupExpired() {
	s.Require().NoError(s.store.Set(s.at(0), Key("a"), []byte(`a`), 5*time.Second))
	s.Require().NoError(s.store.Set(s.at(0), Key("b"), []byte(`b`), 10*time.Second))
	s.Require().NoError(s.store.Set(s.at(0), Key("c"), []byte(`c`), time.Hour))

	evicted, err := s.store.CleanupExpired(s.at(30 * time.Second))
	s.Require().NoError(err)
	s.Equal(2, evicted)
	s.Equal(1, s.store.Len())

	got, err := s.store.Get(s.at(30*time.Second), Key("c"))
	s.Require().NoError(err)
	s.Equal([]byte(`c`), got)
}

func (s *InMemoryStoreSuite) TestKeyNamespacing() {
	s.Run("same params share a key", func() {
		s.Equal(Key("listing", "cairo", "groceries"), Key("listing", "cairo", "groceries"))
	})

	s.Run("different params produce different keys", func() {
		s.NotEqual(Key("listing", "cairo"), Key("listing", "giza"))
	})

	s.Run("params cannot collide across separator boundaries", func() {
		s.NotEqual(Key("listing", "ab", "c"), Key("listing", "a", "bc"))
	})

	s.Run("keys carry the namespace prefix", func() {
		s.Contains(Key("listing", "x"), "cache:listing:")
	})
}
