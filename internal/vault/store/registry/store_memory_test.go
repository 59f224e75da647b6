package registry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"custody/internal/vault/models"
	id "custody/pkg/domain"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
}

func (s *InMemoryStoreSuite) TestGetBeforeInitialize() {
	reg, err := s.store.Get(context.Background())
	require.NoError(s.T(), err)
	assert.False(s.T(), reg.Initialized)
	assert.Equal(s.T(), id.VaultID(0), reg.NextVaultID)
}

func (s *InMemoryStoreSuite) TestUpdateKeepsOnlySuccessfulChanges() {
	ctx := context.Background()
	now := time.Now()

	_, err := s.store.Update(ctx, func(r *models.Registry) error { return r.Initialize(now) })
	require.NoError(s.T(), err)

	_, err = s.store.Update(ctx, func(r *models.Registry) error {
		r.NextVaultID = 99
		return r.Initialize(now)
	})
	assert.ErrorIs(s.T(), err, models.ErrRegistryAlreadyInitialized)

	reg, err := s.store.Get(ctx)
	require.NoError(s.T(), err)
	assert.True(s.T(), reg.Initialized)
	assert.Equal(s.T(), id.VaultID(1), reg.NextVaultID)
}

func (s *InMemoryStoreSuite) TestConcurrentAllocationIsUnique() {
	ctx := context.Background()
	_, err := s.store.Update(ctx, func(r *models.Registry) error { return r.Initialize(time.Now()) })
	require.NoError(s.T(), err)

	const workers = 50
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[id.VaultID]bool)
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var got id.VaultID
			_, err := s.store.Update(ctx, func(r *models.Registry) error {
				var err error
				got, err = r.AllocateVaultID()
				return err
			})
			s.NoError(err)
			mu.Lock()
			seen[got] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(s.T(), seen, workers)
	reg, err := s.store.Get(ctx)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), id.VaultID(workers+1), reg.NextVaultID)
}
