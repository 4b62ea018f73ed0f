package idgen_test

import (
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/dungeonbreak/internal/pkg/idgen"
)

type IDGenTestSuite struct {
	suite.Suite
}

func (s *IDGenTestSuite) TestUUIDGenerator() {
	s.Run("with prefix", func() {
		id := idgen.NewUUID("save").Generate()
		s.True(strings.HasPrefix(id, "save_"))
		_, err := uuid.Parse(strings.TrimPrefix(id, "save_"))
		s.NoError(err)
	})

	s.Run("without prefix", func() {
		_, err := uuid.Parse(idgen.NewUUID("").Generate())
		s.NoError(err)
	})
}

func (s *IDGenTestSuite) TestSequentialGenerator() {
	gen := idgen.NewSequential("session")
	s.Equal("session_1", gen.Generate())
	s.Equal("session_2", gen.Generate())
	s.Equal("1", idgen.NewSequential("").Generate())
}

func (s *IDGenTestSuite) TestSequentialGeneratorConcurrent() {
	gen := idgen.NewSequential("n")
	seen := sync.Map{}
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, dup := seen.LoadOrStore(gen.Generate(), true)
			s.False(dup)
		}()
	}
	wg.Wait()
}

func TestIDGenTestSuite(t *testing.T) {
	suite.Run(t, new(IDGenTestSuite))
}
