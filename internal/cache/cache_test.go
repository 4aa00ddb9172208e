package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type CacheTestSuite struct {
	suite.Suite

	now   time.Time
	cache *Cache[string]
}

func (suite *CacheTestSuite) SetupTest() {
	suite.now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	suite.cache = New[string]().WithClock(func() time.Time { return suite.now })
}

func (suite *CacheTestSuite) advance(d time.Duration) {
	suite.now = suite.now.Add(d)
}

func (suite *CacheTestSuite) TestExpiry() {
	suite.cache.Set("lsblk", "table", TTLFast)

	v, ok := suite.cache.Get("lsblk")
	suite.True(ok)
	suite.Equal("table", v)

	suite.advance(TTLFast - time.Millisecond)
	_, ok = suite.cache.Get("lsblk")
	suite.True(ok)

	suite.advance(time.Millisecond)
	_, ok = suite.cache.Get("lsblk")
	suite.False(ok)
}

func (suite *CacheTestSuite) TestGetOrLoad() {
	calls := 0
	load := func() (string, error) {
		calls++
		return "loaded", nil
	}

	for i := 0; i < 3; i++ {
		v, err := suite.cache.GetOrLoad("k", TTLFast, load)
		suite.NoError(err)
		suite.Equal("loaded", v)
	}
	suite.Equal(1, calls)

	suite.advance(TTLFast)
	_, err := suite.cache.GetOrLoad("k", TTLFast, load)
	suite.NoError(err)
	suite.Equal(2, calls)

	suite.cache.Clear()
	_, err = suite.cache.GetOrLoad("k", TTLFast, load)
	suite.NoError(err)
	suite.Equal(3, calls)
}

func (suite *CacheTestSuite) TestGetOrLoadError() {
	boom := errors.New("boom")
	_, err := suite.cache.GetOrLoad("k", TTLFast, func() (string, error) { return "", boom })
	suite.ErrorIs(err, boom)

	_, ok := suite.cache.Get("k")
	suite.False(ok)
}

func (suite *CacheTestSuite) TestClear() {
	suite.cache.Set("a", "1", time.Hour)
	suite.cache.Set("b", "2", time.Hour)

	suite.cache.Clear()
	_, ok := suite.cache.Get("a")
	suite.False(ok)
	_, ok = suite.cache.Get("b")
	suite.False(ok)
}

func TestCache(t *testing.T) {
	suite.Run(t, new(CacheTestSuite))
}
