package config_test

import (
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/lc/whereami/internal/config"
	"github.com/lc/whereami/internal/mocks"
)

type ConfigTestSuite struct {
	suite.Suite
	fs       mockFS
	provider config.Provider
}

type mockFS struct {
	files map[string]string
}

func (m mockFS) Stat(path string) (os.FileInfo, error) {
	if _, ok := m.files[path]; !ok {
		return nil, os.ErrNotExist
	}
	return nil, nil
}

func (m mockFS) MkdirAll(_ string, _ os.FileMode) error {
	return nil
}

func (m mockFS) Open(path string) (*os.File, error) {
	content, ok := m.files[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	tmp, err := os.CreateTemp("", "mock-*") // caller cleans up in t.Cleanup
	if err != nil {
		return nil, err
	}
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return nil, err
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		return nil, err
	}
	return tmp, nil
}

func (m mockFS) WriteFile(path string, content []byte, _ os.FileMode) error {
	m.files[path] = string(content)
	return nil
}

func (s *ConfigTestSuite) SetupTest() {
	s.fs = mockFS{
		files: make(map[string]string),
	}
	s.provider = config.NewWithPath(s.fs, "test/config.yaml")
}

func (s *ConfigTestSuite) TestLoadDefaultWhenNoFile() {
	// When loading configuration with no file present
	cfg, err := s.provider.Load()

	// Then default configuration should be returned
	s.Require().NoError(err)
	s.Equal(config.DefaultStrategy, cfg.Resolve.Strategy)
	s.Equal(config.DefaultTimeout, cfg.Resolve.Timeout)
	s.Equal(config.DefaultLookupTimeout, cfg.Resolve.LookupTimeout)
	s.Empty(cfg.Resolve.Providers)
}

func (s *ConfigTestSuite) TestLoadValidConfig() {
	// Given a valid config file
	s.fs.files["test/config.yaml"] = `
resolve:
  providers:
    - opendns
    - ipify
  strategy: fallback
  timeout: 10s
  lookup_timeout: 2s
`
	// When loading configuration
	cfg, err := s.provider.Load()

	// Then custom values should be loaded
	s.Require().NoError(err)
	s.Equal([]string{"opendns", "ipify"}, cfg.Resolve.Providers)
	s.Equal(config.StrategyFallback, cfg.Resolve.Strategy)
	s.Equal(10*time.Second, cfg.Resolve.Timeout)
	s.Equal(2*time.Second, cfg.Resolve.LookupTimeout)
}

func (s *ConfigTestSuite) TestPartialConfigKeepsDefaults() {
	// Given a config file that only overrides the strategy
	s.fs.files["test/config.yaml"] = `
resolve:
  strategy: fallback
`
	cfg, err := s.provider.Load()

	s.Require().NoError(err)
	s.Equal(config.StrategyFallback, cfg.Resolve.Strategy)
	s.Equal(config.DefaultTimeout, cfg.Resolve.Timeout)
	s.Equal(config.DefaultLookupTimeout, cfg.Resolve.LookupTimeout)
}

func (s *ConfigTestSuite) TestLoadInvalidYAML() {
	s.fs.files["test/config.yaml"] = "resolve: [not: valid"

	_, err := s.provider.Load()
	s.Error(err)
}

func (s *ConfigTestSuite) TestLoadUnreadableFile() {
	fs := new(mocks.MockOsFS)
	fs.On("Stat", "test").Return(nil, os.ErrNotExist)
	fs.On("MkdirAll", "test", os.FileMode(0o755)).Return(nil)
	fs.On("Open", "test/config.yaml").Return(nil, os.ErrPermission)

	_, err := config.NewWithPath(fs, "test/config.yaml").Load()
	s.Require().Error(err)
	s.NotErrorIs(err, config.ErrNoConfig)
	fs.AssertExpectations(s.T())
}

func (s *ConfigTestSuite) TestValidation() {
	valid := func() config.Config {
		return config.Config{
			Resolve: config.ResolveConfig{
				Strategy:      config.StrategyRace,
				Timeout:       5 * time.Second,
				LookupTimeout: 3 * time.Second,
			},
		}
	}

	testCases := []struct {
		name        string
		mutate      func(*config.Config)
		expectedErr string
	}{
		{
			name:   "valid configuration",
			mutate: func(_ *config.Config) {},
		},
		{
			name: "unknown strategy",
			mutate: func(c *config.Config) {
				c.Resolve.Strategy = "quorum"
			},
			expectedErr: "strategy",
		},
		{
			name: "timeout too small",
			mutate: func(c *config.Config) {
				c.Resolve.Timeout = 100 * time.Millisecond
			},
			expectedErr: "timeout must be at least 1 second",
		},
		{
			name: "lookup timeout too small",
			mutate: func(c *config.Config) {
				c.Resolve.LookupTimeout = 0
			},
			expectedErr: "lookup timeout must be at least 1 second",
		},
		{
			name: "blank provider name",
			mutate: func(c *config.Config) {
				c.Resolve.Providers = []string{"opendns", "  "}
			},
			expectedErr: "provider names cannot be empty",
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			cfg := valid()
			tc.mutate(&cfg)

			err := cfg.Validate()
			if tc.expectedErr == "" {
				s.NoError(err)
				return
			}
			s.Require().Error(err)
			s.Contains(err.Error(), tc.expectedErr)
		})
	}
}

func TestConfigTestSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}
