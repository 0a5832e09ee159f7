package cli

import (
	"testing"

	"github.com/sprintertech/sprinter-treasury/config"
	"github.com/stretchr/testify/suite"
)

type RootCMDTestSuite struct {
	suite.Suite
}

func TestRunRootCMDTestSuite(t *testing.T) {
	suite.Run(t, new(RootCMDTestSuite))
}

func (s *RootCMDTestSuite) Test_Commands() {
	s.Equal("treasury", rootCMD.Use)

	for _, path := range [][]string{
		{"run"},
		{"coupon", "canonical"},
		{"coupon", "recover"},
		{"coupon", "marker"},
		{"coupon", "sign"},
	} {
		cmd, _, err := rootCMD.Find(path)
		s.Nil(err)
		s.Equal(path[len(path)-1], cmd.Name())
	}
}

func (s *RootCMDTestSuite) Test_ConfigFlags() {
	s.NotNil(rootCMD.PersistentFlags().Lookup(config.ConfigFlagName))
	s.NotNil(rootCMD.PersistentFlags().Lookup(config.EnvFileFlagName))
}
