package issuer_test

import (
	"testing"

	"github.com/sprintertech/sprinter-treasury/issuer"
	"github.com/sprintertech/sprinter-treasury/signature"
	"github.com/stretchr/testify/suite"
)

const (
	trustedKey = "c1ab9735077d400d7e992087ed3e09721ecd25d2238f5b6d0ec5f899aff090db0f3c5b976ca2305440f31367e3b5c51cb58413de5962714ea41015812ed5069f"
	rotatedKey = "32cc41c0d57c3091ec07fd74c23ae98b18e938fc20a2c03bc3b1780ba74fb0b25e10bdc234c8a28c051f0aab1047fb16c718926fce90b6f57821619339d55240"
	scamKey    = "79ff11c37d73cbf543fbad745743919e1368a04ed9288d331ad08eed17059aa61c1a06848c96b9d18c5a3fffc991eff9bca540114c3211e766c0850aeab162c5"
)

type AllowListTestSuite struct {
	suite.Suite

	allowList *issuer.AllowList
	trusted   signature.PublicKey
	rotated   signature.PublicKey
	scam      signature.PublicKey
}

func TestRunAllowListTestSuite(t *testing.T) {
	suite.Run(t, new(AllowListTestSuite))
}

func (s *AllowListTestSuite) SetupTest() {
	var err error
	s.trusted, err = signature.ParsePublicKey(trustedKey)
	s.Nil(err)
	s.rotated, err = signature.ParsePublicKey(rotatedKey)
	s.Nil(err)
	s.scam, err = signature.ParsePublicKey(scamKey)
	s.Nil(err)

	s.allowList, err = issuer.NewAllowList(
		issuer.Key{Version: 1, PublicKey: s.trusted},
		issuer.Key{Version: 2, PublicKey: s.rotated},
	)
	s.Nil(err)
}

func (s *AllowListTestSuite) Test_Authorize_Trusted() {
	key, err := s.allowList.Authorize(s.trusted)

	s.Nil(err)
	s.Equal(uint32(1), key.Version)
}

func (s *AllowListTestSuite) Test_Authorize_AnyCandidate() {
	key, err := s.allowList.Authorize(s.scam, s.rotated)

	s.Nil(err)
	s.Equal(uint32(2), key.Version)
}

func (s *AllowListTestSuite) Test_Authorize_Untrusted() {
	_, err := s.allowList.Authorize(s.scam)

	s.ErrorIs(err, issuer.ErrUntrustedSigner)
}

func (s *AllowListTestSuite) Test_Authorize_NoCandidates() {
	_, err := s.allowList.Authorize()

	s.ErrorIs(err, issuer.ErrUntrustedSigner)
}

func (s *AllowListTestSuite) Test_AuthorizeVersion_WrongVersion() {
	_, err := s.allowList.AuthorizeVersion(2, s.trusted)

	s.ErrorIs(err, issuer.ErrUntrustedSigner)
}

func (s *AllowListTestSuite) Test_AuthorizeVersion_UnknownVersion() {
	_, err := s.allowList.AuthorizeVersion(7, s.trusted)

	s.ErrorIs(err, issuer.ErrUnknownKeyVersion)
}

func (s *AllowListTestSuite) Test_AuthorizeVersion_Match() {
	key, err := s.allowList.AuthorizeVersion(1, s.trusted)

	s.Nil(err)
	s.Equal(s.trusted, key.PublicKey)
}

func (s *AllowListTestSuite) Test_NewAllowList_Empty() {
	_, err := issuer.NewAllowList()

	s.ErrorIs(err, issuer.ErrEmptyAllowList)
}

func (s *AllowListTestSuite) Test_NewAllowList_DuplicateVersion() {
	_, err := issuer.NewAllowList(
		issuer.Key{Version: 1, PublicKey: s.trusted},
		issuer.Key{Version: 1, PublicKey: s.rotated},
	)

	s.ErrorIs(err, issuer.ErrDuplicateVersion)
}

func (s *AllowListTestSuite) Test_ParseAllowList() {
	allowList, err := issuer.ParseAllowList("3:0x" + trustedKey + ", 4:04" + rotatedKey)

	s.Nil(err)
	keys := allowList.Keys()
	s.Len(keys, 2)
	s.Equal(uint32(3), keys[0].Version)
	s.Equal(s.trusted, keys[0].PublicKey)
	s.Equal(uint32(4), keys[1].Version)
	s.Equal(s.rotated, keys[1].PublicKey)
}

func (s *AllowListTestSuite) Test_ParseAllowList_Unversioned() {
	allowList, err := issuer.ParseAllowList(trustedKey)

	s.Nil(err)
	s.Equal(uint32(0), allowList.Keys()[0].Version)
}

func (s *AllowListTestSuite) Test_ParseAllowList_InvalidKey() {
	_, err := issuer.ParseAllowList("1:abcd")

	s.ErrorIs(err, signature.ErrInvalidPublicKey)
}
