package institution

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"centralledger/internal/domain"
	"centralledger/pkg/errors"
)

type ServiceSuite struct {
	suite.Suite
	store   *InMemoryStore
	service *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = NewInMemory()
	s.service = New(s.store)
}

func (s *ServiceSuite) TestRegister() {
	ctx := context.Background()

	s.Run("creates fi with credentials", func() {
		reg, err := s.service.Register(ctx, "Bank-A", "http://bank-a.example.com:5001")
		s.Require().NoError(err)
		s.False(reg.Existing)
		s.NotEmpty(reg.APIKey)
		s.NotEmpty(reg.FI.PublicKey)
		s.Equal(domain.FIStatusActive, reg.FI.Status)
		s.Zero(reg.FI.AllocatedFunds)

		s.NoError(s.service.VerifyAPIKey(ctx, reg.FI.ID, reg.APIKey))
	})

	s.Run("empty name rejected", func() {
		_, err := s.service.Register(ctx, "  ", "http://bank.example.com")
		s.True(errors.HasCode(err, errors.CodeValidation))
	})

	s.Run("invalid endpoint rejected", func() {
		_, err := s.service.Register(ctx, "Bank-B", "not a url")
		s.True(errors.HasCode(err, errors.CodeValidation))
	})
}

func (s *ServiceSuite) TestRegisterIdempotentByEndpoint() {
	ctx := context.Background()

	first, err := s.service.Register(ctx, "Bank-A", "http://bank-a.example.com:5001")
	s.Require().NoError(err)

	second, err := s.service.Register(ctx, "Bank-A", "http://bank-a.example.com:5001")
	s.Require().NoError(err)
	s.True(second.Existing)
	s.Empty(second.APIKey, "re-registration must not rotate credentials")
	s.Equal(first.FI.ID, second.FI.ID)
	s.Equal(first.FI.UpdatedAt, second.FI.UpdatedAt, "record must be unchanged")
}

func (s *ServiceSuite) TestRegisterMergesRenamedDuplicate() {
	ctx := context.Background()

	first, err := s.service.Register(ctx, "Bank-A", "http://bank-a.example.com:5001")
	s.Require().NoError(err)

	renamed, err := s.service.Register(ctx, "Bank-A Renamed", "http://bank-a.example.com:5001")
	s.Require().NoError(err)
	s.True(renamed.Existing)
	s.Equal(first.FI.ID, renamed.FI.ID)
	s.Equal("Bank-A Renamed", renamed.FI.Name)
}

func (s *ServiceSuite) TestVerifyAPIKeyRejectsWrongKey() {
	ctx := context.Background()
	reg, err := s.service.Register(ctx, "Bank-A", "http://bank-a.example.com:5001")
	s.Require().NoError(err)

	err = s.service.VerifyAPIKey(ctx, reg.FI.ID, "wrong-key")
	s.True(errors.HasCode(err, errors.CodeUnauthorized))
}

func (s *ServiceSuite) TestSetStatus() {
	ctx := context.Background()
	reg, err := s.service.Register(ctx, "Bank-A", "http://bank-a.example.com:5001")
	s.Require().NoError(err)

	s.NoError(s.service.SetStatus(ctx, reg.FI.ID, domain.FIStatusSuspended))
	fi, err := s.service.Get(ctx, reg.FI.ID)
	s.Require().NoError(err)
	s.Equal(domain.FIStatusSuspended, fi.Status)

	err = s.service.SetStatus(ctx, reg.FI.ID, "dissolved")
	s.True(errors.HasCode(err, errors.CodeValidation))
}

func (s *ServiceSuite) TestGetUnknown() {
	_, err := s.service.Get(context.Background(), "fi-missing")
	s.True(errors.HasCode(err, errors.CodeNotFound))
}

func (s *ServiceSuite) TestApplyAllocationIncreasesBothBalances() {
	ctx := context.Background()
	reg, err := s.service.Register(ctx, "Bank-A", "http://bank-a.example.com:5001")
	s.Require().NoError(err)

	fi, err := s.store.ApplyAllocation(ctx, reg.FI.ID, 500)
	s.Require().NoError(err)
	s.InDelta(500.0, fi.AllocatedFunds, 1e-9)
	s.InDelta(500.0, fi.AvailableBalance, 1e-9)
}
