package reconcile

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/suite"

	"centralledger/internal/domain"
	"centralledger/internal/ficlient"
	"centralledger/internal/institution"
)

type ReconcilerSuite struct {
	suite.Suite
	institutions *institution.InMemoryStore
}

func TestReconcilerSuite(t *testing.T) {
	suite.Run(t, new(ReconcilerSuite))
}

func (s *ReconcilerSuite) SetupTest() {
	s.institutions = institution.NewInMemory()
}

func (s *ReconcilerSuite) statsServer(available, inUser float64) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ficlient.Stats{
			AvailableBalance: available,
			InUserHands:      inUser,
		})
	}))
}

func (s *ReconcilerSuite) addFI(id, endpoint string, allocated float64) {
	ctx := context.Background()
	fi := &domain.FinancialInstitution{
		ID:       id,
		Name:     "Bank " + id,
		Status:   domain.FIStatusActive,
		Endpoint: endpoint,
	}
	s.Require().NoError(s.institutions.Create(ctx, fi, "hash"))
	if allocated > 0 {
		_, err := s.institutions.ApplyAllocation(ctx, id, allocated)
		s.Require().NoError(err)
	}
}

func (s *ReconcilerSuite) TestBalancedSupply() {
	srv := s.statsServer(600, 400)
	defer srv.Close()
	s.addFI("fi-a", srv.URL, 1000)

	report, err := New(s.institutions, ficlient.New()).Run(context.Background())
	s.Require().NoError(err)
	s.Equal(float64(1000), report.TotalAllocated)
	s.Equal(float64(1000), report.TotalReported)
	s.True(report.IsBalanced)
	s.Zero(report.Discrepancy)
	s.Empty(report.Unreachable)
}

func (s *ReconcilerSuite) TestDiscrepancyDetected() {
	srv := s.statsServer(600, 390)
	defer srv.Close()
	s.addFI("fi-a", srv.URL, 1000)

	report, err := New(s.institutions, ficlient.New()).Run(context.Background())
	s.Require().NoError(err)
	s.False(report.IsBalanced)
	s.Equal(float64(10), report.Discrepancy)
}

func (s *ReconcilerSuite) TestUnreachableFIContributesZero() {
	up := s.statsServer(300, 200)
	defer up.Close()
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	down.Close()

	s.addFI("fi-up", up.URL, 500)
	s.addFI("fi-down", down.URL, 700)

	report, err := New(s.institutions, ficlient.New()).Run(context.Background())
	s.Require().NoError(err)
	// The down FI's allocation still counts on the Central-Bank side but
	// reports nothing, so the run surfaces the full 700 as drift.
	s.Equal(float64(1200), report.TotalAllocated)
	s.Equal(float64(500), report.TotalReported)
	s.Equal(float64(700), report.Discrepancy)
	s.False(report.IsBalanced)
	s.Equal([]string{"fi-down"}, report.Unreachable)

	for _, rep := range report.FIs {
		if rep.FIID == "fi-down" {
			s.False(rep.Reachable)
			s.Zero(rep.AvailableBalance)
		} else {
			s.True(rep.Reachable)
		}
	}
}

func (s *ReconcilerSuite) TestNoInstitutions() {
	report, err := New(s.institutions, ficlient.New()).Run(context.Background())
	s.Require().NoError(err)
	s.True(report.IsBalanced)
	s.Empty(report.FIs)
}

func (s *ReconcilerSuite) TestFloatingPointDriftAbsorbed() {
	// 0.1+0.2 style sums stay inside the epsilon through decimal math.
	srv := s.statsServer(0.1, 0.2)
	defer srv.Close()
	s.addFI("fi-a", srv.URL, 0.3)

	report, err := New(s.institutions, ficlient.New()).Run(context.Background())
	s.Require().NoError(err)
	s.True(report.IsBalanced)
}
