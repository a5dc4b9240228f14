package httptransport

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"centralledger/internal/alert"
	"centralledger/internal/compliance"
	"centralledger/internal/ficlient"
	"centralledger/internal/institution"
	"centralledger/internal/ledger"
	"centralledger/internal/nullifier"
	"centralledger/internal/platform/middleware"
	"centralledger/internal/reconcile"
	"centralledger/internal/screening"
)

const testSigningKey = "test-signing-key"

type HandlersSuite struct {
	suite.Suite
	server     *httptest.Server
	adminToken string

	fiID   string
	apiKey string
}

func TestHandlersSuite(t *testing.T) {
	suite.Run(t, new(HandlersSuite))
}

func (s *HandlersSuite) SetupTest() {
	fiStore := institution.NewInMemory()
	institutions := institution.New(fiStore)
	nullifiers := nullifier.New(nullifier.NewInMemory())
	alerts := alert.New(alert.NewInMemory())
	scr := screening.New(screening.NewInMemory(), alerts)
	engine := compliance.New(
		compliance.NewInMemoryRules(),
		compliance.NewInMemoryStatus(),
		scr,
		alerts,
	)
	monitorRules := alert.NewInMemoryRules()
	monitor := alert.NewMonitor(monitorRules, alerts, nil)
	ledgerSvc := ledger.New(ledger.NewInMemory(fiStore), fiStore)
	reconciler := reconcile.New(fiStore, ficlient.New())

	h := NewHandler(institutions, nullifiers, engine, scr, alerts, monitor, ledgerSvc, reconciler, nil)
	s.server = httptest.NewServer(NewRouter(h, middleware.NewJWTValidator(testSigningKey)))

	token, err := middleware.SignAdminToken(testSigningKey, "operator-1", "admin", time.Hour)
	s.Require().NoError(err)
	s.adminToken = token

	// Bootstrap one FI for the FI-authenticated endpoints.
	resp := s.do(http.MethodPost, "/api/v1/institutions", map[string]any{
		"name":     "Bank A",
		"endpoint": "http://bank-a.example.test",
	}, nil)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	var reg struct {
		ID     string `json:"id"`
		APIKey string `json:"api_key"`
	}
	s.decode(resp, &reg)
	s.Require().NotEmpty(reg.APIKey)
	s.fiID = reg.ID
	s.apiKey = reg.APIKey
}

func (s *HandlersSuite) TearDownTest() {
	s.server.Close()
}

func (s *HandlersSuite) do(method, path string, body any, headers map[string]string) *http.Response {
	var payload *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		payload = bytes.NewReader(raw)
	} else {
		payload = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, s.server.URL+path, payload)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := s.server.Client().Do(req)
	s.Require().NoError(err)
	return resp
}

func (s *HandlersSuite) asAdmin() map[string]string {
	return map[string]string{"Authorization": "Bearer " + s.adminToken}
}

func (s *HandlersSuite) asFI() map[string]string {
	return map[string]string{"X-FI-ID": s.fiID, "X-API-Key": s.apiKey}
}

func (s *HandlersSuite) decode(resp *http.Response, dst any) {
	defer resp.Body.Close()
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(dst))
}

func (s *HandlersSuite) TestRegisterFIIdempotentByEndpoint() {
	resp := s.do(http.MethodPost, "/api/v1/institutions", map[string]any{
		"name":     "Bank A",
		"endpoint": "http://bank-a.example.test",
	}, nil)
	s.Equal(http.StatusOK, resp.StatusCode)

	var reg struct {
		ID       string `json:"id"`
		APIKey   string `json:"api_key"`
		Existing bool   `json:"existing"`
	}
	s.decode(resp, &reg)
	s.Equal(s.fiID, reg.ID)
	s.True(reg.Existing)
	s.Empty(reg.APIKey, "the api key is one-time only")
}

func (s *HandlersSuite) TestAdminAuthRequired() {
	resp := s.do(http.MethodGet, "/api/v1/institutions", nil, nil)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	resp = s.do(http.MethodGet, "/api/v1/institutions", nil, map[string]string{
		"Authorization": "Bearer not-a-token",
	})
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	resp = s.do(http.MethodGet, "/api/v1/institutions", nil, s.asAdmin())
	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *HandlersSuite) TestFIAuthRequired() {
	resp := s.do(http.MethodPost, "/api/v1/nullifiers", map[string]any{
		"nullifier": "n1", "transaction_id": "tx-1", "amount": 10,
	}, nil)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	resp = s.do(http.MethodPost, "/api/v1/nullifiers", map[string]any{
		"nullifier": "n1", "transaction_id": "tx-1", "amount": 10,
	}, map[string]string{"X-FI-ID": s.fiID, "X-API-Key": "wrong"})
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *HandlersSuite) TestNullifierLifecycle() {
	resp := s.do(http.MethodPost, "/api/v1/nullifiers", map[string]any{
		"nullifier": "n1", "transaction_id": "tx-1", "serial_number": "s1", "amount": 25,
	}, s.asFI())
	s.Equal(http.StatusCreated, resp.StatusCode)

	// Double spend maps to 409.
	resp = s.do(http.MethodPost, "/api/v1/nullifiers", map[string]any{
		"nullifier": "n1", "transaction_id": "tx-2", "amount": 25,
	}, s.asFI())
	s.Equal(http.StatusConflict, resp.StatusCode)
	var errBody struct {
		Error string `json:"error"`
	}
	s.decode(resp, &errBody)
	s.Equal("double_spend", errBody.Error)

	resp = s.do(http.MethodGet, "/api/v1/nullifiers/n1", nil, s.asFI())
	s.Equal(http.StatusOK, resp.StatusCode)
	var check struct {
		Exists        bool   `json:"exists"`
		TransactionID string `json:"transaction_id"`
	}
	s.decode(resp, &check)
	s.True(check.Exists)
	s.Equal("tx-1", check.TransactionID)

	resp = s.do(http.MethodGet, "/api/v1/nullifiers/unknown", nil, s.asFI())
	s.Equal(http.StatusOK, resp.StatusCode)
	s.decode(resp, &check)
	s.False(check.Exists)
}

func (s *HandlersSuite) TestSyncNullifiersPartialFailure() {
	resp := s.do(http.MethodPost, "/api/v1/nullifiers", map[string]any{
		"nullifier": "dup", "transaction_id": "tx-0", "amount": 5,
	}, s.asFI())
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	resp = s.do(http.MethodPost, "/api/v1/nullifiers/sync", map[string]any{
		"nullifiers": []map[string]any{
			{"nullifier": "a", "transaction_id": "tx-1", "amount": 1},
			{"nullifier": "dup", "transaction_id": "tx-2", "amount": 2},
			{"nullifier": "b", "transaction_id": "tx-3", "amount": 3},
		},
	}, s.asFI())
	s.Equal(http.StatusOK, resp.StatusCode)

	var sync struct {
		Registered int `json:"registered"`
		Errors     []struct {
			Index     int    `json:"index"`
			Nullifier string `json:"nullifier"`
		} `json:"errors"`
	}
	s.decode(resp, &sync)
	s.Equal(2, sync.Registered)
	s.Require().Len(sync.Errors, 1)
	s.Equal(1, sync.Errors[0].Index)
	s.Equal("dup", sync.Errors[0].Nullifier)
}

func (s *HandlersSuite) TestComplianceCheckWithRule() {
	resp := s.do(http.MethodPost, "/api/v1/compliance/rules", map[string]any{
		"rule_type": "transaction_limit", "target_type": "wallet", "limit_value": 100,
	}, s.asAdmin())
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	resp = s.do(http.MethodPost, "/api/v1/compliance/check", map[string]any{
		"wallet_id": "w1", "amount": 150, "tx_type": "online",
	}, s.asFI())
	s.Equal(http.StatusOK, resp.StatusCode)

	var check struct {
		Compliant  bool `json:"compliant"`
		Blocked    bool `json:"blocked"`
		Violations []struct {
			Type string `json:"type"`
		} `json:"violations"`
	}
	s.decode(resp, &check)
	s.True(check.Compliant, "soft limit does not block")
	s.False(check.Blocked)
	s.Len(check.Violations, 1)
}

func (s *HandlersSuite) TestFreezeBlocksComplianceCheck() {
	resp := s.do(http.MethodPost, "/api/v1/screening/freeze", map[string]any{
		"entity_type": "wallet", "entity_id": "w1", "reason": "investigation",
	}, s.asAdmin())
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	resp = s.do(http.MethodPost, "/api/v1/compliance/check", map[string]any{
		"wallet_id": "w1", "amount": 10,
	}, s.asFI())
	s.Equal(http.StatusOK, resp.StatusCode)
	var check struct {
		Blocked bool `json:"blocked"`
	}
	s.decode(resp, &check)
	s.True(check.Blocked, "network-wide freeze blocks under any fi")

	resp = s.do(http.MethodPost, "/api/v1/screening/unfreeze", map[string]any{
		"entity_type": "wallet", "entity_id": "w1", "reason": "cleared",
	}, s.asAdmin())
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	resp = s.do(http.MethodPost, "/api/v1/compliance/check", map[string]any{
		"wallet_id": "w1", "amount": 10,
	}, s.asFI())
	s.decode(resp, &check)
	s.False(check.Blocked)
}

func (s *HandlersSuite) TestAllocateAndLedger() {
	resp := s.do(http.MethodPost, "/api/v1/institutions/"+s.fiID+"/allocate", map[string]any{
		"amount": 500.0,
	}, s.asAdmin())
	s.Equal(http.StatusCreated, resp.StatusCode)

	var alloc struct {
		Institution struct {
			AllocatedFunds   float64 `json:"allocated_funds"`
			AvailableBalance float64 `json:"available_balance"`
		} `json:"institution"`
	}
	s.decode(resp, &alloc)
	s.Equal(float64(500), alloc.Institution.AllocatedFunds)
	s.Equal(float64(500), alloc.Institution.AvailableBalance)

	resp = s.do(http.MethodGet, "/api/v1/ledger?limit=10", nil, s.asAdmin())
	s.Equal(http.StatusOK, resp.StatusCode)
	var led struct {
		Entries []struct {
			Type   string  `json:"type"`
			Amount float64 `json:"amount"`
		} `json:"entries"`
	}
	s.decode(resp, &led)
	s.Require().Len(led.Entries, 1)
	s.Equal("allocation", led.Entries[0].Type)
}

func (s *HandlersSuite) TestCrossFIRouteAndPendingPull() {
	resp := s.do(http.MethodPost, "/api/v1/institutions", map[string]any{
		"name":     "Bank B",
		"endpoint": "http://bank-b.example.test",
	}, nil)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	var regB struct {
		ID     string `json:"id"`
		APIKey string `json:"api_key"`
	}
	s.decode(resp, &regB)

	resp = s.do(http.MethodPost, "/api/v1/transfers/cross-fi", map[string]any{
		"target_fi": regB.ID, "from_wallet": "w1", "to_wallet": "w2", "amount": 75.0,
	}, s.asFI())
	s.Equal(http.StatusCreated, resp.StatusCode)
	var route struct {
		ToWallet string `json:"to_wallet"`
	}
	s.decode(resp, &route)
	s.Equal("w2@"+regB.ID, route.ToWallet)

	// Bank B pulls its pending transfers with its own credentials.
	resp = s.do(http.MethodGet, "/api/v1/transfers/pending", nil, map[string]string{
		"X-FI-ID": regB.ID, "X-API-Key": regB.APIKey,
	})
	s.Equal(http.StatusOK, resp.StatusCode)
	var pending struct {
		Pending []struct {
			SourceFI string `json:"source_fi"`
		} `json:"pending"`
	}
	s.decode(resp, &pending)
	s.Require().Len(pending.Pending, 1)
	s.Equal(s.fiID, pending.Pending[0].SourceFI)

	// Nothing pending for the source FI.
	resp = s.do(http.MethodGet, "/api/v1/transfers/pending", nil, s.asFI())
	s.decode(resp, &pending)
	s.Empty(pending.Pending)
}

func (s *HandlersSuite) TestReconcileUnreachableFI() {
	resp := s.do(http.MethodPost, "/api/v1/reconcile", nil, s.asAdmin())
	s.Equal(http.StatusOK, resp.StatusCode)

	var report struct {
		IsBalanced  bool     `json:"is_balanced"`
		Unreachable []string `json:"unreachable"`
	}
	s.decode(resp, &report)
	// The registered endpoint is not a live server.
	s.Equal([]string{s.fiID}, report.Unreachable)
}

func (s *HandlersSuite) TestAlertTriage() {
	resp := s.do(http.MethodPost, "/api/v1/screening/freeze", map[string]any{
		"entity_type": "wallet", "entity_id": "w9", "reason": "test",
	}, s.asAdmin())
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	resp = s.do(http.MethodGet, "/api/v1/alerts?unresolved=true", nil, s.asAdmin())
	s.Equal(http.StatusOK, resp.StatusCode)
	var list struct {
		Alerts []struct {
			ID      string `json:"id"`
			Type    string `json:"type"`
			Details struct {
				Kind string `json:"kind"`
			} `json:"details"`
		} `json:"alerts"`
	}
	s.decode(resp, &list)
	s.Require().Len(list.Alerts, 1)
	s.Equal("entity_frozen", list.Alerts[0].Type)
	// Details stay kind-tagged on the wire so API consumers can tell
	// shapes apart.
	s.Equal("freeze", list.Alerts[0].Details.Kind)

	resp = s.do(http.MethodPost, "/api/v1/alerts/"+list.Alerts[0].ID+"/resolve", nil, s.asAdmin())
	s.Equal(http.StatusOK, resp.StatusCode)

	resp = s.do(http.MethodGet, "/api/v1/alerts?unresolved=true", nil, s.asAdmin())
	s.decode(resp, &list)
	s.Empty(list.Alerts)
}

func (s *HandlersSuite) TestDashboard() {
	resp := s.do(http.MethodGet, "/api/v1/compliance/dashboard", nil, s.asAdmin())
	s.Equal(http.StatusOK, resp.StatusCode)

	var dash struct {
		Institutions     int   `json:"institutions"`
		FrozenCount      int64 `json:"frozen_count"`
		UnresolvedAlerts int64 `json:"unresolved_alerts"`
	}
	s.decode(resp, &dash)
	s.Equal(1, dash.Institutions)
}

func (s *HandlersSuite) TestValidationAndNotFoundMapping() {
	resp := s.do(http.MethodPost, "/api/v1/institutions", map[string]any{
		"name": "", "endpoint": "not a url",
	}, nil)
	s.Equal(http.StatusBadRequest, resp.StatusCode)

	resp = s.do(http.MethodGet, "/api/v1/institutions/fi-missing", nil, s.asAdmin())
	s.Equal(http.StatusNotFound, resp.StatusCode)

	resp = s.do(http.MethodGet, "/healthz", nil, nil)
	s.Equal(http.StatusOK, resp.StatusCode)
}
