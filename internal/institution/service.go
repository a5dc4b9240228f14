package institution

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"centralledger/internal/domain"
	"centralledger/pkg/errors"
)

// Service orchestrates FI registration and status management.
type Service struct {
	store  Store
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(store Store, opts ...Option) *Service {
	svc := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Registration is the result of Register. APIKey is only populated for a
// newly created FI and is never recoverable afterwards; the store keeps
// a bcrypt hash.
type Registration struct {
	FI       *domain.FinancialInstitution
	APIKey   string
	Existing bool
}

// Register creates an FI or merges with the record already holding the
// endpoint. Re-registering with an unchanged name returns the existing
// record untouched; a changed name updates it in place. FIs are never
// deleted.
func (s *Service) Register(ctx context.Context, name, endpoint string) (*Registration, error) {
	name = strings.TrimSpace(name)
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if name == "" {
		return nil, errors.New(errors.CodeValidation, "name is required")
	}
	if !govalidator.IsURL(endpoint) {
		return nil, errors.New(errors.CodeValidation, "endpoint must be a valid URL")
	}

	existing, err := s.store.FindByEndpoint(ctx, endpoint)
	if err == nil {
		if existing.Name == name {
			return &Registration{FI: existing, Existing: true}, nil
		}
		merged, err := s.store.UpdateName(ctx, existing.ID, name)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, "merge duplicate registration")
		}
		s.logger.InfoContext(ctx, "merged duplicate fi registration",
			"fi_id", merged.ID, "endpoint", endpoint)
		return &Registration{FI: merged, Existing: true}, nil
	}
	if !errors.HasCode(err, errors.CodeNotFound) {
		return nil, errors.Wrap(err, errors.CodeInternal, "lookup fi by endpoint")
	}

	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "generate fi keypair")
	}

	apiKey, err := newAPIKey()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "generate fi api key")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(apiKey), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "hash fi api key")
	}

	now := time.Now()
	fi := &domain.FinancialInstitution{
		ID:        "fi-" + uuid.NewString(),
		Name:      name,
		Status:    domain.FIStatusActive,
		Endpoint:  endpoint,
		PublicKey: hex.EncodeToString(pub),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, fi, string(hash)); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "registered fi", "fi_id", fi.ID, "name", name)
	return &Registration{FI: fi, APIKey: apiKey}, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.FinancialInstitution, error) {
	if id == "" {
		return nil, errors.New(errors.CodeValidation, "fi id is required")
	}
	return s.store.FindByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*domain.FinancialInstitution, error) {
	return s.store.List(ctx)
}

func (s *Service) SetStatus(ctx context.Context, id string, status domain.FIStatus) error {
	switch status {
	case domain.FIStatusActive, domain.FIStatusSuspended:
	default:
		return errors.Newf(errors.CodeValidation, "unknown fi status %q", status)
	}
	return s.store.UpdateStatus(ctx, id, status)
}

// VerifyAPIKey checks an FI-presented credential against the stored hash.
func (s *Service) VerifyAPIKey(ctx context.Context, id, apiKey string) error {
	hash, err := s.store.APIKeyHash(ctx, id)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(apiKey)) != nil {
		return errors.New(errors.CodeUnauthorized, "invalid api key")
	}
	return nil
}

func newAPIKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
