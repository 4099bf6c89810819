package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"gorm.io/gorm"

	"github.com/vfa-khuongdv/drivectl/internal/database"
)

var log = logging.Logger("auth")

// Tokens are refreshed when they expire within this window
const refreshWindow = 5 * time.Minute

// TokenStore persists access tokens between runs
type TokenStore interface {
	SaveTokenConfig(config *database.TokenConfig) error
	GetTokenConfig(clientEmail string) (*database.TokenConfig, error)
}

// Service authenticates to the Drive API as a service account
type Service struct {
	config *jwt.Config
	store  TokenStore
	mutex  sync.Mutex
}

// TokenInfo represents token information for display
type TokenInfo struct {
	ClientEmail string    `json:"client_email"`
	HasToken    bool      `json:"has_token"`
	Expiry      time.Time `json:"expiry,omitempty"`
	Valid       bool      `json:"valid"`
}

// NewService reads a service-account key file and creates an auth service.
// The full Drive scope is used when no scopes are given.
func NewService(keyFile string, scopes []string, store TokenStore) (*Service, error) {
	if keyFile == "" {
		return nil, fmt.Errorf("key file is required")
	}

	data, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	return NewServiceFromJSON(data, scopes, store)
}

// NewServiceFromJSON creates an auth service from the contents of a key file
func NewServiceFromJSON(data []byte, scopes []string, store TokenStore) (*Service, error) {
	if len(scopes) == 0 {
		scopes = []string{drive.DriveScope}
	}

	config, err := google.JWTConfigFromJSON(data, scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account key: %w", err)
	}

	if config.Email == "" {
		return nil, fmt.Errorf("service account key has no client_email")
	}

	return &Service{
		config: config,
		store:  store,
	}, nil
}

// ClientEmail returns the service account identity
func (s *Service) ClientEmail() string {
	return s.config.Email
}

// Scopes returns the scopes requested for access tokens
func (s *Service) Scopes() []string {
	return s.config.Scopes
}

// scopeKey is the stored form of the requested scopes
func (s *Service) scopeKey() string {
	scopes := append([]string(nil), s.config.Scopes...)
	sort.Strings(scopes)
	return strings.Join(scopes, " ")
}

// GetValidToken returns a cached token, fetching a new one when it is about to expire
// or was issued for different scopes
func (s *Service) GetValidToken(ctx context.Context) (*oauth2.Token, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	scopes := s.scopeKey()

	if s.store != nil {
		tokenConfig, err := s.store.GetTokenConfig(s.config.Email)
		switch {
		case err == nil && tokenConfig.Scopes != scopes:
			log.Infof("Cached token for %s was issued for other scopes, fetching a new one", s.config.Email)
		case err == nil && tokenConfig.Expiry.After(time.Now().Add(refreshWindow)):
			return &oauth2.Token{
				AccessToken: tokenConfig.AccessToken,
				TokenType:   tokenConfig.TokenType,
				Expiry:      tokenConfig.Expiry,
			}, nil
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			log.Warnf("Failed to read cached token for %s: %v", s.config.Email, err)
		}
	}

	token, err := s.config.TokenSource(ctx).Token()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch token: %w", err)
	}

	if s.store != nil {
		tokenConfig := &database.TokenConfig{
			ClientEmail: s.config.Email,
			AccessToken: token.AccessToken,
			TokenType:   token.Type(),
			Scopes:      scopes,
			Expiry:      token.Expiry,
		}
		if err := s.store.SaveTokenConfig(tokenConfig); err != nil {
			return nil, fmt.Errorf("failed to save token config: %w", err)
		}
	}

	log.Debugf("Fetched new access token for %s, expires %s", s.config.Email, token.Expiry.Format(time.RFC3339))
	return token, nil
}

type tokenSource struct {
	ctx     context.Context
	service *Service
}

func (ts *tokenSource) Token() (*oauth2.Token, error) {
	return ts.service.GetValidToken(ts.ctx)
}

// TokenSource returns a token source backed by the service
func (s *Service) TokenSource(ctx context.Context) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(nil, &tokenSource{ctx: ctx, service: s})
}

// GetClient returns an authenticated HTTP client
func (s *Service) GetClient(ctx context.Context) (*http.Client, error) {
	token, err := s.GetValidToken(ctx)
	if err != nil {
		return nil, err
	}
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(token, &tokenSource{ctx: ctx, service: s})), nil
}

// GetTokenInfo returns information about the cached token
func (s *Service) GetTokenInfo() (*TokenInfo, error) {
	info := &TokenInfo{ClientEmail: s.config.Email}
	if s.store == nil {
		return info, nil
	}

	tokenConfig, err := s.store.GetTokenConfig(s.config.Email)
	if err != nil {
		return info, nil
	}

	info.HasToken = true
	info.Expiry = tokenConfig.Expiry
	info.Valid = time.Now().Before(tokenConfig.Expiry)
	return info, nil
}

// ValidateToken validates the credentials by making a test API call
func (s *Service) ValidateToken(ctx context.Context, opts ...option.ClientOption) error {
	client, err := s.GetClient(ctx)
	if err != nil {
		return err
	}

	opts = append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)
	driveService, err := drive.NewService(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to create drive service: %w", err)
	}

	if _, err := driveService.About.Get().Fields("user").Context(ctx).Do(); err != nil {
		return fmt.Errorf("token validation failed: %w", err)
	}

	return nil
}
