package gateway

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/lucky2025-star/filon/internal/domain"
)

// CredentialSource supplies venue API credentials by name. It is implemented
// by secrets.Store; a missing name must map to domain.ErrNotFound.
type CredentialSource interface {
	Get(name string) (string, error)
}

// VenueSettings configures one venue adapter.
type VenueSettings struct {
	// BaseURL overrides the venue's default API endpoint. Tests point this
	// at an httptest server.
	BaseURL string
}

// ManagerConfig configures the gateway Manager.
type ManagerConfig struct {
	// Venues maps venue name to its settings. Only known venue names are
	// accepted; an unknown name is a configuration error.
	Venues map[string]VenueSettings
	Logger *slog.Logger
}

// Manager owns the configured venue gateways. It satisfies both the
// executor's resolver (lookup by venue) and the monitor's lister (all venues,
// stable order).
type Manager struct {
	gateways map[string]domain.Gateway
	ordered  []domain.Gateway
	logger   *slog.Logger
}

// NewManager builds a gateway per configured venue. Credentials are looked up
// as "<venue>_api_key", "<venue>_api_secret" and, for venues that need one,
// "<venue>_api_passphrase". A venue with no stored credentials still gets a
// gateway; it serves public market data and rejects private calls with
// domain.ErrNoCredentials.
func NewManager(cfg ManagerConfig, creds CredentialSource) (*Manager, error) {
	m := &Manager{
		gateways: make(map[string]domain.Gateway, len(cfg.Venues)),
		logger:   cfg.Logger.With(slog.String("component", "gateway")),
	}

	for venue, settings := range cfg.Venues {
		c, err := loadCredentials(creds, venue)
		if err != nil {
			return nil, err
		}

		var gw domain.Gateway
		switch venue {
		case "binance":
			gw = newBinance(settings.BaseURL, c)
		case "kucoin":
			gw = newKuCoin(settings.BaseURL, c)
		case "okx":
			gw = newOKX(settings.BaseURL, c)
		case "gateio":
			gw = newGateio(settings.BaseURL, c)
		default:
			return nil, fmt.Errorf("gateway: %q: %w", venue, domain.ErrUnknownVenue)
		}

		m.gateways[venue] = gw
		if !c.HasAuth() {
			m.logger.Warn("venue running quote-only, no credentials stored",
				slog.String("venue", venue))
		}
	}

	names := make([]string, 0, len(m.gateways))
	for name := range m.gateways {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		m.ordered = append(m.ordered, m.gateways[name])
	}
	return m, nil
}

// Gateway returns the gateway for a venue, or domain.ErrUnknownVenue.
func (m *Manager) Gateway(venue string) (domain.Gateway, error) {
	gw, ok := m.gateways[venue]
	if !ok {
		return nil, fmt.Errorf("gateway: %q: %w", venue, domain.ErrUnknownVenue)
	}
	return gw, nil
}

// All returns every configured gateway sorted by venue name.
func (m *Manager) All() []domain.Gateway {
	return m.ordered
}

func loadCredentials(creds CredentialSource, venue string) (Credentials, error) {
	var c Credentials
	var err error

	c.Key, err = getOptional(creds, venue+"_api_key")
	if err != nil {
		return Credentials{}, err
	}
	c.Secret, err = getOptional(creds, venue+"_api_secret")
	if err != nil {
		return Credentials{}, err
	}
	c.Passphrase, err = getOptional(creds, venue+"_api_passphrase")
	if err != nil {
		return Credentials{}, err
	}
	return c, nil
}

func getOptional(creds CredentialSource, name string) (string, error) {
	v, err := creds.Get(name)
	if errors.Is(err, domain.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("gateway: load credential %q: %w", name, err)
	}
	return v, nil
}
