package botframework

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"

	"basegraph.app/reminder/core/config"
)

const (
	keyRefreshInterval = 24 * time.Hour
	unknownKeyInterval = time.Minute
	unknownKeyWaitMax  = time.Second
	clockSkew          = 5 * time.Minute
)

var errMissingToken = errors.New("missing bearer token")

// JWTAuthenticator validates tokens the Bot Framework channel service sends
// with every activity: RS256, signed by a key from the channel's OpenID
// metadata, issued by the connector, for this bot's app id.
//
// The signing keys are loaded on first use and refreshed daily, and on an
// unknown key id at most once a minute.
type JWTAuthenticator struct {
	appID       string
	issuer      string
	metadataURL string
	http        *http.Client
	now         func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	keyfunc      keyfunc.Keyfunc
	endorsements *endorsements
}

func NewJWTAuthenticator(cfg config.BotConfig, httpClient *http.Client) *JWTAuthenticator {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &JWTAuthenticator{
		appID:        cfg.AppID,
		issuer:       cfg.Issuer,
		metadataURL:  cfg.OpenIDMetadataURL,
		http:         httpClient,
		now:          time.Now,
		ctx:          ctx,
		cancel:       cancel,
		endorsements: &endorsements{byKid: map[string][]string{}},
	}
}

// Close stops the background key refresh.
func (a *JWTAuthenticator) Close() {
	a.cancel()
}

func (a *JWTAuthenticator) Authenticate(ctx context.Context, authHeader string, activity *Activity) error {
	raw, ok := strings.CutPrefix(strings.TrimSpace(authHeader), "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return errMissingToken
	}

	kf, err := a.keys(ctx)
	if err != nil {
		return fmt.Errorf("loading signing keys: %w", err)
	}

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(raw, claims,
		func(token *jwt.Token) (any, error) {
			key, err := kf.Keyfunc(token)
			if err != nil {
				return nil, err
			}
			kid, _ := token.Header["kid"].(string)
			if endorsed := a.endorsements.get(kid); len(endorsed) > 0 && !slices.Contains(endorsed, activity.ChannelID) {
				return nil, fmt.Errorf("signing key %s is not endorsed for channel %q", kid, activity.ChannelID)
			}
			return key, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(a.issuer),
		jwt.WithAudience(a.appID),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockSkew),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return fmt.Errorf("validating token: %w", err)
	}

	if serviceURL, _ := claims["serviceurl"].(string); serviceURL != "" && serviceURL != activity.ServiceURL {
		return fmt.Errorf("token serviceurl %q does not match activity %q", serviceURL, activity.ServiceURL)
	}
	return nil
}

// keys resolves the JWKS location from the OpenID metadata once and builds
// the keyfunc over it. A failed attempt is retried on the next request.
func (a *JWTAuthenticator) keys(ctx context.Context) (keyfunc.Keyfunc, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.keyfunc != nil {
		return a.keyfunc, nil
	}

	jwksURI, err := a.jwksURI(ctx)
	if err != nil {
		return nil, err
	}

	// The channel's JWKS carries endorsements, which jwkset drops, so the
	// transport records them from every fetch.
	client := &http.Client{
		Timeout:   a.http.Timeout,
		Transport: &endorsementTransport{base: a.http.Transport, endorsements: a.endorsements},
	}
	u, err := url.ParseRequestURI(jwksURI)
	if err != nil {
		return nil, fmt.Errorf("parsing jwks_uri: %w", err)
	}
	remote, err := jwkset.NewStorageFromHTTP(u, jwkset.HTTPClientStorageOptions{
		Client:          client,
		Ctx:             a.ctx,
		RefreshInterval: keyRefreshInterval,
		RefreshErrorHandler: func(ctx context.Context, err error) {
			slog.WarnContext(ctx, "failed to refresh bot framework signing keys", "error", err, "jwks_uri", jwksURI)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("fetching signing keys: %w", err)
	}
	storage, err := jwkset.NewHTTPClient(jwkset.HTTPClientOptions{
		HTTPURLs:          map[string]jwkset.Storage{jwksURI: remote},
		RefreshUnknownKID: rate.NewLimiter(rate.Every(unknownKeyInterval), 1),
		RateLimitWaitMax:  unknownKeyWaitMax,
	})
	if err != nil {
		return nil, fmt.Errorf("creating key storage: %w", err)
	}
	kf, err := keyfunc.New(keyfunc.Options{
		Ctx:          a.ctx,
		Storage:      storage,
		UseWhitelist: []jwkset.USE{jwkset.UseSig},
	})
	if err != nil {
		return nil, fmt.Errorf("creating keyfunc: %w", err)
	}

	a.keyfunc = kf
	return kf, nil
}

func (a *JWTAuthenticator) jwksURI(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.metadataURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating metadata request: %w", err)
	}
	resp, err := a.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching openid metadata: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching openid metadata: HTTP %d", resp.StatusCode)
	}

	var metadata struct {
		JWKSURI string `json:"jwks_uri"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&metadata); err != nil {
		return "", fmt.Errorf("decoding openid metadata: %w", err)
	}
	if metadata.JWKSURI == "" {
		return "", fmt.Errorf("openid metadata has no jwks_uri")
	}
	return metadata.JWKSURI, nil
}

// endorsements maps a signing key id to the channels it may sign for.
type endorsements struct {
	mu    sync.RWMutex
	byKid map[string][]string
}

func (e *endorsements) get(kid string) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.byKid[kid]
}

func (e *endorsements) record(body []byte) {
	var jwks struct {
		Keys []struct {
			Kid          string   `json:"kid"`
			Endorsements []string `json:"endorsements"`
		} `json:"keys"`
	}
	if err := json.Unmarshal(body, &jwks); err != nil {
		return
	}

	byKid := make(map[string][]string, len(jwks.Keys))
	for _, k := range jwks.Keys {
		if k.Kid != "" {
			byKid[k.Kid] = k.Endorsements
		}
	}

	e.mu.Lock()
	e.byKid = byKid
	e.mu.Unlock()
}

type endorsementTransport struct {
	base         http.RoundTripper
	endorsements *endorsements
}

func (t *endorsementTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	resp, err := base.RoundTrip(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		return resp, err
	}

	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("reading signing keys: %w", err)
	}
	t.endorsements.record(body)
	resp.Body = io.NopCloser(bytes.NewReader(body))
	return resp, nil
}
