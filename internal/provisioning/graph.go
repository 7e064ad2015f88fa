package provisioning

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/oauth2/clientcredentials"

	"groupboard/internal/config"
)

const graphScope = "https://graph.microsoft.com/.default"

// GraphProvisioner writes the user id into a directory extension attribute
// through Microsoft Graph.
type GraphProvisioner struct {
	client    *http.Client
	baseURL   string
	attribute string
}

// NewGraphProvisioner authenticates with the client-credentials grant.
func NewGraphProvisioner(ctx context.Context, cfg config.ProvisionerConfig) (*GraphProvisioner, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.ExtensionAppID == "" {
		return nil, errors.New("graph provisioner requires CLIENT_ID, CLIENT_SECRET and EXTENSION_APP_ID")
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		if cfg.TenantID == "" {
			return nil, errors.New("graph provisioner requires TENANT_ID or TOKEN_URL")
		}
		tokenURL = fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", url.PathEscape(cfg.TenantID))
	}

	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     tokenURL,
		Scopes:       []string{graphScope},
	}
	client := cc.Client(ctx)
	client.Timeout = cfg.Timeout
	return NewGraphProvisionerWithClient(client, cfg.GraphBaseURL, cfg.ExtensionAppID), nil
}

// NewGraphProvisionerWithClient uses an already authenticated client.
func NewGraphProvisionerWithClient(client *http.Client, baseURL, extensionAppID string) *GraphProvisioner {
	return &GraphProvisioner{
		client:    client,
		baseURL:   strings.TrimRight(baseURL, "/"),
		attribute: ExtensionAttribute(extensionAppID),
	}
}

// ExtensionAttribute names the Graph extension property for the user id.
func ExtensionAttribute(appID string) string {
	return "extension_" + strings.ReplaceAll(appID, "-", "") + "_UserId"
}

func (p *GraphProvisioner) Provision(ctx context.Context, externalID string, userID uint) error {
	if externalID == "" {
		return errors.New("provision: empty external id")
	}
	body, err := json.Marshal(map[string]string{p.attribute: strconv.FormatUint(uint64(userID), 10)})
	if err != nil {
		return fmt.Errorf("provision: encode body: %w", err)
	}

	endpoint := p.baseURL + "/users/" + url.PathEscape(externalID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("provision: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("provision: graph request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("provision: graph returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}
