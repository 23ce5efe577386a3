// Package graph is a directory backed by a Microsoft Graph style REST API,
// authenticated with the OAuth2 client credentials grant.
package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"principalcheck/internal/directory"
	"principalcheck/internal/platform/config"
	"principalcheck/internal/principal/models"
)

const maxBody = 1 << 20

// Directory looks principals up by object id or user principal name.
type Directory struct {
	baseURL string
	client  *http.Client
}

// New builds a Directory whose requests carry a client-credentials token.
func New(cfg config.GraphConfig) *Directory {
	base := &http.Client{Timeout: cfg.Timeout}
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       cfg.Scopes,
	}
	client := cc.Client(context.WithValue(context.Background(), oauth2.HTTPClient, base))
	client.Timeout = cfg.Timeout
	return NewWithClient(cfg.BaseURL, client)
}

// NewWithClient uses client as-is; it must add authorization itself.
func NewWithClient(baseURL string, client *http.Client) *Directory {
	return &Directory{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

type userResource struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	UserPrincipalName string `json:"userPrincipalName"`
}

type groupResource struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// LookupUser implements directory.Directory.
func (d *Directory) LookupUser(ctx context.Context, name string) (*models.User, error) {
	var res userResource
	path := "/users/" + url.PathEscape(name) + "?$select=id,displayName,userPrincipalName"
	if err := d.get(ctx, path, &res); err != nil {
		return nil, err
	}
	return &models.User{
		ID:          res.ID,
		UniqueName:  res.UserPrincipalName,
		DisplayName: res.DisplayName,
	}, nil
}

// LookupGroup implements directory.Directory.
func (d *Directory) LookupGroup(ctx context.Context, name string) (*models.Group, error) {
	var res groupResource
	path := "/groups/" + url.PathEscape(name) + "?$select=id,displayName"
	if err := d.get(ctx, path, &res); err != nil {
		return nil, err
	}
	return &models.Group{ID: res.ID, DisplayName: res.DisplayName}, nil
}

// get maps the response status onto the directory taxonomy:
//
//	200        found
//	400, 404   not found (400 is Graph's answer to a malformed object id)
//	403        undecidable, the app may not read the directory
//	429, 5xx   undecidable, throttled or unavailable
//	401, other auth error
func (d *Directory) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+path, nil)
	if err != nil {
		return directory.NewAuthError("build directory request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			return directory.NewAuthError("acquire directory token", err)
		}
		return directory.NewAuthError("directory request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return directory.NewAuthError("read directory response", err)
	}

	switch code := resp.StatusCode; {
	case code == http.StatusOK:
		if err := json.Unmarshal(body, out); err != nil {
			return directory.NewAuthError("decode directory response", err)
		}
		return nil
	case code == http.StatusNotFound, code == http.StatusBadRequest:
		return directory.ErrNotFound
	case code == http.StatusForbidden, code == http.StatusTooManyRequests, code >= 500:
		return fmt.Errorf("directory returned %d %s: %w", code, errorMessage(body), directory.ErrUndecidable)
	default:
		return directory.NewAuthError(fmt.Sprintf("directory returned %d %s", code, errorMessage(body)), nil)
	}
}

func errorMessage(body []byte) string {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil || env.Error.Code == "" {
		return "(no error detail)"
	}
	if env.Error.Message == "" {
		return env.Error.Code
	}
	return env.Error.Code + ": " + env.Error.Message
}
