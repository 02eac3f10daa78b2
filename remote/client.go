////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package remote is a small client for the server's REST API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
	"gitlab.com/elixxir/teamsync/users"
	"go.uber.org/ratelimit"
)

// API routes.
const (
	apiPrefix         = "/api/v4"
	meRoute           = apiPrefix + "/users/me"
	usersByIDsRoute   = apiPrefix + "/users/ids"
	preferencesRoute  = apiPrefix + "/users/me/preferences"
	clientConfigRoute = apiPrefix + "/config/client?format=old"
	clientLicRoute    = apiPrefix + "/license/client?format=old"
)

// Error messages.
const (
	requestErr  = "[REMOTE] %s %s failed: %+v"
	decodeErr   = "[REMOTE] failed to decode response of %s: %+v"
	marshalErr  = "[REMOTE] failed to encode request body of %s: %+v"
	buildReqErr = "[REMOTE] failed to build request %s %s: %+v"
)

// Params configures a Client.
type Params struct {
	// Timeout bounds each request.
	Timeout time.Duration

	// RequestsPerSecond limits the rate of requests to the server.
	RequestsPerSecond int
}

// GetDefaultParams returns the default Client parameters.
func GetDefaultParams() Params {
	return Params{
		Timeout:           30 * time.Second,
		RequestsPerSecond: 10,
	}
}

// Client calls the REST API of a single server.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	limiter ratelimit.Limiter
	params  Params
}

// NewClient builds a client for the server at baseURL authenticating with
// the given personal access or session token.
func NewClient(baseURL, token string, params Params) *Client {
	defaults := GetDefaultParams()
	if params.RequestsPerSecond <= 0 {
		params.RequestsPerSecond = defaults.RequestsPerSecond
	}
	if params.Timeout <= 0 {
		params.Timeout = defaults.Timeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{},
		limiter: ratelimit.New(params.RequestsPerSecond),
		params:  params,
	}
}

// StatusError is returned for responses outside of the 2xx range.
type StatusError struct {
	StatusCode int
	ID         string `json:"id"`
	Message    string `json:"message"`
}

// Error implements error.
func (e *StatusError) Error() string {
	return http.StatusText(e.StatusCode) + ": " + e.Message
}

// GetMe returns the full profile of the authenticated user.
func (c *Client) GetMe() (*users.UserProfile, error) {
	me := &users.UserProfile{}
	if err := c.do(http.MethodGet, meRoute, nil, me); err != nil {
		return nil, err
	}
	return me, nil
}

// GetProfilesByIDs returns the profiles of the given users.
func (c *Client) GetProfilesByIDs(userIDs []string) ([]users.UserProfile, error) {
	var profiles []users.UserProfile
	if err := c.do(http.MethodPost, usersByIDsRoute, userIDs, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

// GetMyPreferences returns every preference of the authenticated user.
func (c *Client) GetMyPreferences() ([]users.Preference, error) {
	var prefs []struct {
		UserID   string `json:"user_id"`
		Category string `json:"category"`
		Name     string `json:"name"`
		Value    string `json:"value"`
	}
	if err := c.do(http.MethodGet, preferencesRoute, nil, &prefs); err != nil {
		return nil, err
	}

	list := make([]users.Preference, len(prefs))
	for i, p := range prefs {
		list[i] = users.Preference{UserID: p.UserID,
			Category: p.Category, Name: p.Name, Value: p.Value}
	}
	return list, nil
}

// GetClientConfig returns the server's client config.
func (c *Client) GetClientConfig() (users.ClientConfig, error) {
	config := users.ClientConfig{}
	if err := c.do(http.MethodGet, clientConfigRoute, nil, &config); err != nil {
		return nil, err
	}
	return config, nil
}

// GetClientLicense returns the server's client license.
func (c *Client) GetClientLicense() (users.ClientLicense, error) {
	license := users.ClientLicense{}
	if err := c.do(http.MethodGet, clientLicRoute, nil, &license); err != nil {
		return nil, err
	}
	return license, nil
}

// do sends a request with an optional JSON body and decodes the JSON
// response into result.
func (c *Client) do(method, route string, body, result interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Errorf(marshalErr, route, err)
		}
		reader = bytes.NewReader(data)
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.params.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+route, reader)
	if err != nil {
		return errors.Errorf(buildReqErr, method, route, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.limiter.Take()
	jww.TRACE.Printf("[REMOTE] %s %s", method, route)
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Errorf(requestErr, method, route, err)
	}
	defer resp.Body.Close()

	responseData, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Errorf(requestErr, method, route, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{StatusCode: resp.StatusCode}
		if jsonErr := json.Unmarshal(responseData, se); jsonErr != nil {
			se.Message = string(responseData)
		}
		return errors.WithStack(se)
	}

	if err = json.Unmarshal(responseData, result); err != nil {
		return errors.Errorf(decodeErr, route, err)
	}
	return nil
}
