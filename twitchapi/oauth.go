package twitchapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/twitch"
)

// OAuthConfig builds the oauth2 config for the user authorization-code flow.
// scopes is a space- or comma-separated list.
func OAuthConfig(clientID, clientSecret, redirectURI, scopes string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     twitch.Endpoint,
		RedirectURL:  redirectURI,
		Scopes:       strings.Fields(strings.ReplaceAll(scopes, ",", " ")),
	}
}

// ScopesFromToken extracts the granted scope list Twitch attaches to token
// responses; empty when absent.
func ScopesFromToken(tok *oauth2.Token) []string {
	raw, ok := tok.Extra("scope").([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// TokenValidation is the identity attached to a user access token.
type TokenValidation struct {
	ClientID  string   `json:"client_id"`
	Login     string   `json:"login"`
	Scopes    []string `json:"scopes"`
	UserID    string   `json:"user_id"`
	ExpiresIn int      `json:"expires_in"`
}

// ValidateUserToken checks a user access token against the Twitch OAuth
// validate endpoint and returns the identity bound to it. validateURL
// defaults to the production endpoint; tests point it at a mock server.
func ValidateUserToken(ctx context.Context, hc *http.Client, validateURL, accessToken string) (*TokenValidation, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("access token empty")
	}
	if validateURL == "" {
		validateURL = "https://id.twitch.tv/oauth2/validate"
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, validateURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("twitch token validation failed: %s: %s", resp.Status, string(b))
	}
	var tv TokenValidation
	if err := json.NewDecoder(resp.Body).Decode(&tv); err != nil {
		return nil, err
	}
	return &tv, nil
}
