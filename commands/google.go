package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	SHEETS = "https://www.googleapis.com/auth/spreadsheets"
	DRIVE  = "https://www.googleapis.com/auth/drive.readonly"
)

// newServices builds the Sheets (and optionally Drive) clients from the
// credentials file. The Drive client is only needed for revision checking.
func newServices(ctx context.Context, credentials string, withDrive bool) (*sheets.Service, *drive.Service, error) {
	scopes := []string{SHEETS}
	if withDrive {
		scopes = append(scopes, DRIVE)
	}

	client, err := authorize(ctx, credentials, scopes...)
	if err != nil {
		return nil, nil, fmt.Errorf("authentication/authorization error (%w)", err)
	}

	google, err := sheets.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, nil, fmt.Errorf("unable to create new Sheets client (%w)", err)
	}

	var gdrive *drive.Service
	if withDrive {
		if gdrive, err = drive.NewService(ctx, option.WithHTTPClient(client)); err != nil {
			return nil, nil, fmt.Errorf("unable to create new Drive client (%w)", err)
		}
	}

	return google, gdrive, nil
}

// authorize builds an HTTP client from the credentials file - either a
// service account key (the normal case for headless operation) or OAuth
// client credentials with a previously cached token.
func authorize(ctx context.Context, credentials string, scopes ...string) (*http.Client, error) {
	bytes, err := os.ReadFile(credentials)
	if err != nil {
		return nil, err
	}

	var probe struct {
		Type string `json:"type"`
	}

	json.Unmarshal(bytes, &probe)

	if probe.Type == "service_account" {
		config, err := google.JWTConfigFromJSON(bytes, scopes...)
		if err != nil {
			return nil, err
		}

		return config.Client(ctx), nil
	}

	config, err := google.ConfigFromJSON(bytes, scopes...)
	if err != nil {
		return nil, err
	}

	dir, file := filepath.Split(credentials)
	name := strings.TrimSuffix(file, filepath.Ext(file))
	tokens := filepath.Join(dir, fmt.Sprintf("%s.tokens", name))

	token, err := tokenFromFile(tokens)
	if err != nil {
		return nil, fmt.Errorf("no cached OAuth token at %s - use a service account key for headless operation", tokens)
	}

	return config.Client(ctx, token), nil
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}

	defer f.Close()

	token := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(token)

	return token, err
}
