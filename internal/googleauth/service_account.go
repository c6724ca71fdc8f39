// Package googleauth turns a Google service-account key into cached,
// auto-refreshing bearer tokens via the JWT-bearer grant.
package googleauth

import (
	"encoding/json"
	"fmt"
	"os"
)

// ServiceAccount holds the fields of a service-account key file this tool
// needs. The key file carries more (project id, cert URLs); those are ignored.
type ServiceAccount struct {
	PrivateKey  string `json:"private_key"`
	ClientEmail string `json:"client_email"`
}

// LoadServiceAccount reads a service-account JSON key file.
func LoadServiceAccount(path string) (ServiceAccount, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ServiceAccount{}, fmt.Errorf("read service account key: %w", err)
	}

	var account ServiceAccount
	if err := json.Unmarshal(data, &account); err != nil {
		return ServiceAccount{}, fmt.Errorf("parse service account key: %w", err)
	}
	if account.PrivateKey == "" || account.ClientEmail == "" {
		return ServiceAccount{}, fmt.Errorf("service account key missing private_key or client_email")
	}
	return account, nil
}
