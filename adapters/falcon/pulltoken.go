package falcon

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

type dockerConfig struct {
	Auths map[string]dockerAuth `json:"auths"`
}

type dockerAuth struct {
	Auth string `json:"auth"`
}

// PullToken returns the base64 encoded dockerconfigjson granting user:pass on host.
// Helm charts take it as the value of an image pull secret.
func PullToken(host, user, pass string) (string, error) {
	if host == "" || user == "" || pass == "" {
		return "", fmt.Errorf("pull token needs host, username and password")
	}
	cfg := dockerConfig{Auths: map[string]dockerAuth{
		host: {Auth: base64.StdEncoding.EncodeToString([]byte(user + ":" + pass))},
	}}
	b, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}
