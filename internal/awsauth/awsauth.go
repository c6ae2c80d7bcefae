// Package awsauth resolves AWS credentials for the EKS driver, the aws CLI
// kubeconfig plugin and the ECR registry client.
//
// Precedence is an explicit profile, then keys saved by an interactive login
// in aws.conf, then the SDK default chain.
package awsauth

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"gopkg.in/ini.v1"

	"github.com/kompox/kprotect/internal/credstore"
)

const (
	// SavedProfile names the profile holding the keys of aws.conf.
	SavedProfile = "kprotect"
	// CredentialsFile is the shared credentials file generated from aws.conf.
	CredentialsFile = "aws-credentials"

	MethodDefaultChain = "default_chain"
)

// EnvVar is an environment variable handed to the aws CLI.
type EnvVar struct {
	Name  string
	Value string
}

// Source selects where credentials come from. A nil Store disables aws.conf.
type Source struct {
	Profile string
	Store   *credstore.Store
}

// saved returns the keys of aws.conf, or nil when none are stored.
func (s Source) saved() map[string]string {
	if s.Store == nil {
		return nil
	}
	m, err := s.Store.Load(credstore.AWSCredentials)
	if err != nil || m["AWS_ACCESS_KEY_ID"] == "" || m["AWS_SECRET_ACCESS_KEY"] == "" {
		return nil
	}
	return m
}

// writeCredentialsFile renders saved keys as the SavedProfile of a shared
// credentials file and returns its path.
func (s Source) writeCredentialsFile(saved map[string]string) (string, error) {
	f := ini.Empty()
	sec, err := f.NewSection(SavedProfile)
	if err != nil {
		return "", err
	}
	sec.Key("aws_access_key_id").SetValue(saved["AWS_ACCESS_KEY_ID"])
	sec.Key("aws_secret_access_key").SetValue(saved["AWS_SECRET_ACCESS_KEY"])
	if tok := saved["AWS_SESSION_TOKEN"]; tok != "" {
		sec.Key("aws_session_token").SetValue(tok)
	}
	err = s.Store.Write(CredentialsFile, func(w io.Writer) error {
		_, err := f.WriteTo(w)
		return err
	})
	if err != nil {
		return "", err
	}
	return s.Store.Path(CredentialsFile), nil
}

// Load returns the SDK configuration and a short name of the credential
// source. An empty region falls back to the saved or profile region.
func (s Source) Load(ctx context.Context, region string) (aws.Config, string, error) {
	var opts []func(*config.LoadOptions) error
	method := MethodDefaultChain
	if s.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(s.Profile))
		method = "profile:" + s.Profile
	} else if saved := s.saved(); saved != nil {
		path, err := s.writeCredentialsFile(saved)
		if err != nil {
			return aws.Config{}, "", err
		}
		opts = append(opts,
			config.WithSharedCredentialsFiles([]string{path}),
			config.WithSharedConfigProfile(SavedProfile),
		)
		method = credstore.AWSCredentials
		if region == "" {
			region = saved["AWS_REGION"]
		}
	}
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, "", fmt.Errorf("load AWS config: %w", err)
	}
	return cfg, method, nil
}

// ExecEnv returns the environment that makes the aws CLI use the same
// credentials as Load. Saved keys are referenced through the generated
// credentials file, never copied into the environment.
func (s Source) ExecEnv() ([]EnvVar, error) {
	if s.Profile != "" {
		return []EnvVar{{Name: "AWS_PROFILE", Value: s.Profile}}, nil
	}
	saved := s.saved()
	if saved == nil {
		return nil, nil
	}
	path, err := s.writeCredentialsFile(saved)
	if err != nil {
		return nil, err
	}
	return []EnvVar{
		{Name: "AWS_PROFILE", Value: SavedProfile},
		{Name: "AWS_SHARED_CREDENTIALS_FILE", Value: path},
	}, nil
}
