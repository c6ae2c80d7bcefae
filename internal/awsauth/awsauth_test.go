package awsauth

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kompox/kprotect/internal/credstore"
)

// isolate points the SDK at files under a temp dir holding a "prod" profile.
func isolate(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	creds := filepath.Join(dir, "credentials")
	if err := os.WriteFile(creds, []byte("[prod]\naws_access_key_id = AKIAPROD\naws_secret_access_key = prod-secret\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", creds)
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(dir, "config"))
	for _, k := range []string{"AWS_PROFILE", "AWS_DEFAULT_PROFILE", "AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY", "AWS_SESSION_TOKEN", "AWS_REGION", "AWS_DEFAULT_REGION"} {
		t.Setenv(k, "")
	}
}

func savedStore(t *testing.T) *credstore.Store {
	t.Helper()
	s := &credstore.Store{Dir: t.TempDir()}
	if err := s.Save(credstore.AWSCredentials, map[string]string{
		"AWS_ACCESS_KEY_ID":     "AKIAOLD",
		"AWS_SECRET_ACCESS_KEY": "old",
		"AWS_REGION":            "eu-west-1",
	}); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestExplicitProfileBeatsSavedKeys(t *testing.T) {
	isolate(t)
	src := Source{Profile: "prod", Store: savedStore(t)}
	cfg, method, err := src.Load(context.Background(), "us-east-2")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if method != "profile:prod" {
		t.Errorf("method = %q", method)
	}
	creds, err := cfg.Credentials.Retrieve(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if creds.AccessKeyID != "AKIAPROD" {
		t.Errorf("access key = %q", creds.AccessKeyID)
	}
	env, err := src.ExecEnv()
	if err != nil {
		t.Fatal(err)
	}
	if len(env) != 1 || env[0] != (EnvVar{Name: "AWS_PROFILE", Value: "prod"}) {
		t.Errorf("env = %v", env)
	}
}

func TestSavedKeysThroughCredentialsFile(t *testing.T) {
	isolate(t)
	store := savedStore(t)
	src := Source{Store: store}
	cfg, method, err := src.Load(context.Background(), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if method != credstore.AWSCredentials || cfg.Region != "eu-west-1" {
		t.Errorf("method = %q, region = %q", method, cfg.Region)
	}
	creds, err := cfg.Credentials.Retrieve(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if creds.AccessKeyID != "AKIAOLD" {
		t.Errorf("access key = %q", creds.AccessKeyID)
	}

	env, err := src.ExecEnv()
	if err != nil {
		t.Fatal(err)
	}
	want := []EnvVar{
		{Name: "AWS_PROFILE", Value: SavedProfile},
		{Name: "AWS_SHARED_CREDENTIALS_FILE", Value: store.Path(CredentialsFile)},
	}
	if len(env) != len(want) || env[0] != want[0] || env[1] != want[1] {
		t.Errorf("env = %v", env)
	}
	st, err := os.Stat(store.Path(CredentialsFile))
	if err != nil {
		t.Fatal(err)
	}
	if st.Mode().Perm() != 0o600 {
		t.Errorf("credentials file mode = %v", st.Mode().Perm())
	}
}

func TestDefaultChain(t *testing.T) {
	isolate(t)
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIAENV")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "env")
	src := Source{Store: &credstore.Store{Dir: t.TempDir()}}
	cfg, method, err := src.Load(context.Background(), "ap-northeast-1")
	if err != nil {
		t.Fatal(err)
	}
	if method != MethodDefaultChain || cfg.Region != "ap-northeast-1" {
		t.Errorf("method = %q, region = %q", method, cfg.Region)
	}
	if env, err := src.ExecEnv(); err != nil || env != nil {
		t.Errorf("env = %v, %v", env, err)
	}
}
