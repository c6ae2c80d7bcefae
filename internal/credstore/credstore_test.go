package credstore

import (
	"errors"
	"io"
	"os"
	"testing"
)

func TestStoreRoundTrip(t *testing.T) {
	s := &Store{Dir: t.TempDir()}

	m, err := s.Load(AzureServicePrincipal)
	if err != nil {
		t.Fatalf("Load missing: %v", err)
	}
	if len(m) != 0 {
		t.Fatalf("expected empty map, got %v", m)
	}

	if err := s.Save(AzureServicePrincipal, map[string]string{"AZURE_TENANT_ID": "t1", "AZURE_CLIENT_ID": "c1"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(AzureServicePrincipal, map[string]string{"AZURE_CLIENT_SECRET": "s=3cr#t"}); err != nil {
		t.Fatal(err)
	}
	m, err = s.Load(AzureServicePrincipal)
	if err != nil {
		t.Fatal(err)
	}
	if m["AZURE_TENANT_ID"] != "t1" || m["AZURE_CLIENT_ID"] != "c1" || m["AZURE_CLIENT_SECRET"] != "s=3cr#t" {
		t.Errorf("unexpected values: %v", m)
	}

	st, err := os.Stat(s.Path(AzureServicePrincipal))
	if err != nil {
		t.Fatal(err)
	}
	if st.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, want 0600", st.Mode().Perm())
	}

	if err := s.Remove(AzureServicePrincipal); err != nil {
		t.Fatal(err)
	}
	if err := s.Remove(AzureServicePrincipal); err != nil {
		t.Errorf("second Remove should be a no-op: %v", err)
	}
}

func TestDefaultHonorsEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("KPROTECT_HOME", dir)
	if got := Default().Dir; got != dir {
		t.Errorf("Dir = %q, want %q", got, dir)
	}
}

func TestWriteIsPrivateWhileWriting(t *testing.T) {
	s := &Store{Dir: t.TempDir()}
	if err := s.Write(AWSCredentials, func(w io.Writer) error {
		f, ok := w.(*os.File)
		if !ok {
			t.Fatalf("writer is %T", w)
		}
		st, err := f.Stat()
		if err != nil {
			return err
		}
		if st.Mode().Perm() != 0o600 {
			t.Errorf("mode while writing = %v, want 0600", st.Mode().Perm())
		}
		_, err = io.WriteString(w, "A=1\n")
		return err
	}); err != nil {
		t.Fatal(err)
	}

	// a failed write keeps the previous content and leaves no temp file
	err := s.Write(AWSCredentials, func(io.Writer) error { return errors.New("boom") })
	if err == nil {
		t.Fatal("expected error")
	}
	m, err := s.Load(AWSCredentials)
	if err != nil || m["A"] != "1" {
		t.Errorf("previous content lost: %v, %v", m, err)
	}
	entries, _ := os.ReadDir(s.Dir)
	if len(entries) != 1 {
		t.Errorf("unexpected files: %v", entries)
	}
}
