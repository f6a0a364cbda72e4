package settings

import (
	"testing"
)

func TestLoadDefaultsWhenMissing(t *testing.T) {
	store := NewStore(t.TempDir(), "./archive")

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if got.CredentialKey != DefaultCredentialKey {
		t.Errorf("Expected default credential key, got: %q", got.CredentialKey)
	}
	if got.SavePath != "./archive" {
		t.Errorf("Expected default save path, got: %q", got.SavePath)
	}
	if !got.AutoDedup {
		t.Error("Expected auto dedup enabled by default")
	}
	if got.HasCredential() {
		t.Error("Expected no credential by default")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir(), "./archive")

	in := Settings{
		CredentialKey:    "LOFTER-PHONE-LOGIN-AUTH",
		CredentialToken:  "token-123",
		SavePath:         "/tmp/saves",
		AutoDedup:        false,
		NotifyOnComplete: true,
	}
	if err := store.Save(in); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if got != in {
		t.Errorf("Round trip mismatch: got %+v, want %+v", got, in)
	}
	if !got.HasCredential() {
		t.Error("Expected credential to be present")
	}
}
