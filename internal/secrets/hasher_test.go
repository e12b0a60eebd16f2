package secrets

import "testing"

func TestHash_Deterministic(t *testing.T) {
	a := Hash("hunter2", "salt-1")
	b := Hash("hunter2", "salt-1")
	if a != b {
		t.Errorf("same inputs produced different digests: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
}

func TestHash_SaltSensitive(t *testing.T) {
	a := Hash("hunter2", "salt-1")
	b := Hash("hunter2", "salt-2")
	if a == b {
		t.Error("different salts produced the same digest")
	}
}

func TestHash_SecretSensitive(t *testing.T) {
	a := Hash("hunter2", "salt-1")
	b := Hash("hunter3", "salt-1")
	if a == b {
		t.Error("different secrets produced the same digest")
	}
}

func TestVerify(t *testing.T) {
	salt := NewSalt()
	digest := Hash("correct horse", salt)

	if !Verify("correct horse", salt, digest) {
		t.Error("expected matching secret to verify")
	}
	if Verify("battery staple", salt, digest) {
		t.Error("expected wrong secret to fail")
	}
	if Verify("correct horse", NewSalt(), digest) {
		t.Error("expected wrong salt to fail")
	}
}

func TestNewSalt_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		s := NewSalt()
		if seen[s] {
			t.Fatalf("duplicate salt after %d draws: %s", i, s)
		}
		seen[s] = true
	}
}
