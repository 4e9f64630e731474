package logger

import "testing"

func TestSanitizeKVsRedactsSecrets(t *testing.T) {
	out := sanitizeKVs([]interface{}{
		"Authorization", "Bearer abc",
		"build_id", 42,
		"envars", map[string]string{"SPACK_TOKEN": "xyz", "PATH": "/usr/bin"},
	})
	if len(out) != 6 {
		t.Fatalf("expected 6 entries, got %d", len(out))
	}
	if out[1] != "[REDACTED]" {
		t.Fatalf("authorization not redacted: %v", out[1])
	}
	if out[3] != 42 {
		t.Fatalf("build_id should pass through, got %v", out[3])
	}
	env, ok := out[5].(map[string]interface{})
	if !ok {
		t.Fatalf("expected map, got %T", out[5])
	}
	if env["SPACK_TOKEN"] != "[REDACTED]" || env["PATH"] != "/usr/bin" {
		t.Fatalf("unexpected envar sanitization: %v", env)
	}
}

func TestSanitizeKVsHashesIdentity(t *testing.T) {
	out := sanitizeKVs([]interface{}{"user_id", "8b0c"})
	s, ok := out[1].(string)
	if !ok || len(s) != len("hash:")+12 {
		t.Fatalf("expected hashed user id, got %v", out[1])
	}
}

func TestLooksLikeJWT(t *testing.T) {
	if !looksLikeJWT("eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxMjM0NTY3ODkwIn0.sig") {
		t.Fatal("expected jwt shape to match")
	}
	if looksLikeJWT("linux.ubuntu.x86_64") {
		t.Fatal("short dotted strings are not jwts")
	}
}
