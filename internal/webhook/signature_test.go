package webhook

import (
	"strings"
	"testing"
)

func TestVerifySignature_RoundTrip(t *testing.T) {
	t.Parallel()

	body := []byte(`{"event":"email.received","data":{}}`)
	sig := Sign("s3cret", body)

	if !VerifySignature(body, sig, "s3cret") {
		t.Error("signature should verify with the signing secret")
	}
	if VerifySignature(body, sig, "other") {
		t.Error("signature must not verify with a different secret")
	}
	if VerifySignature([]byte(`{"tampered":true}`), sig, "s3cret") {
		t.Error("signature must not verify a different body")
	}
}

func TestVerifySignature_LengthMismatch(t *testing.T) {
	t.Parallel()

	body := []byte("payload")
	sig := Sign("k", body)
	for _, candidate := range []string{"", sig[:10], sig + "00", strings.ToUpper(sig)} {
		if VerifySignature(body, candidate, "k") {
			t.Errorf("candidate %q should not verify", candidate)
		}
	}
}

func TestSign_HexSHA256(t *testing.T) {
	t.Parallel()

	// echo -n 'hello' | openssl dgst -sha256 -hmac 'key'
	const want = "9307b3b915efb5171ff14d8cb55fbcc798c6c0ef1456d66ded1a6aa723a58b7b"
	if got := Sign("key", []byte("hello")); got != want {
		t.Errorf("Sign = %s, want %s", got, want)
	}
}
