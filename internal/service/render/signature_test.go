package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifySignature(t *testing.T) {
	secret := "webhook-secret"
	body := []byte(`{"id":"job-1","status":"succeeded"}`)
	sig := Sign(secret, body)

	assert.True(t, VerifySignature(secret, body, sig))
}

func TestVerifySignatureRejectsTamperedBody(t *testing.T) {
	secret := "webhook-secret"
	body := []byte(`{"id":"job-1","status":"succeeded"}`)
	sig := Sign(secret, body)

	tampered := []byte(`{"id":"job-1","status":"failed"}`)
	assert.False(t, VerifySignature(secret, tampered, sig))
}

func TestVerifySignatureRejectsWrongSecret(t *testing.T) {
	body := []byte(`{"id":"job-1"}`)
	sig := Sign("secret-a", body)

	assert.False(t, VerifySignature("secret-b", body, sig))
}

func TestVerifySignatureRejectsEmptySignature(t *testing.T) {
	assert.False(t, VerifySignature("secret", []byte("body"), ""))
}
