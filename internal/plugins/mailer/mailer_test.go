package mailer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/werkschau/server/internal/config"
)

func newTestMailer() *Mailer {
	return New(config.SMTPConfig{
		Host: "localhost",
		Port: 587,
		From: "noreply@werkschau.example",
	}, "https://werkschau.example")
}

func TestVerificationLink(t *testing.T) {
	m := newTestMailer()

	link := m.verificationLink("anna@example.com", "9f2c1d34-0000-4000-8000-00805f9b34fb")

	assert.Equal(t,
		"https://werkschau.example/verify?c=9f2c1d34-0000-4000-8000-00805f9b34fb&e=anna%40example.com",
		link)
}

func TestResetLink(t *testing.T) {
	m := newTestMailer()

	link := m.resetLink("anna+werk@example.com", "token-1")

	// Both query values must be escaped; a raw + in the email would decode
	// as a space on the frontend.
	assert.Equal(t,
		"https://werkschau.example/reset-password?c=token-1&e=anna%2Bwerk%40example.com",
		link)
}
