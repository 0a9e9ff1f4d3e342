package notifier

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func statusPayload() WebhookPayload {
	return WebhookPayload{
		JobID:      "job-42",
		Company:    "Acme",
		Title:      "Engineer",
		From:       "applied",
		To:         "viewed",
		Source:     "<m1@mail.test>",
		ReceivedAt: "2026-03-20T09:00:00Z",
	}
}

func TestHTTPWebhookSender_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewHTTPWebhookSender()
	result := sender.Send(context.Background(), WebhookRequest{
		URL:       server.URL,
		Secret:    "test-secret",
		Timeout:   5 * time.Second,
		AttemptID: "attempt-1",
		Payload:   statusPayload(),
	})

	if result.Error != nil {
		t.Fatalf("unexpected error: %v", result.Error)
	}
	if result.StatusCode != 200 {
		t.Errorf("expected status 200, got %d", result.StatusCode)
	}
	if result.Duration <= 0 {
		t.Error("duration should be positive")
	}
}

func TestHTTPWebhookSender_RequestHeaders(t *testing.T) {
	var gotHeaders http.Header
	var gotMethod string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header
		gotMethod = r.Method
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewHTTPWebhookSender()
	sender.Send(context.Background(), WebhookRequest{
		URL:       server.URL,
		Secret:    "my-secret",
		Timeout:   5 * time.Second,
		AttemptID: "attempt-123",
		Payload:   statusPayload(),
	})

	if gotMethod != http.MethodPost {
		t.Errorf("expected POST, got %s", gotMethod)
	}
	if ct := gotHeaders.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	if id := gotHeaders.Get("X-JobTracker-Event-ID"); id != "attempt-123" {
		t.Errorf("X-JobTracker-Event-ID = %q, want attempt-123", id)
	}
	if id := gotHeaders.Get("X-JobTracker-Job-ID"); id != "job-42" {
		t.Errorf("X-JobTracker-Job-ID = %q, want job-42", id)
	}
	if sig := gotHeaders.Get("X-JobTracker-Signature"); sig == "" {
		t.Error("X-JobTracker-Signature should not be empty")
	}
}

func TestHTTPWebhookSender_PayloadBody(t *testing.T) {
	var gotBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewHTTPWebhookSender()
	sender.Send(context.Background(), WebhookRequest{
		URL:     server.URL,
		Secret:  "secret",
		Timeout: 5 * time.Second,
		Payload: statusPayload(),
	})

	var payload WebhookPayload
	if err := json.Unmarshal(gotBody, &payload); err != nil {
		t.Fatalf("failed to unmarshal body: %v", err)
	}

	if payload.JobID != "job-42" {
		t.Errorf("JobID = %q, want job-42", payload.JobID)
	}
	if payload.From != "applied" || payload.To != "viewed" {
		t.Errorf("transition = %q->%q, want applied->viewed", payload.From, payload.To)
	}
	if payload.Source != "<m1@mail.test>" {
		t.Errorf("Source = %q", payload.Source)
	}
}

func TestHTTPWebhookSender_SignatureCorrect(t *testing.T) {
	var gotSignature string
	var gotBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSignature = r.Header.Get("X-JobTracker-Signature")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	secret := "my-webhook-secret"

	sender := NewHTTPWebhookSender()
	sender.Send(context.Background(), WebhookRequest{
		URL:     server.URL,
		Secret:  secret,
		Timeout: 5 * time.Second,
		Payload: statusPayload(),
	})

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(gotBody)
	expectedSig := hex.EncodeToString(mac.Sum(nil))

	if gotSignature != expectedSig {
		t.Errorf("signature mismatch:\n  got:  %s\n  want: %s", gotSignature, expectedSig)
	}
}

func TestHTTPWebhookSender_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	sender := NewHTTPWebhookSender()
	result := sender.Send(context.Background(), WebhookRequest{
		URL:     server.URL,
		Secret:  "secret",
		Timeout: 5 * time.Second,
		Payload: statusPayload(),
	})

	if result.Error != nil {
		t.Errorf("server error should not set Error field, got: %v", result.Error)
	}
	if result.StatusCode != 500 {
		t.Errorf("expected status 500, got %d", result.StatusCode)
	}
}

func TestHTTPWebhookSender_ConnectionError(t *testing.T) {
	sender := NewHTTPWebhookSender()
	result := sender.Send(context.Background(), WebhookRequest{
		URL:     "http://localhost:1", // unlikely to be listening
		Secret:  "secret",
		Timeout: 1 * time.Second,
		Payload: statusPayload(),
	})

	if result.Error == nil {
		t.Error("expected connection error, got nil")
	}
}

func TestVerifySignature(t *testing.T) {
	secret := "test-secret"
	body := []byte(`{"job_id":"job-42","to_status":"viewed"}`)
	sig := computeSignature(secret, body)

	if !VerifySignature(secret, body, sig) {
		t.Error("valid signature should verify")
	}
	if VerifySignature("wrong-secret", body, sig) {
		t.Error("wrong secret should not verify")
	}
	if VerifySignature(secret, []byte(`{"job_id":"job-43"}`), sig) {
		t.Error("tampered body should not verify")
	}
}

func TestComputeSignature_Deterministic(t *testing.T) {
	secret := "test-secret"
	body := []byte(`{"job_id":"job-42"}`)

	sig1 := computeSignature(secret, body)
	sig2 := computeSignature(secret, body)

	if sig1 != sig2 {
		t.Errorf("computeSignature should be deterministic: %s != %s", sig1, sig2)
	}
	if _, err := hex.DecodeString(sig1); err != nil {
		t.Errorf("signature should be valid hex: %v", err)
	}
	if len(sig1) != 64 {
		t.Errorf("signature length should be 64 hex chars, got %d", len(sig1))
	}
}
