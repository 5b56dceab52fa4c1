package crawl

import (
	"context"
	"testing"
)

func TestHostAllowed(t *testing.T) {
	cases := map[string]bool{
		"gov.uk":           true,
		"www.gov.uk":       true,
		"home-office.gov.uk": true,
		"gov.uk.evil.com":  false,
		"example.com":      false,
	}
	for host, want := range cases {
		if got := hostAllowed(host); got != want {
			t.Errorf("hostAllowed(%q) = %v, want %v", host, got, want)
		}
	}
}

func TestIsLoopbackLiteral(t *testing.T) {
	if !isLoopbackLiteral("localhost") {
		t.Error("expected localhost to be treated as loopback")
	}
	if isLoopbackLiteral("gov.uk") {
		t.Error("expected gov.uk to not be loopback")
	}
}

func TestSecurityGateRejectsNonHTTPS(t *testing.T) {
	g := newSecurityGate()
	if err := g.check(context.Background(), "http://www.gov.uk/guidance/x"); err == nil {
		t.Fatal("expected non-https scheme to be rejected")
	}
}

func TestSecurityGateRejectsNonGovUKHost(t *testing.T) {
	g := newSecurityGate()
	if err := g.check(context.Background(), "https://example.com/guidance/x"); err == nil {
		t.Fatal("expected non-gov.uk host to be rejected")
	}
}

func TestSecurityGateRejectsLoopback(t *testing.T) {
	g := newSecurityGate()
	if err := g.check(context.Background(), "https://localhost/guidance/x"); err == nil {
		t.Fatal("expected loopback host to be rejected")
	}
}
