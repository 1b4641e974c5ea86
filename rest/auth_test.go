package rest_test

import (
	"testing"
	"time"

	"github.com/cyncgo/cync-go/rest"
)

func TestUserCredentials_Expired_ZeroMeansNeverExpires(t *testing.T) {
	c := rest.UserCredentials{UserID: 1}
	if c.Expired() {
		t.Error("zero ExpiresAt reported as expired")
	}
}

func TestUserCredentials_Expired_PastTimestamp(t *testing.T) {
	c := rest.UserCredentials{ExpiresAt: time.Now().Add(-time.Hour)}
	if !c.Expired() {
		t.Error("past ExpiresAt not reported as expired")
	}
}

func TestUserCredentials_Expired_FutureTimestamp(t *testing.T) {
	c := rest.UserCredentials{ExpiresAt: time.Now().Add(time.Hour)}
	if c.Expired() {
		t.Error("future ExpiresAt reported as expired")
	}
}

func TestStatic_Credentials_ReturnsItself(t *testing.T) {
	want := rest.UserCredentials{UserID: 9, Authorize: "tok"}
	s := rest.Static(want)

	got, err := s.Credentials()
	if err != nil {
		t.Fatalf("Credentials: %v", err)
	}
	if got != want {
		t.Errorf("Credentials() = %+v, want %+v", got, want)
	}
}
