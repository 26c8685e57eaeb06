package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var testNow = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

func TestCredential_Expiry(t *testing.T) {
	past := testNow.Add(-time.Minute)
	soon := testNow.Add(2 * time.Minute)
	later := testNow.Add(time.Hour)

	assert.True(t, Credential{ExpiresAt: &past}.Expired(testNow))
	assert.False(t, Credential{ExpiresAt: &later}.Expired(testNow))
	assert.False(t, Credential{}.Expired(testNow))

	assert.True(t, Credential{ExpiresAt: &soon}.NeedsRefresh(testNow))
	assert.False(t, Credential{ExpiresAt: &later}.NeedsRefresh(testNow))
}

func TestCredential_WithAccessToken_ReturnsCopy(t *testing.T) {
	exp := testNow.Add(time.Hour)
	orig := Credential{UserID: "u1", Provider: ProviderGoogle, AccessToken: "old", RefreshToken: "rt"}

	next := orig.WithAccessToken("new", "", &exp, testNow)

	assert.Equal(t, "old", orig.AccessToken)
	assert.Equal(t, "new", next.AccessToken)
	assert.Equal(t, "rt", next.RefreshToken)
	assert.Equal(t, exp, *next.ExpiresAt)
	assert.Equal(t, testNow, next.UpdatedAt)

	rotated := orig.WithAccessToken("new", "rt2", &exp, testNow)
	assert.Equal(t, "rt2", rotated.RefreshToken)
}
