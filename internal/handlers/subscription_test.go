package handlers_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToggleSubscription(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	alice := env.signup("alice")
	bob := env.signup("bob")

	rec, resp := env.doJSON(http.MethodPost, "/api/v1/subscriptions/channels/"+alice.User.ID, nil, bob.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var state struct {
		Subscribed bool `json:"subscribed"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &state))
	assert.True(t, state.Subscribed)

	rec2, resp2 := env.doJSON(http.MethodPost, "/api/v1/subscriptions/channels/"+alice.User.ID, nil, bob.AccessToken)
	require.Equal(t, http.StatusOK, rec2.Code)
	require.NoError(t, json.Unmarshal(resp2.Data, &state))
	assert.False(t, state.Subscribed)
}

func TestSelfSubscribeRejected(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	s := env.signup("alice")

	rec, _ := env.doJSON(http.MethodPost, "/api/v1/subscriptions/channels/"+s.User.ID, nil, s.AccessToken)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubscribeMissingChannel(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	s := env.signup("alice")

	rec, _ := env.doJSON(http.MethodPost, "/api/v1/subscriptions/channels/01234567-89ab-cdef-0123-456789abcdef", nil, s.AccessToken)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubscriptionListings(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	alice := env.signup("alice")
	bob := env.signup("bob")
	carol := env.signup("carol")

	for _, viewer := range []session{bob, carol} {
		rec, _ := env.doJSON(http.MethodPost, "/api/v1/subscriptions/channels/"+alice.User.ID, nil, viewer.AccessToken)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec, resp := env.doJSON(http.MethodGet, "/api/v1/subscriptions/channels/"+alice.User.ID+"/subscribers", nil, alice.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var subs struct {
		Subscribers []struct {
			Username string `json:"username"`
		} `json:"subscribers"`
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &subs))
	assert.Equal(t, 2, subs.Count)

	rec2, resp2 := env.doJSON(http.MethodGet, "/api/v1/subscriptions/users/"+bob.User.ID+"/channels", nil, bob.AccessToken)
	require.Equal(t, http.StatusOK, rec2.Code)
	var channels struct {
		Channels []struct {
			Username string `json:"username"`
		} `json:"channels"`
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(resp2.Data, &channels))
	require.Equal(t, 1, channels.Count)
	assert.Equal(t, "alice", channels.Channels[0].Username)
}
