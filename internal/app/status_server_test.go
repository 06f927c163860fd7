package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusRouter(t *testing.T) {
	t.Parallel()
	derivatives, bidsDir := fixtureDataset(t)
	a := NewApp(&bytes.Buffer{}, testConfig(t, derivatives, bidsDir), &stubEngine{})
	server := httptest.NewServer(a.statusRouter())
	defer server.Close()

	t.Run("healthz", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/healthz")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("status reports the run", func(t *testing.T) {
		a.setPhase("building")

		resp, err := http.Get(server.URL + "/status")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var status statusResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
		assert.Equal(t, a.Request().RunID, status.RunID)
		assert.Equal(t, "participant", status.Level)
		assert.Equal(t, "building", status.Phase)
	})
}
