package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storehours/internal/internaltypes"
)

func TestSellers(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"s1","name":"A","tags":[{"code":"timing","list":[{"code":"location","value":"l1"}]}]},{"id":"s2","name":"B"}]`))
	}))
	defer srv.Close()

	ss, err := New("tok").Sellers(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, ss, 2)
	assert.Equal(t, []string{"l1"}, ss[0].LocationIDs())
	assert.Equal(t, "Bearer tok", gotAuth)
}

func TestSellersErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/denied":
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"message":"token expired"}`))
		case "/broken":
			w.WriteHeader(http.StatusBadGateway)
		default:
			_, _ = w.Write([]byte(`{"id":`))
		}
	}))
	defer srv.Close()

	c := New("")
	_, err := c.Sellers(context.Background(), srv.URL+"/denied")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token expired")

	_, err = c.Sellers(context.Background(), srv.URL+"/broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=502")

	_, err = c.Sellers(context.Background(), srv.URL+"/garbage")
	assert.ErrorIs(t, err, internaltypes.ErrInvalidInput)
}
