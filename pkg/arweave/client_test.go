package arweave_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/screwyprof/atlas/pkg/arweave"
)

func TestClientFindTransactions(t *testing.T) {
	t.Parallel()

	t.Run("it parses edges and page info", func(t *testing.T) {
		t.Parallel()

		// Arrange
		server := httptest.NewServer(graphQLHandler(t, `{
			"data": {"transactions": {
				"edges": [
					{"cursor": "c1", "node": {"id": "tx-1", "owner": {"address": "owner-1"},
						"tags": [{"name": "Action", "value": "Set-Delegation"}],
						"block": {"id": "b1", "height": 1700000}}},
					{"cursor": "c2", "node": {"id": "tx-2", "owner": {"address": "owner-1"},
						"tags": [], "block": null}}
				],
				"pageInfo": {"hasNextPage": true}
			}}
		}`))
		defer server.Close()

		client := arweave.NewClient(server.Client(), server.URL)

		// Act
		page, err := client.FindTransactions(context.Background(), arweave.Query{First: 2})

		// Assert
		require.NoError(t, err)
		require.Len(t, page.Transactions, 2)
		assert.True(t, page.HasNextPage)
		assert.Equal(t, "c2", page.EndCursor())

		first := page.Transactions[0]
		assert.Equal(t, "tx-1", first.ID)
		assert.Equal(t, "owner-1", first.Owner)
		assert.Equal(t, uint32(1700000), first.BlockHeight)

		action, ok := first.Tag("Action")
		assert.True(t, ok)
		assert.Equal(t, "Set-Delegation", action)

		assert.Zero(t, page.Transactions[1].BlockHeight, "pending transactions have no height")
	})

	t.Run("it reports graphql errors as rejected queries", func(t *testing.T) {
		t.Parallel()

		// Arrange
		server := httptest.NewServer(graphQLHandler(t, `{"errors": [{"message": "bad cursor"}]}`))
		defer server.Close()

		client := arweave.NewClient(server.Client(), server.URL)

		// Act
		_, err := client.FindTransactions(context.Background(), arweave.Query{First: 1})

		// Assert
		require.ErrorIs(t, err, arweave.ErrQueryRejected)
		assert.Contains(t, err.Error(), "bad cursor")
	})

	t.Run("it fails on non-200 status", func(t *testing.T) {
		t.Parallel()

		// Arrange
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		client := arweave.NewClient(server.Client(), server.URL)

		// Act
		_, err := client.FindTransactions(context.Background(), arweave.Query{First: 1})

		// Assert
		require.ErrorIs(t, err, arweave.ErrUnexpectedStatus)
	})

	t.Run("it fails on malformed json", func(t *testing.T) {
		t.Parallel()

		// Arrange
		server := httptest.NewServer(graphQLHandler(t, `{"data": `))
		defer server.Close()

		client := arweave.NewClient(server.Client(), server.URL)

		// Act
		_, err := client.FindTransactions(context.Background(), arweave.Query{First: 1})

		// Assert
		require.ErrorIs(t, err, arweave.ErrDecodeFailed)
	})

	t.Run("it fails when the gateway is unreachable", func(t *testing.T) {
		t.Parallel()

		// Arrange
		server := httptest.NewServer(http.NotFoundHandler())
		client := arweave.NewClient(server.Client(), server.URL)
		server.Close()

		// Act
		_, err := client.FindTransactions(context.Background(), arweave.Query{First: 1})

		// Assert
		require.ErrorIs(t, err, arweave.ErrRequestFailed)
	})
}

func TestClientDownloadPayload(t *testing.T) {
	t.Parallel()

	t.Run("it returns the raw body", func(t *testing.T) {
		t.Parallel()

		// Arrange
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/tx-1", r.URL.Path)
			_, _ = io.WriteString(w, `[{"eoa":"0x1"}]`)
		}))
		defer server.Close()

		client := arweave.NewClient(server.Client(), server.URL)

		// Act
		data, err := client.DownloadPayload(context.Background(), "tx-1")

		// Assert
		require.NoError(t, err)
		assert.JSONEq(t, `[{"eoa":"0x1"}]`, string(data))
	})

	t.Run("it rejects ids that would change the path", func(t *testing.T) {
		t.Parallel()

		// Arrange
		client := arweave.NewClient(http.DefaultClient, "http://127.0.0.1:0")

		// Act
		_, err := client.DownloadPayload(context.Background(), "../graphql")

		// Assert
		require.ErrorIs(t, err, arweave.ErrInvalidTxID)
	})

	t.Run("it fails on missing payloads", func(t *testing.T) {
		t.Parallel()

		// Arrange
		server := httptest.NewServer(http.NotFoundHandler())
		defer server.Close()

		client := arweave.NewClient(server.Client(), server.URL)

		// Act
		_, err := client.DownloadPayload(context.Background(), "tx-404")

		// Assert
		require.ErrorIs(t, err, arweave.ErrUnexpectedStatus)
	})
}

func TestQueryRender(t *testing.T) {
	t.Parallel()

	// Arrange
	q := arweave.Query{
		Owners: []string{"authority"},
		Tags:   []arweave.Tag{{Name: "Action", Value: "Set-Balances"}},
		First:  100,
		After:  `cur"sor`,
		Sort:   arweave.SortHeightAsc,
	}

	// Act
	doc := q.Render()

	// Assert
	assert.Contains(t, doc, "first: 100")
	assert.Contains(t, doc, "sort: HEIGHT_ASC")
	assert.Contains(t, doc, `owners: ["authority"]`)
	assert.Contains(t, doc, `{ name: "Action", values: ["Set-Balances"] }`)
	assert.Contains(t, doc, `after: "cur\"sor"`)
}

// graphQLHandler checks the request is a GraphQL POST and replies with body
func graphQLHandler(t *testing.T, body string) http.HandlerFunc {
	t.Helper()

	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/graphql", r.URL.Path)

		var req struct {
			Query string `json:"query"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Query, "transactions(")

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}
}
