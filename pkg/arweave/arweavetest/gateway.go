// Package arweavetest provides an in-memory gateway for tests.
package arweavetest

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"

	"github.com/screwyprof/atlas/pkg/arweave"
)

// Gateway is an in-memory stand-in for an Arweave gateway.
// Cursors are the string index of a transaction within the filtered result.
type Gateway struct {
	mu       sync.Mutex
	txs      []arweave.Transaction
	payloads map[string][]byte

	// FindErr and DownloadErr, when set, are returned by every call.
	FindErr     error
	DownloadErr error

	Queries   []arweave.Query
	Downloads []string
}

// NewGateway creates an empty gateway
func NewGateway() *Gateway {
	return &Gateway{payloads: make(map[string][]byte)}
}

// Publish adds a transaction with its payload. A nil payload leaves the data missing.
func (g *Gateway) Publish(tx arweave.Transaction, payload []byte) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.txs = append(g.txs, tx)
	if payload != nil {
		g.payloads[tx.ID] = payload
	}
}

// QueryCount returns the number of FindTransactions calls seen so far
func (g *Gateway) QueryCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Queries)
}

// DownloadCount returns the number of DownloadPayload calls seen so far
func (g *Gateway) DownloadCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Downloads)
}

// FindTransactions filters by owners and tags, sorts by height, then pages
func (g *Gateway) FindTransactions(_ context.Context, q arweave.Query) (*arweave.Page, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.Queries = append(g.Queries, q)
	if g.FindErr != nil {
		return nil, g.FindErr
	}

	var matched []arweave.Transaction
	for _, tx := range g.txs {
		if matches(tx, q) {
			matched = append(matched, tx)
		}
	}

	slices.SortStableFunc(matched, func(a, b arweave.Transaction) int {
		if q.Sort == arweave.SortHeightAsc {
			return int(a.BlockHeight) - int(b.BlockHeight)
		}
		return int(b.BlockHeight) - int(a.BlockHeight)
	})

	start := 0
	if q.After != "" {
		n, err := strconv.Atoi(q.After)
		if err != nil {
			return nil, fmt.Errorf("%w: bad cursor %q", arweave.ErrQueryRejected, q.After)
		}
		start = n + 1
	}

	first := q.First
	if first <= 0 {
		first = 1
	}

	page := &arweave.Page{}
	for i := start; i < len(matched) && len(page.Transactions) < first; i++ {
		tx := matched[i]
		tx.Cursor = strconv.Itoa(i)
		page.Transactions = append(page.Transactions, tx)
	}
	page.HasNextPage = start+len(page.Transactions) < len(matched)

	return page, nil
}

// DownloadPayload returns the stored payload or ErrUnexpectedStatus
func (g *Gateway) DownloadPayload(_ context.Context, txID string) ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.Downloads = append(g.Downloads, txID)
	if g.DownloadErr != nil {
		return nil, g.DownloadErr
	}

	data, ok := g.payloads[txID]
	if !ok {
		return nil, fmt.Errorf("%w: 404", arweave.ErrUnexpectedStatus)
	}
	return data, nil
}

func matches(tx arweave.Transaction, q arweave.Query) bool {
	if len(q.Owners) > 0 && !slices.Contains(q.Owners, tx.Owner) {
		return false
	}
	for _, want := range q.Tags {
		got, ok := tx.Tag(want.Name)
		if !ok || got != want.Value {
			return false
		}
	}
	return true
}
