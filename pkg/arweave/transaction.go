package arweave

// Transaction represents a ledger message returned by a transactions query
type Transaction struct {
	ID          string
	Owner       string
	Tags        []Tag
	BlockHeight uint32 // 0 while the message is not yet anchored in a block
	Cursor      string
}

// Tag returns the value of the first tag with the given name
func (t Transaction) Tag(name string) (string, bool) {
	for _, tag := range t.Tags {
		if tag.Name == name {
			return tag.Value, true
		}
	}
	return "", false
}

// Page is one page of a transactions query, ordered as requested
type Page struct {
	Transactions []Transaction
	HasNextPage  bool
}

// EndCursor returns the cursor of the last transaction, or "" for an empty page
func (p *Page) EndCursor() string {
	if p == nil || len(p.Transactions) == 0 {
		return ""
	}
	return p.Transactions[len(p.Transactions)-1].Cursor
}

// First returns the first transaction of the page, if any
func (p *Page) First() (Transaction, bool) {
	if p == nil || len(p.Transactions) == 0 {
		return Transaction{}, false
	}
	return p.Transactions[0], true
}

// Wire format of the GraphQL envelope

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLResponse struct {
	Data *struct {
		Transactions *transactionsConnection `json:"transactions"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type transactionsConnection struct {
	Edges []struct {
		Cursor string `json:"cursor"`
		Node   struct {
			ID    string `json:"id"`
			Owner struct {
				Address string `json:"address"`
			} `json:"owner"`
			Tags  []Tag `json:"tags"`
			Block *struct {
				ID     string `json:"id"`
				Height uint32 `json:"height"`
			} `json:"block"`
		} `json:"node"`
	} `json:"edges"`
	PageInfo struct {
		HasNextPage bool `json:"hasNextPage"`
	} `json:"pageInfo"`
}

func (c *transactionsConnection) page() *Page {
	txs := make([]Transaction, 0, len(c.Edges))
	for _, edge := range c.Edges {
		if edge.Node.ID == "" {
			continue
		}
		tx := Transaction{
			ID:     edge.Node.ID,
			Owner:  edge.Node.Owner.Address,
			Tags:   edge.Node.Tags,
			Cursor: edge.Cursor,
		}
		if edge.Node.Block != nil {
			tx.BlockHeight = edge.Node.Block.Height
		}
		txs = append(txs, tx)
	}
	return &Page{Transactions: txs, HasNextPage: c.PageInfo.HasNextPage}
}
