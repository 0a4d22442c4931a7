package api

// Status is the body of GET /
type Status struct {
	Status  string   `json:"status"`
	Version string   `json:"version"`
	Tickers []string `json:"tickers"`
}

// Preference is one routed share of a profile
type Preference struct {
	WalletTo string `json:"walletTo"`
	Factor   uint32 `json:"factor"`
}

// DelegationsResponse is the live profile of a wallet
type DelegationsResponse struct {
	Wallet        string       `json:"wallet"`
	Outcome       string       `json:"outcome"`
	LastUpdate    string       `json:"lastUpdate,omitempty"`
	DeclarationID string       `json:"declarationId,omitempty"`
	RelayID       string       `json:"relayId,omitempty"`
	Preferences   []Preference `json:"delegationPrefs"`
}

// OracleLatestResponse names the latest snapshot of a ticker
type OracleLatestResponse struct {
	Ticker string `json:"ticker"`
	TxID   string `json:"txId"`
}

// ProjectTotal aggregates one ticker of a project
type ProjectTotal struct {
	Ticker      string `json:"ticker"`
	TotalAmount string `json:"totalAmount"`
	Delegators  int    `json:"delegators"`
}

// Delegator is one stored position of a project
type Delegator struct {
	Ticker    string `json:"ticker"`
	Wallet    string `json:"wallet"`
	EOA       string `json:"eoa"`
	Factor    uint32 `json:"factor"`
	Amount    string `json:"amount"`
	Timestamp string `json:"timestamp"`
}

// DistributionResponse is the current distribution of a project
type DistributionResponse struct {
	Project    string         `json:"project"`
	Name       string         `json:"name,omitempty"`
	Totals     []ProjectTotal `json:"totals"`
	Delegators []Delegator    `json:"delegators"`
}

// IdentityLink ties a wallet to an EOA
type IdentityLink struct {
	Wallet    string `json:"wallet"`
	EOA       string `json:"eoa"`
	Timestamp string `json:"timestamp"`
}

// IdentityResponse is one page of identity history
type IdentityResponse struct {
	Data []IdentityLink `json:"data"`
}

// Mapping is one backfilled mapping row
type Mapping struct {
	Height     uint32 `json:"height"`
	TxID       string `json:"txId"`
	WalletFrom string `json:"walletFrom"`
	WalletTo   string `json:"walletTo"`
	Factor     uint32 `json:"factor"`
}

// MappingsResponse is one page of mapping rows
type MappingsResponse struct {
	Data []Mapping `json:"data"`
}
