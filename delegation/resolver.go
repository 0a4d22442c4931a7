// Package delegation resolves the currently active delegation profile of a wallet
// from the ledger using the declaration/relay two-hop protocol.
package delegation

import (
	"context"
	"errors"
	"fmt"

	"github.com/screwyprof/atlas/flp"
	"github.com/screwyprof/atlas/pkg/arweave"
)

// Sentinel errors for failure cases
var (
	ErrDeclarationLookup = errors.New("declaration lookup failed")
	ErrRelayLookup       = errors.New("relay lookup failed")
	ErrPayloadDownload   = errors.New("profile download failed")
)

// Ledger tags used by the protocol
const (
	TagAction      = "Action"
	TagFromProcess = "From-Process"
	TagPushedFor   = "Pushed-For"

	ActionSetDelegation = "Set-Delegation"
)

// Gateway queries ledger messages and downloads their payloads
type Gateway interface {
	FindTransactions(ctx context.Context, q arweave.Query) (*arweave.Page, error)
	DownloadPayload(ctx context.Context, txID string) ([]byte, error)
}

// Outcome tags how a Resolution was reached
type Outcome int

const (
	// OutcomeFound means a declaration and its relayed profile were found.
	OutcomeFound Outcome = iota
	// OutcomeDefaulted means the wallet never declared; the profile is the fallback.
	OutcomeDefaulted
	// OutcomeInconsistent means a declaration exists but its relay is missing.
	OutcomeInconsistent
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFound:
		return "found"
	case OutcomeDefaulted:
		return "defaulted"
	case OutcomeInconsistent:
		return "inconsistent"
	default:
		return "unknown"
	}
}

// Resolution is the result of resolving one wallet
type Resolution struct {
	Outcome       Outcome
	Profile       flp.Profile
	DeclarationID string
	RelayID       string
}

// Option configures the Resolver
type Option func(*Resolver)

// WithAuthority sets the trusted relayer address
func WithAuthority(address string) Option {
	return func(r *Resolver) { r.authority = address }
}

// WithFallbackProject sets the project that receives undeclared balances
func WithFallbackProject(project string) Option {
	return func(r *Resolver) { r.fallbackProject = project }
}

// WithMaxFactor sets the factor that represents 100%
func WithMaxFactor(maxFactor uint32) Option {
	return func(r *Resolver) { r.maxFactor = maxFactor }
}

// Resolver implements the two-hop lookup. It holds no state between calls and is
// safe for concurrent use.
type Resolver struct {
	gateway         Gateway
	delegationPID   string
	authority       string
	fallbackProject string
	maxFactor       uint32
}

// NewResolver constructs a Resolver for the given delegation process
func NewResolver(gateway Gateway, delegationPID string, opts ...Option) *Resolver {
	r := &Resolver{
		gateway:         gateway,
		delegationPID:   delegationPID,
		authority:       flp.DefaultAuthority,
		fallbackProject: flp.FallbackProjectID,
		maxFactor:       flp.DefaultMaxFactor,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the wallet's currently active profile.
//
// A wallet without any declaration resolves to the fallback profile with no error.
// A declaration without its relay returns OutcomeInconsistent with flp.ErrInconsistentState.
func (r *Resolver) Resolve(ctx context.Context, wallet flp.WalletAddress) (Resolution, error) {
	if _, err := flp.ParseWalletAddress(wallet.String()); err != nil {
		return Resolution{}, err
	}

	decl, found, err := r.latest(ctx, arweave.Latest(wallet.String(),
		arweave.Tag{Name: TagAction, Value: ActionSetDelegation},
	))
	if err != nil {
		return Resolution{}, fmt.Errorf("%w: %w: %w", flp.ErrTransport, ErrDeclarationLookup, err)
	}
	if !found {
		return Resolution{
			Outcome: OutcomeDefaulted,
			Profile: flp.DefaultProfile(wallet, r.fallbackProject, r.maxFactor),
		}, nil
	}

	relay, found, err := r.latest(ctx, arweave.Latest(r.authority,
		arweave.Tag{Name: TagFromProcess, Value: r.delegationPID},
		arweave.Tag{Name: TagPushedFor, Value: decl.ID},
	))
	if err != nil {
		return Resolution{}, fmt.Errorf("%w: %w: %w", flp.ErrTransport, ErrRelayLookup, err)
	}
	if !found {
		return Resolution{Outcome: OutcomeInconsistent, DeclarationID: decl.ID},
			fmt.Errorf("%w: no relay for declaration %s of %s", flp.ErrInconsistentState, decl.ID, wallet)
	}

	data, err := r.gateway.DownloadPayload(ctx, relay.ID)
	if err != nil {
		return Resolution{}, fmt.Errorf("%w: %w: %w", flp.ErrTransport, ErrPayloadDownload, err)
	}

	profile, err := DecodeProfile(data, wallet)
	if err != nil {
		return Resolution{}, err
	}
	if err := profile.ValidateFactors(r.maxFactor); err != nil {
		return Resolution{}, err
	}

	return Resolution{
		Outcome:       OutcomeFound,
		Profile:       profile,
		DeclarationID: decl.ID,
		RelayID:       relay.ID,
	}, nil
}

func (r *Resolver) latest(ctx context.Context, q arweave.Query) (arweave.Transaction, bool, error) {
	page, err := r.gateway.FindTransactions(ctx, q)
	if err != nil {
		return arweave.Transaction{}, false, err
	}
	tx, ok := page.First()
	return tx, ok, nil
}
