package delegation

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/screwyprof/atlas/flp"
)

// profilePayload accepts both the current camelCase schema and the older snake_case one.
// The wallet key (`_key` or `wallet`) is not decoded.
type profilePayload struct {
	LastUpdate      *int64           `json:"lastUpdate"`
	DelegationPrefs *[]preferenceRow `json:"delegationPrefs"`

	LastUpdateOld      *int64           `json:"last_update"`
	DelegationPrefsOld *[]preferenceRow `json:"delegation_prefs"`
}

type preferenceRow struct {
	WalletTo    string `json:"walletTo"`
	WalletToOld string `json:"wallet_to"`
	Factor      *int64 `json:"factor"`
}

// DecodeProfile decodes a relayed delegation profile. The payload's own wallet
// key is informational; the profile is attributed to wallet.
func DecodeProfile(data []byte, wallet flp.WalletAddress) (flp.Profile, error) {
	var p profilePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return flp.Profile{}, fmt.Errorf("%w: %w", flp.ErrSchema, err)
	}

	rows, lastUpdate := p.DelegationPrefs, p.LastUpdate
	if rows == nil {
		rows, lastUpdate = p.DelegationPrefsOld, p.LastUpdateOld
	}
	if rows == nil {
		return flp.Profile{}, fmt.Errorf("%w: missing delegation preferences", flp.ErrSchema)
	}

	prefs := make([]flp.Preference, 0, len(*rows))
	for i, row := range *rows {
		target := row.WalletTo
		if target == "" {
			target = row.WalletToOld
		}
		if target == "" || row.Factor == nil {
			return flp.Profile{}, fmt.Errorf("%w: preference %d is incomplete", flp.ErrSchema, i)
		}
		if *row.Factor < 0 || *row.Factor > int64(^uint32(0)) {
			return flp.Profile{}, fmt.Errorf("%w: preference %d factor %d out of range", flp.ErrSchema, i, *row.Factor)
		}
		prefs = append(prefs, flp.Preference{Target: target, Factor: uint32(*row.Factor)})
	}

	profile := flp.Profile{Wallet: wallet, Preferences: prefs}
	if lastUpdate != nil {
		profile.LastUpdate = time.UnixMilli(*lastUpdate).UTC()
	}
	return profile, nil
}
