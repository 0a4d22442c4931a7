package pgxstore

import (
	"fmt"
	"strings"

	"github.com/screwyprof/atlas/web/lookup"
)

// SQL queries
const (
	baseMappingsQuery = "SELECT height, tx_id, wallet_from, wallet_to, factor, ts FROM delegation_mappings"
	baseIdentityQuery = "SELECT wallet, eoa, ts FROM wallet_balances"
)

// HistoryQueryBuilder builds paginated history queries over a single table
type HistoryQueryBuilder struct {
	sql        string
	conditions []string
	order      string
	args       []any
}

// NewMappingsQuery starts a query over delegation_mappings
func NewMappingsQuery() *HistoryQueryBuilder {
	return &HistoryQueryBuilder{sql: baseMappingsQuery}
}

// NewIdentityQuery starts a query over wallet_balances
func NewIdentityQuery() *HistoryQueryBuilder {
	return &HistoryQueryBuilder{sql: baseIdentityQuery}
}

// FromWallet keeps mappings delegating from wallet, most recent height first
func (q *HistoryQueryBuilder) FromWallet(wallet string) *HistoryQueryBuilder {
	q.addWhereCondition("wallet_from = $%d", wallet)
	q.order = "height DESC, tx_id, wallet_to"
	return q
}

// ForWallet keeps identity rows of wallet, most recent first
func (q *HistoryQueryBuilder) ForWallet(wallet string) *HistoryQueryBuilder {
	q.addWhereCondition("wallet = $%d", wallet)
	q.order = "ts DESC, eoa, ticker, tx_id"
	return q
}

// ForEOA keeps identity rows of eoa, most recent first
func (q *HistoryQueryBuilder) ForEOA(eoa string) *HistoryQueryBuilder {
	q.addWhereCondition("eoa = $%d", eoa)
	q.order = "ts DESC, wallet, ticker, tx_id"
	return q
}

// Build returns the final SQL query and arguments, paginated with LIMIT n+1
// so the caller can detect whether another page exists
func (q *HistoryQueryBuilder) Build(criteria lookup.HistoryCriteria) (string, []any) {
	var sb strings.Builder
	sb.WriteString(q.sql)

	if len(q.conditions) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(q.conditions, " AND "))
	}

	if q.order != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(q.order)
	}

	args := append([]any(nil), q.args...)

	args = append(args, criteria.ItemsPerPage()+1)
	fmt.Fprintf(&sb, " LIMIT $%d", len(args))

	if offset := criteria.ItemsToSkip(); offset > 0 {
		args = append(args, offset)
		fmt.Fprintf(&sb, " OFFSET $%d", len(args))
	}

	return sb.String(), args
}

// addWhereCondition adds a condition bound to the next placeholder
func (q *HistoryQueryBuilder) addWhereCondition(sqlClause string, value any) {
	q.args = append(q.args, value)
	q.conditions = append(q.conditions, fmt.Sprintf(sqlClause, len(q.args)))
}
