package arweave

import (
	"fmt"
	"strconv"
	"strings"
)

// Sort orders transactions by block height
type Sort string

const (
	SortHeightDesc Sort = "HEIGHT_DESC"
	SortHeightAsc  Sort = "HEIGHT_ASC"
)

// Tag is a name/value pair attached to a transaction
type Tag struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Query represents parameters for a transactions query.
// Tags are exact-match filters; Owners is optional.
type Query struct {
	Owners []string
	Tags   []Tag
	First  int
	After  string
	Sort   Sort
}

// Latest builds a query for the single most recent transaction matching the filters
func Latest(owner string, tags ...Tag) Query {
	q := Query{Tags: tags, First: 1, Sort: SortHeightDesc}
	if owner != "" {
		q.Owners = []string{owner}
	}
	return q
}

// Render produces the GraphQL document. Values are inlined because public gateways
// ignore query variables.
func (q Query) Render() string {
	first := q.First
	if first <= 0 {
		first = 1
	}
	sort := q.Sort
	if sort == "" {
		sort = SortHeightDesc
	}

	args := []string{
		fmt.Sprintf("first: %d", first),
		fmt.Sprintf("sort: %s", sort),
	}
	if len(q.Owners) > 0 {
		args = append(args, fmt.Sprintf("owners: [%s]", quoteAll(q.Owners)))
	}
	if len(q.Tags) > 0 {
		tags := make([]string, len(q.Tags))
		for i, t := range q.Tags {
			tags[i] = fmt.Sprintf("{ name: %s, values: [%s] }", strconv.Quote(t.Name), strconv.Quote(t.Value))
		}
		args = append(args, fmt.Sprintf("tags: [%s]", strings.Join(tags, ", ")))
	}
	if q.After != "" {
		args = append(args, fmt.Sprintf("after: %s", strconv.Quote(q.After)))
	}

	return fmt.Sprintf(`query GetTransactions {
  transactions(%s) {
    edges {
      cursor
      node {
        id
        owner { address }
        tags { name value }
        block { id height }
      }
    }
    pageInfo { hasNextPage }
  }
}`, strings.Join(args, ", "))
}

func quoteAll(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = strconv.Quote(v)
	}
	return strings.Join(quoted, ", ")
}
