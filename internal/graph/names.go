package graph

import (
	"regexp"
	"sort"
	"strings"

	"github.com/jinzhu/inflection"
)

// Tag is a semantic column category.
type Tag string

const (
	TagIdentifier Tag = "identifier"
	TagName       Tag = "name"
	TagEmail      Tag = "email"
	TagPhone      Tag = "phone"
	TagAddress    Tag = "address"
	TagTemporal   Tag = "temporal"
	TagStatus     Tag = "status"
	TagAmount     Tag = "amount"
	TagQuantity   Tag = "quantity"
)

// columnTagRules is evaluated in order; a column gets every tag whose
// synonym list has a member occurring in its lower-cased name.
var columnTagRules = []struct {
	tag      Tag
	synonyms []string
}{
	{TagIdentifier, []string{"id", "pk", "primary_key", "key"}},
	{TagName, []string{"name", "title", "label", "description"}},
	{TagEmail, []string{"email", "email_address", "mail"}},
	{TagPhone, []string{"phone", "telephone", "mobile", "contact"}},
	{TagAddress, []string{"address", "addr", "location"}},
	{TagTemporal, []string{"date", "created_at", "updated_at", "timestamp"}},
	{TagStatus, []string{"status", "state", "condition"}},
	{TagAmount, []string{"amount", "price", "cost", "value", "total"}},
	{TagQuantity, []string{"quantity", "qty", "count", "number"}},
}

func tagColumn(name string) []Tag {
	lower := strings.ToLower(name)
	var tags []Tag
	for _, rule := range columnTagRules {
		for _, syn := range rule.synonyms {
			if strings.Contains(lower, syn) {
				tags = append(tags, rule.tag)
				break
			}
		}
	}
	return tags
}

func tableSynonyms(cols []*Column) []Tag {
	seen := map[Tag]bool{}
	var out []Tag
	for _, c := range cols {
		for _, t := range c.Tags {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// businessAliases maps common table names to the words people use for them.
var businessAliases = []struct {
	table   string
	aliases []string
}{
	{"customers", []string{"cust", "customer", "client"}},
	{"products", []string{"prod", "product", "item"}},
	{"orders", []string{"ord", "order", "purchase"}},
	{"employees", []string{"emp", "employee", "staff"}},
	{"transactions", []string{"trans", "transaction", "txn"}},
	{"invoices", []string{"inv", "invoice", "bill"}},
	{"payments", []string{"pay", "payment", "pmt"}},
	{"addresses", []string{"addr", "address", "location"}},
}

var wordSplit = regexp.MustCompile(`[_\s]+`)

// CleanName lower-cases a table name and strips a tbl_ prefix and a _table
// suffix.
func CleanName(table string) string {
	clean := strings.ToLower(table)
	clean = strings.TrimPrefix(clean, "tbl_")
	clean = strings.TrimSuffix(clean, "_table")
	return clean
}

func deriveAliases(table string) []string {
	lower := strings.ToLower(table)
	clean := CleanName(table)
	set := map[string]bool{}
	if clean != lower && clean != "" {
		set[clean] = true
	}
	if len(clean) > 4 {
		set[clean[:4]] = true
	}
	if words := wordSplit.Split(clean, -1); len(words) > 1 {
		var initials strings.Builder
		for _, w := range words {
			if w != "" {
				initials.WriteByte(w[0])
			}
		}
		// A single initial would match almost anything.
		if initials.Len() > 1 {
			set[initials.String()] = true
		}
	}
	if clean != "" {
		for _, b := range businessAliases {
			if strings.Contains(clean, b.table) || (len(clean) >= 3 && strings.Contains(b.table, clean)) {
				for _, a := range b.aliases {
					set[a] = true
				}
			}
		}
	}
	delete(set, lower)
	delete(set, "")

	out := make([]string, 0, len(set))
	for a := range set {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// stemCandidates lists the table names a <word>_id column may point at,
// in the order they are tried.
func stemCandidates(word string) []string {
	cands := []string{word, word + "s", word + "es"}
	if strings.HasSuffix(word, "y") {
		cands = append(cands, strings.TrimSuffix(word, "y")+"ies")
	}
	if plural := inflection.Plural(word); plural != word {
		cands = append(cands, plural)
	}
	return cands
}

func (g *Graph) resolveStem(word string) (*Table, bool) {
	for _, cand := range stemCandidates(word) {
		if t, ok := g.tables[cand]; ok {
			return t, true
		}
	}
	return nil, false
}

// NamingPatterns lists table-name prefixes and suffixes shared by more than
// one table.
type NamingPatterns struct {
	CommonPrefixes []string `json:"common_prefixes"`
	CommonSuffixes []string `json:"common_suffixes"`
}

func namingPatterns(tables []string) NamingPatterns {
	prefixes := map[string]int{}
	suffixes := map[string]int{}
	for _, t := range tables {
		parts := strings.Split(t, "_")
		if len(parts) > 1 {
			prefixes[parts[0]]++
			suffixes[parts[len(parts)-1]]++
		}
	}
	return NamingPatterns{
		CommonPrefixes: repeated(prefixes),
		CommonSuffixes: repeated(suffixes),
	}
}

func repeated(counts map[string]int) []string {
	var out []string
	for k, v := range counts {
		if v > 1 {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
