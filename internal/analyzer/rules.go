package analyzer

import (
	"regexp"
	"strings"
)

// Intent is the coarse operation a request implies.
type Intent string

const (
	IntentCount     Intent = "count"
	IntentList      Intent = "list"
	IntentAggregate Intent = "aggregate"
	IntentGroupBy   Intent = "group_by"
	IntentJoin      Intent = "join"
)

// intentRules are evaluated in order. Every matching keyword raises the
// confidence; the last category with a match sets the intent.
var intentRules = []struct {
	intent   Intent
	keywords []string
}{
	{IntentCount, []string{"how many", "count", "total", "number of"}},
	{IntentList, []string{"show", "list", "get", "display", "find"}},
	{IntentAggregate, []string{"sum", "average", "max", "min", "total"}},
	{IntentGroupBy, []string{"by", "group", "each", "per"}},
	{IntentJoin, []string{"join", "joined with", "together with", "along with", "related", "associated"}},
}

// aggregationWords maps aggregation words to SQL functions, in detection
// order. The last word present wins.
var aggregationWords = []struct {
	word string
	fn   string
}{
	{"count", "COUNT"},
	{"sum", "SUM"},
	{"avg", "AVG"},
	{"average", "AVG"},
	{"max", "MAX"},
	{"min", "MIN"},
}

var groupByWords = []string{"by", "group", "each", "per"}

// domainTables maps business words to candidate table names, tried in order.
var domainTables = []struct {
	keyword    string
	candidates []string
}{
	{"customer", []string{"customers", "users", "clients"}},
	{"order", []string{"orders", "purchases", "transactions"}},
	{"product", []string{"products", "items", "inventory"}},
	{"employee", []string{"employees", "staff", "users"}},
	{"sale", []string{"sales", "orders", "transactions"}},
	{"payment", []string{"payments", "transactions", "invoices"}},
	{"invoice", []string{"invoices", "bills", "payments"}},
}

// expansionWords trigger adding a lone table's direct neighbours.
var expansionWords = []string{"with", "and", "related"}

const (
	baseConfidence    = 0.5
	keywordConfidence = 0.2

	tableConfidence  = 0.9
	aliasConfidence  = 0.8
	columnConfidence = 0.7
	valueConfidence  = 0.9
	numberConfidence = 0.8

	maxInferredTables = 3
	maxSemanticTables = 2
	maxExpansion      = 2

	// DefaultMinSimilarity is the cosine similarity a table name must
	// exceed to be picked by semantic matching.
	DefaultMinSimilarity = 0.3
)

var (
	quotedPattern = regexp.MustCompile(`'([^']*)'|"([^"]*)"`)
	numberPattern = regexp.MustCompile(`\b\d+(?:\.\d+)?\b`)
)

// wordPattern matches phrase as a whole word or phrase.
func wordPattern(phrase string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(phrase) + `\b`)
}

// wordSet compiles a whole-word matcher per entry.
func wordSet(words []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(words))
	for i, w := range words {
		out[i] = wordPattern(w)
	}
	return out
}

func anyMatch(res []*regexp.Regexp, text string) bool {
	for _, re := range res {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

type keywordRule struct {
	intent   Intent
	keywords []string
	patterns []*regexp.Regexp
}

var (
	compiledIntents = func() []keywordRule {
		out := make([]keywordRule, len(intentRules))
		for i, r := range intentRules {
			out[i] = keywordRule{intent: r.intent, keywords: r.keywords, patterns: wordSet(r.keywords)}
		}
		return out
	}()

	compiledAggregations = func() []*regexp.Regexp {
		out := make([]*regexp.Regexp, len(aggregationWords))
		for i, a := range aggregationWords {
			out[i] = wordPattern(a.word)
		}
		return out
	}()

	compiledGroupBy   = wordSet(groupByWords)
	compiledExpansion = wordSet(expansionWords)
	allPattern        = wordPattern("all")

	compiledDomain = func() []*regexp.Regexp {
		out := make([]*regexp.Regexp, len(domainTables))
		for i, d := range domainTables {
			out[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(d.keyword))
		}
		return out
	}()
)

// tablePattern matches a table name at a word start.
func tablePattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(strings.ToLower(name)))
}

// aliasPattern matches an alias as a whole word with an optional plural.
func aliasPattern(alias string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(alias) + `(?:s|es)?\b`)
}

// columnPattern matches a column name as a whole word; underscores may be
// written as spaces.
func columnPattern(name string) *regexp.Regexp {
	parts := strings.Split(strings.ToLower(name), "_")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return regexp.MustCompile(`\b` + strings.Join(parts, `[_ ]`) + `\b`)
}

// MentionsAll reports whether lowered text contains the word "all".
func MentionsAll(lowered string) bool {
	return allPattern.MatchString(lowered)
}
