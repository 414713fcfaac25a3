package ai

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/aman-zulfiqar/constant-product-amm/internal/models"
)

// kindGuide explains every ledger event kind. Keywords are word prefixes that
// tie a question to the kind.
var kindGuide = []struct {
	kind     models.EventKind
	keywords []string
	note     string
}{
	{models.EventFund, []string{"fund", "faucet"},
		"free balances credited out of band; reserves do not move"},
	{models.EventProvide, []string{"deposit", "provide", "provider", "liquidity"},
		"amount1/amount2 locked into the reserves; shares is the amount minted"},
	{models.EventWithdraw, []string{"withdraw", "remov", "burn", "liquidity"},
		"shares burned; amount1/amount2 released from the reserves"},
	{models.EventSwap, []string{"swap", "trade", "trader", "volume", "price", "sell", "sold", "slippage"},
		"exact-input swap; direction names the token sold"},
	{models.EventSwapExact, []string{"swap", "trade", "trader", "volume", "price", "buy", "bought", "exact"},
		"exact-output swap; direction names the token sold"},
}

// kindsIn returns the event kinds a question refers to, in guide order.
func kindsIn(question string) []models.EventKind {
	words := strings.FieldsFunc(strings.ToLower(question), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '_'
	})

	var kinds []models.EventKind
	for _, g := range kindGuide {
		if mentions(words, g.keywords) || mentions(words, []string{string(g.kind)}) {
			kinds = append(kinds, g.kind)
		}
	}
	return kinds
}

func mentions(words, keywords []string) bool {
	for _, w := range words {
		for _, k := range keywords {
			if strings.HasPrefix(w, k) {
				return true
			}
		}
	}
	return false
}

func (a *Agent) sqlPrompt(question string, kinds []models.EventKind) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You write ClickHouse SQL over the event ledger of the constant-product pool %s.\n\n", sqlString(a.pool))
	b.WriteString(schemaDescription(a.database, a.table))

	b.WriteString("\nEvent kinds:\n")
	for _, g := range kindGuide {
		fmt.Fprintf(&b, "  - %s: %s\n", g.kind, g.note)
	}

	b.WriteString("\nRules:\n")
	fmt.Fprintf(&b, "- Return one SELECT reading only %s.%s, with no explanation and no comments.\n", a.database, a.table)
	fmt.Fprintf(&b, "- Always filter pool = %s.\n", sqlString(a.pool))
	if len(kinds) > 0 {
		fmt.Fprintf(&b, "- The question is about kind IN (%s).\n", kindList(kinds))
	}
	b.WriteString("- Amount columns are raw integer units; wrap them in toFloat64 before dividing.\n")
	b.WriteString("- The current reserves are on the row with the highest version.\n")
	b.WriteString("- The price of token1 in token2 is toFloat64(reserve2) / toFloat64(reserve1).\n")
	b.WriteString("- Filter time with timestamp, e.g. timestamp >= now() - INTERVAL 24 HOUR.\n")
	b.WriteString("- For \"top\" or \"largest\" use ORDER BY ... DESC with a LIMIT.\n")

	fmt.Fprintf(&b, "\nQuestion:\n%s\n", question)
	return b.String()
}

func (a *Agent) answerPrompt(question, sqlQuery, rowsJSON string, kinds []models.EventKind) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You explain the activity of the constant-product pool %s.\n\n", sqlString(a.pool))
	fmt.Fprintf(&b, "Question:\n%s\n\n", question)
	fmt.Fprintf(&b, "SQL that was executed:\n%s\n\n", sqlQuery)
	fmt.Fprintf(&b, "Rows as JSON (may be empty):\n%s\n\n", rowsJSON)

	b.WriteString("Instructions:\n")
	b.WriteString("- If there are no rows, say no matching pool events were found.\n")
	b.WriteString("- Otherwise answer in short bullet points with the key numbers.\n")
	b.WriteString("- Amounts are raw token units; call them token1 and token2.\n")
	if len(kinds) > 0 {
		fmt.Fprintf(&b, "- The rows cover %s events.\n", kindList(kinds))
	}
	b.WriteString("- Do not repeat the JSON.\n")
	return b.String()
}

func kindList(kinds []models.EventKind) string {
	quoted := make([]string, len(kinds))
	for i, k := range kinds {
		quoted[i] = sqlString(string(k))
	}
	return strings.Join(quoted, ", ")
}

// sqlString quotes s as a ClickHouse string literal.
func sqlString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}
