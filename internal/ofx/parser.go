// Package ofx parses OFX/QFX bank exports into statement entries that the
// importer turns into ledger transactions.
package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"

	"github.com/budgeteer-dev/budgeteer/internal/model"
)

// Statement is one account's worth of parsed activity.
type Statement struct {
	AccountID string // institution account number
	Currency  string
	Entries   []Entry
}

// Entry is a single statement line. ExternalID carries the institution's
// FITID so re-imports can skip entries already recorded.
type Entry struct {
	Date       time.Time
	ExternalID string
	Payee      string
	Memo       string
	CheckNum   string
	Amount     model.Money
}

// Parser implements OFX/QFX file parsing.
type Parser struct{}

// NewParser creates a new OFX parser.
func NewParser() *Parser {
	return &Parser{}
}

// preprocessOFX fixes common formatting issues in OFX files.
func (p *Parser) preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")

	// Fix mixed-case SEVERITY values (should be INFO, WARN, or ERROR)
	severityRegex := regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)

	// Fix missing closing angle brackets in SGML-style OFX files:
	// an opening tag alone on its line with no closing bracket.
	tagFixRegex := regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
	content = tagFixRegex.ReplaceAllString(content, "$1>")

	return content
}

// ParseFile parses an OFX/QFX file into per-account statements.
func (p *Parser) ParseFile(ctx context.Context, reader io.Reader) ([]Statement, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}

	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(p.preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var statements []Statement

	for _, msg := range resp.Bank {
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok {
			continue
		}
		parsed, err := p.bankStatement(stmt)
		if err != nil {
			slog.Warn("failed to process bank statement",
				"account", stmt.BankAcctFrom.AcctID,
				"error", err)
			continue
		}
		statements = append(statements, parsed)
	}

	for _, msg := range resp.CreditCard {
		stmt, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok {
			continue
		}
		parsed, err := p.creditCardStatement(stmt)
		if err != nil {
			slog.Warn("failed to process credit card statement",
				"account", stmt.CCAcctFrom.AcctID,
				"error", err)
			continue
		}
		statements = append(statements, parsed)
	}

	total := 0
	for _, s := range statements {
		total += len(s.Entries)
	}
	slog.Info("parsed OFX file",
		"statements", len(statements),
		"entries", total)

	return statements, nil
}

func (p *Parser) bankStatement(stmt *ofxgo.StatementResponse) (Statement, error) {
	out := Statement{
		AccountID: string(stmt.BankAcctFrom.AcctID),
		Currency:  currencyCode(stmt.CurDef),
	}
	if stmt.BankTranList == nil {
		return out, nil
	}
	for _, ofxTx := range stmt.BankTranList.Transactions {
		entry, err := p.convertEntry(ofxTx, out.Currency)
		if err != nil {
			return Statement{}, err
		}
		out.Entries = append(out.Entries, entry)
	}
	return out, nil
}

func (p *Parser) creditCardStatement(stmt *ofxgo.CCStatementResponse) (Statement, error) {
	out := Statement{
		AccountID: string(stmt.CCAcctFrom.AcctID),
		Currency:  currencyCode(stmt.CurDef),
	}
	if stmt.BankTranList == nil {
		return out, nil
	}
	for _, ofxTx := range stmt.BankTranList.Transactions {
		entry, err := p.convertEntry(ofxTx, out.Currency)
		if err != nil {
			return Statement{}, err
		}
		out.Entries = append(out.Entries, entry)
	}
	return out, nil
}

func (p *Parser) convertEntry(ofxTx ofxgo.Transaction, currency string) (Entry, error) {
	// TrnAmt is an exact rational; go through decimal to avoid float
	// intermediate values. OFX uses negative amounts for debits, which
	// matches the ledger's sign convention directly.
	amount, err := decimal.NewFromString(ofxTx.TrnAmt.String())
	if err != nil {
		return Entry{}, fmt.Errorf("invalid amount %q: %w", ofxTx.TrnAmt.String(), err)
	}

	entry := Entry{
		Date:       model.Day(ofxTx.DtPosted.Time),
		ExternalID: string(ofxTx.FiTID),
		Payee:      p.extractPayee(ofxTx),
		Memo:       strings.TrimSpace(string(ofxTx.Memo)),
		CheckNum:   string(ofxTx.CheckNum),
		Amount:     model.MoneyFromDecimal(amount, currency),
	}
	return entry, nil
}

// extractPayee tries to get a clean payee name from OFX data.
func (p *Parser) extractPayee(tx ofxgo.Transaction) string {
	// Prefer PAYEE if available (cleaner merchant name)
	if tx.Payee != nil && tx.Payee.Name != "" {
		return string(tx.Payee.Name)
	}

	name := string(tx.Name)

	// Sometimes MEMO has better merchant info than a generic NAME
	if tx.Memo != "" && isGenericDescription(name) {
		name = string(tx.Memo)
	}

	name = strings.TrimSpace(name)

	prefixes := []string{
		"POS PURCHASE ",
		"PURCHASE AUTHORIZED ON ",
		"DEBIT CARD PURCHASE ",
		"ACH DEBIT ",
		"CHECK CARD ",
		"VISA PURCHASE ",
		"MC PURCHASE ",
		"DEBIT PURCHASE ",
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(strings.ToUpper(name), prefix) {
			name = name[len(prefix):]
			break
		}
	}

	// Strip leading "MM/DD " date patterns
	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = strings.TrimSpace(name[6:])
	}

	return name
}

func isGenericDescription(name string) bool {
	generic := []string{
		"DEBIT",
		"CREDIT",
		"PAYMENT",
		"PURCHASE",
		"WITHDRAWAL",
		"DEPOSIT",
		"TRANSFER",
	}
	upper := strings.ToUpper(strings.TrimSpace(name))
	for _, g := range generic {
		if upper == g {
			return true
		}
	}
	return false
}

func currencyCode(cur ofxgo.CurrSymbol) string {
	code := cur.String()
	// The zero CurrSymbol renders as the ISO "unknown" code.
	if code == "" || code == "XXX" {
		return model.DefaultCurrencyCode
	}
	return code
}
