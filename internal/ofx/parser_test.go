package ofx

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aclindsa/ofxgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Sample OFX data for testing.
const sampleBankOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20180915120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>USD
<BANKACCTFROM>
<BANKID>123456789
<ACCTID>1234567890
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20180901120000[0:GMT]
<DTEND>20180930120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20180901120000[0:GMT]
<TRNAMT>-12.75
<FITID>2018090101
<NAME>CORNER GROCER
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20180902120000[0:GMT]
<TRNAMT>-38.97
<FITID>2018090201
<NAME>METRO ELECTRIC CO
</STMTTRN>
<STMTTRN>
<TRNTYPE>CHECK
<DTPOSTED>20180903120000[0:GMT]
<TRNAMT>-120.00
<FITID>2018090301
<CHECKNUM>1234
<NAME>CHECK #1234
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>1000.00
<DTASOF>20180930120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

const sampleCreditCardOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20180915120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<CREDITCARDMSGSRSV1>
<CCSTMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<CCSTMTRS>
<CURDEF>USD
<CCACCTFROM>
<ACCTID>4111111111111111
</CCACCTFROM>
<BANKTRANLIST>
<DTSTART>20180901120000[0:GMT]
<DTEND>20180930120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20180910120000[0:GMT]
<TRNAMT>-45.99
<FITID>CC2018091001
<NAME>POS PURCHASE BOOKSHOP
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20180915120000[0:GMT]
<TRNAMT>120.00
<FITID>CC2018091501
<NAME>PAYMENT RECEIVED
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>-500.00
<DTASOF>20180930120000[0:GMT]
</LEDGERBAL>
</CCSTMTRS>
</CCSTMTTRNRS>
</CREDITCARDMSGSRSV1>
</OFX>`

func TestParseFile(t *testing.T) {
	tests := []struct {
		name          string
		ofxData       string
		expectedCount int
		expectedError bool
	}{
		{
			name:          "valid bank statement",
			ofxData:       sampleBankOFX,
			expectedCount: 1,
			expectedError: false,
		},
		{
			name:          "valid credit card statement",
			ofxData:       sampleCreditCardOFX,
			expectedCount: 1,
			expectedError: false,
		},
		{
			name:          "invalid OFX data",
			ofxData:       "not valid OFX",
			expectedCount: 0,
			expectedError: true,
		},
		{
			name:          "empty OFX",
			ofxData:       "",
			expectedCount: 0,
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := NewParser()
			reader := strings.NewReader(tt.ofxData)

			statements, err := parser.ParseFile(context.Background(), reader)

			if tt.expectedError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Len(t, statements, tt.expectedCount)
			}
		})
	}
}

func TestParseBankStatement(t *testing.T) {
	parser := NewParser()
	reader := strings.NewReader(sampleBankOFX)

	statements, err := parser.ParseFile(context.Background(), reader)
	require.NoError(t, err)
	require.Len(t, statements, 1)

	stmt := statements[0]
	assert.Equal(t, "1234567890", stmt.AccountID)
	assert.Equal(t, "USD", stmt.Currency)
	require.Len(t, stmt.Entries, 3)

	grocer := stmt.Entries[0]
	assert.Equal(t, "2018090101", grocer.ExternalID)
	assert.Equal(t, "CORNER GROCER", grocer.Payee)
	assert.Equal(t, int64(-127500), grocer.Amount.ScaledAmount())
	assert.Equal(t, "USD", grocer.Amount.Currency())
	// Dates are normalized to day granularity.
	assert.Equal(t, 2018, grocer.Date.Year())
	assert.Equal(t, time.September, grocer.Date.Month())
	assert.Equal(t, 1, grocer.Date.Day())
	assert.Equal(t, 0, grocer.Date.Hour())

	electric := stmt.Entries[1]
	assert.Equal(t, "METRO ELECTRIC CO", electric.Payee)
	assert.Equal(t, int64(-389700), electric.Amount.ScaledAmount())

	check := stmt.Entries[2]
	assert.Equal(t, "1234", check.CheckNum)
	assert.Equal(t, int64(-1200000), check.Amount.ScaledAmount())
}

func TestParseCreditCardStatement(t *testing.T) {
	parser := NewParser()
	reader := strings.NewReader(sampleCreditCardOFX)

	statements, err := parser.ParseFile(context.Background(), reader)
	require.NoError(t, err)
	require.Len(t, statements, 1)

	stmt := statements[0]
	assert.Equal(t, "4111111111111111", stmt.AccountID)
	require.Len(t, stmt.Entries, 2)

	// The POS prefix is stripped from the payee.
	assert.Equal(t, "BOOKSHOP", stmt.Entries[0].Payee)
	assert.Equal(t, int64(-459900), stmt.Entries[0].Amount.ScaledAmount())

	// Credits keep their positive sign.
	assert.Equal(t, int64(1200000), stmt.Entries[1].Amount.ScaledAmount())
}

func TestExtractPayee(t *testing.T) {
	parser := NewParser()

	tests := []struct {
		name     string
		txName   string
		memo     string
		expected string
	}{
		{
			name:     "plain name passes through",
			txName:   "CORNER GROCER",
			expected: "CORNER GROCER",
		},
		{
			name:     "generic name falls back to memo",
			txName:   "DEBIT",
			memo:     "Corner Grocer #42",
			expected: "Corner Grocer #42",
		},
		{
			name:     "strips purchase prefix",
			txName:   "CHECK CARD METRO ELECTRIC",
			expected: "METRO ELECTRIC",
		},
		{
			name:     "strips leading date",
			txName:   "09/02 METRO ELECTRIC",
			expected: "METRO ELECTRIC",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := makeOFXTransaction(tt.txName, tt.memo)
			assert.Equal(t, tt.expected, parser.extractPayee(tx))
		})
	}
}

func makeOFXTransaction(name, memo string) ofxgo.Transaction {
	return ofxgo.Transaction{
		Name: ofxgo.String(name),
		Memo: ofxgo.String(memo),
	}
}

func TestPreprocessOFX(t *testing.T) {
	parser := NewParser()

	input := "\n\n  <OFX>\n<SEVERITY>Info</SEVERITY>\n<STMTTRN\n"
	got := parser.preprocessOFX(input)

	assert.True(t, strings.HasPrefix(got, "<OFX>"))
	assert.Contains(t, got, "<SEVERITY>INFO</SEVERITY>")
	assert.Contains(t, got, "<STMTTRN>")
}
