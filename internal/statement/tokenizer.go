// Package statement recovers transaction records from a statement's token
// stream and reconciles them into ledger entries.
package statement

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/beancmb/internal/model"
)

const (
	// HeaderMarker opens the transaction table.
	HeaderMarker = "Date"
	// VerificationMarker appears in the footer that follows the last row of a page.
	VerificationMarker = "交易流水验真"

	dateLayout  = "2006-01-02"
	headerWidth = 5
	colCurrency = 1
	colAmount   = 2
	colBalance  = 3
	colChannel  = 4
)

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// currencyLabels maps printed currency labels to commodity codes.
var currencyLabels = map[string]string{
	"人民币": "CNY",
}

var (
	ErrTruncatedRecord = errors.New("truncated record")
	ErrInvalidNumber   = errors.New("invalid number")
	ErrInvalidDate     = errors.New("invalid date")
)

// ParseError reports the token at which parsing failed.
type ParseError struct {
	Index int    // position in the token stream
	Token string // offending token
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("token %d (%s %q): %v", e.Index, e.Field, e.Token, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsDate reports whether tok has the YYYY-MM-DD shape that starts a record.
func IsDate(tok string) bool {
	return datePattern.MatchString(tok)
}

// NormalizeCurrency maps a printed currency label to its commodity code.
func NormalizeCurrency(label string) string {
	if c, ok := currencyLabels[label]; ok {
		return c
	}
	return label
}

// ParseNumber parses a thousands-separated numeral like "1,234.56".
func ParseNumber(tok string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(tok, ",", ""))
}

// ParseTokens scans the token stream of one document and returns its records
// in document order. A stream without the header marker yields no records.
func ParseTokens(tokens []string) ([]model.ParsedRecord, error) {
	i := 0
	for i < len(tokens) && tokens[i] != HeaderMarker {
		i++
	}

	var records []model.ParsedRecord
	for i < len(tokens) {
		if !IsDate(tokens[i]) {
			i++
			continue
		}
		if len(tokens)-i < headerWidth {
			return nil, &ParseError{Index: i, Token: tokens[i], Field: "date", Err: ErrTruncatedRecord}
		}

		rec, err := parseHeader(tokens[i:i+headerWidth], i)
		if err != nil {
			return nil, err
		}
		i += headerWidth

		var words []string
		for i < len(tokens) && !endsMerchant(tokens[i]) {
			words = append(words, tokens[i])
			i++
		}
		rec.Merchant = strings.Join(words, " ")
		records = append(records, rec)
	}
	return records, nil
}

func parseHeader(header []string, offset int) (model.ParsedRecord, error) {
	date, err := time.Parse(dateLayout, header[0])
	if err != nil {
		return model.ParsedRecord{}, &ParseError{Index: offset, Token: header[0], Field: "date", Err: fmt.Errorf("%w: %v", ErrInvalidDate, err)}
	}

	amount, err := ParseNumber(header[colAmount])
	if err != nil {
		return model.ParsedRecord{}, &ParseError{Index: offset + colAmount, Token: header[colAmount], Field: "amount", Err: fmt.Errorf("%w: %v", ErrInvalidNumber, err)}
	}

	balance, err := ParseNumber(header[colBalance])
	if err != nil {
		return model.ParsedRecord{}, &ParseError{Index: offset + colBalance, Token: header[colBalance], Field: "balance", Err: fmt.Errorf("%w: %v", ErrInvalidNumber, err)}
	}

	return model.ParsedRecord{
		Date:     date,
		Currency: NormalizeCurrency(header[colCurrency]),
		Amount:   amount,
		Balance:  balance,
		Channel:  header[colChannel],
	}, nil
}

func endsMerchant(tok string) bool {
	return IsDate(tok) || strings.Contains(tok, VerificationMarker)
}
