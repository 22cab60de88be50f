package importer

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/beancmb/internal/extractor"
	"github.com/cleared-dev/beancmb/internal/journal"
	"github.com/cleared-dev/beancmb/internal/model"
	"github.com/cleared-dev/beancmb/internal/statement"
)

const (
	checking      = "Assets:Bank:CMB:Checking"
	statementFile = "招商银行交易流水(申请时间2019年04月01日).pdf"
)

func statementPages() [][]string {
	return [][]string{
		{
			"招商银行交易流水", "Transaction", "Statement", "记账日期", "Date", "Currency", "Amount", "Balance",
			"2019-03-29", "人民币", "-2.00", "10,513.92", "快捷支付", "清算资金-借记卡核算专户",
			"2019-03-29", "人民币", "100.00", "10,613.92", "网联收款", "财付通",
			"交易流水验真", "1/2",
		},
		{
			"2019-03-30", "人民币", "-13.50", "10,600.42", "快捷支付", "美团", "外卖",
			"交易流水验真", "2/2",
		},
	}
}

type failingLookup struct{}

func (failingLookup) LastCheckpoint(string) (time.Time, bool, error) {
	return time.Time{}, false, errors.New("ledger unavailable")
}

func newPDF(t *testing.T, lookup journal.CheckpointLookup) *CMBPDF {
	t.Helper()
	p, err := NewCMBPDF(PDFConfig{
		Account:     checking,
		Source:      extractor.Static{statementFile: statementPages()},
		Checkpoints: lookup,
	})
	require.NoError(t, err)
	return p
}

func TestCMBPDF_CanHandle(t *testing.T) {
	p := newPDF(t, nil)
	assert.True(t, p.CanHandle("/downloads/"+statementFile))
	assert.True(t, p.CanHandle("招商银行交易流水.pdf"))
	assert.False(t, p.CanHandle("招商银行交易流水.PDF"))
	assert.False(t, p.CanHandle("statement.pdf"))
	assert.False(t, p.CanHandle("/招商银行交易流水/x.pdf"))
}

func TestCMBPDF_CustomPattern(t *testing.T) {
	p, err := NewCMBPDF(PDFConfig{Account: checking, FilenamePattern: `(?i)^cmb-.*\.pdf$`})
	require.NoError(t, err)
	assert.True(t, p.CanHandle("CMB-2019.PDF"))
	assert.False(t, p.CanHandle(statementFile))

	_, err = NewCMBPDF(PDFConfig{Account: checking, FilenamePattern: `(`})
	assert.Error(t, err)

	_, err = NewCMBPDF(PDFConfig{})
	assert.Error(t, err)
}

func TestCMBPDF_ExtractWithoutCheckpoint(t *testing.T) {
	entries, err := newPDF(t, nil).Extract(statementFile)
	require.NoError(t, err)
	require.Len(t, entries, 5)

	t1 := entries[0].(*model.Transaction)
	assert.Equal(t, date(2019, 3, 29), t1.Date)
	assert.Equal(t, "快捷支付", t1.Payee)
	assert.Equal(t, "清算资金-借记卡核算专户", t1.Narration)
	assert.True(t, t1.Postings[0].Units.Number.Equal(dec("-2")))

	b := entries[2].(*model.Balance)
	assert.Equal(t, date(2019, 3, 30), b.Date)
	assert.True(t, b.Amount.Equal(model.NewAmount(dec("10613.92"), "CNY")))

	t3 := entries[3].(*model.Transaction)
	assert.Equal(t, "美团 外卖", t3.Narration)

	last := entries[4].(*model.Balance)
	assert.Equal(t, date(2019, 3, 31), last.Date)
	assert.True(t, last.Amount.Number.Equal(dec("10600.42")))
}

func TestCMBPDF_ExtractAfterCheckpoint(t *testing.T) {
	lookup := journal.MemoryRepository{checking: date(2019, 3, 30)}

	entries, err := newPDF(t, lookup).Extract(statementFile)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, date(2019, 3, 30), entries[0].EntryDate())
	assert.Equal(t, date(2019, 3, 31), entries[1].EntryDate())
}

func TestCMBPDF_CheckpointForOtherAccountIgnored(t *testing.T) {
	lookup := journal.MemoryRepository{"Assets:Bank:Other": date(2030, 1, 1)}

	entries, err := newPDF(t, lookup).Extract(statementFile)
	require.NoError(t, err)
	assert.Len(t, entries, 5)
}

func TestCMBPDF_ExtractWithLedgerFile(t *testing.T) {
	ledger := writeFile(t, t.TempDir(), "main.beancount",
		"2019-01-01 open Assets:Bank:CMB:Checking CNY\n"+
			"2019-03-30 balance Assets:Bank:CMB:Checking  10613.92 CNY\n")

	entries, err := newPDF(t, journal.NewFileRepository(ledger)).Extract(statementFile)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestCMBPDF_LookupError(t *testing.T) {
	_, err := newPDF(t, failingLookup{}).Extract(statementFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ledger unavailable")
}

func TestCMBPDF_SourceError(t *testing.T) {
	_, err := newPDF(t, nil).Extract("missing.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extracting tokens")
}

func TestCMBPDF_ParseError(t *testing.T) {
	pages := [][]string{{"Date", "2019-03-29", "人民币", "abc", "1.00", "快捷支付"}}
	p, err := NewCMBPDF(PDFConfig{Account: checking, Source: extractor.Static{"x.pdf": pages}})
	require.NoError(t, err)

	_, err = p.Extract("x.pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, statement.ErrInvalidNumber)
}

func TestCMBPDF_NoHeader(t *testing.T) {
	p, err := NewCMBPDF(PDFConfig{Account: checking, Source: extractor.Static{"x.pdf": {{"nothing", "here"}}}})
	require.NoError(t, err)

	entries, err := p.Extract("x.pdf")
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = p.FileDate("x.pdf")
	assert.Error(t, err)
}

func TestCMBPDF_FileDate(t *testing.T) {
	got, err := newPDF(t, nil).FileDate(statementFile)
	require.NoError(t, err)
	assert.Equal(t, date(2019, 3, 30), got)
}

func TestCMBPDF_ArchivePath(t *testing.T) {
	got, err := ArchivePath(newPDF(t, nil), "docs", statementFile)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("docs", "Assets", "Bank", "CMB", "Checking", "2019-03-30."+statementFile), got)
}
