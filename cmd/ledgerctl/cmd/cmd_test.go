package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/simpleaccounts/ledger-core/internal/core/domain"
	"github.com/simpleaccounts/ledger-core/internal/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type LedgerctlTestSuite struct {
	suite.Suite
	boltPath string
}

func TestLedgerctlTestSuite(t *testing.T) {
	suite.Run(t, new(LedgerctlTestSuite))
}

func (s *LedgerctlTestSuite) SetupTest() {
	s.boltPath = filepath.Join(s.T().TempDir(), "ledger.db")
	s.T().Setenv("LEDGER_STORE", "bolt")
	s.T().Setenv("BASE_CURRENCY", "AED")

	out, err := s.run("seed", "--user", "admin")
	s.Require().NoError(err)
	s.Equal(fmt.Sprintf("created %d of %d system categories\n", len(domain.SystemCategories), len(domain.SystemCategories)), out)
}

func (s *LedgerctlTestSuite) run(args ...string) (string, error) {
	var out, errOut bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--bolt-path", s.boltPath}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (s *LedgerctlTestSuite) runJournal(args ...string) dto.JournalResponse {
	out, err := s.run(args...)
	s.Require().NoError(err)
	var resp dto.JournalResponse
	s.Require().NoError(json.Unmarshal([]byte(out), &resp), out)
	return resp
}

func (s *LedgerctlTestSuite) TestSeedIsIdempotent() {
	out, err := s.run("seed", "--user", "admin")
	s.Require().NoError(err)
	s.Contains(out, "created 0 of")
}

func (s *LedgerctlTestSuite) TestOpeningBalanceReverseAndVerify() {
	opening := s.runJournal("post", "opening-balance", string(domain.CategoryPettyCash), "500", "--date", "2024-01-01", "--user", "admin")
	s.Positive(opening.JournalID)
	s.Equal(string(domain.PostingOpeningBalance), opening.PostingReferenceType)
	s.True(opening.TotalDebit.Equal(opening.TotalCredit))
	s.Equal("500", opening.TotalDebit.String())

	out, err := s.run("trial-balance", "--json")
	s.Require().NoError(err)
	var report domain.TrialBalance
	s.Require().NoError(json.Unmarshal([]byte(out), &report))
	s.True(report.Balanced())
	s.Equal("500", report.TotalDebit.String())

	id := strconv.FormatInt(opening.JournalID, 10)
	reversal := s.runJournal("reverse", id, "--user", "admin")
	s.True(reversal.ReversalFlag)
	s.Require().NotNil(reversal.ReversedJournalID)
	s.Equal(opening.JournalID, *reversal.ReversedJournalID)

	_, err = s.run("reverse", id, "--user", "admin")
	s.Error(err, "a journal is reversed at most once")

	out, err = s.run("verify")
	s.Require().NoError(err)
	var checks []domain.BalanceVerification
	s.Require().NoError(json.Unmarshal([]byte(out), &checks))
	s.Len(checks, len(domain.SystemCategories))
	for _, c := range checks {
		s.True(c.Consistent(), c.Code)
	}

	got := s.runJournal("journal", id)
	s.Equal(opening.JournalID, got.JournalID)
	s.Len(got.Lines, 2)
}

func (s *LedgerctlTestSuite) TestPostJournalFileAndPageLedger() {
	file := filepath.Join(s.T().TempDir(), "invoice.json")
	doc := `{
		"postingReferenceType": "INVOICE",
		"referenceID": 42,
		"description": "Invoice INV-42",
		"transactionDate": "2024-02-01T00:00:00Z",
		"lines": [
			{"categoryCode": "01-03-001", "amount": "300"},
			{"categoryCode": "04-01-001", "amount": "300"}
		]
	}`
	s.Require().NoError(os.WriteFile(file, []byte(doc), 0o600))

	first := s.runJournal("post", "journal", "--file", file, "--user", "admin")
	second := s.runJournal("post", "journal", "-f", file, "--user", "admin")
	s.Less(first.JournalID, second.JournalID)
	s.Equal("INVOICE", first.PostingReferenceType)

	out, err := s.run("ledger", string(domain.CategoryAccountReceivable), "--limit", "1")
	s.Require().NoError(err)
	var page dto.ListLedgerResponse
	s.Require().NoError(json.Unmarshal([]byte(out), &page))
	s.Require().Len(page.Lines, 1)
	s.Require().NotNil(page.NextToken)

	out, err = s.run("ledger", string(domain.CategoryAccountReceivable), "--limit", "1", "--next-token", *page.NextToken)
	s.Require().NoError(err)
	var next dto.ListLedgerResponse
	s.Require().NoError(json.Unmarshal([]byte(out), &next))
	s.Require().Len(next.Lines, 1)
	s.Nil(next.NextToken)
	s.Equal("600", next.Lines[0].CurrentBalance.String())

	out, err = s.run("trial-balance")
	s.Require().NoError(err)
	s.Contains(out, "TOTAL")
	s.NotContains(out, "does not balance")
}

func (s *LedgerctlTestSuite) TestRateSetAndGet() {
	_, err := s.run("rate", "set", "USD", "AED", "3.6725", "--date", "2024-01-01", "--user", "admin")
	s.Require().NoError(err)

	out, err := s.run("rate", "get", "usd", "aed", "--date", "2024-06-30")
	s.Require().NoError(err)
	s.Contains(out, "3.6725")
}

func TestCommandsRequireUser(t *testing.T) {
	t.Setenv("LEDGER_STORE", "bolt")
	tests := [][]string{
		{"seed"},
		{"post", "opening-balance", "01-01-001", "10"},
		{"reverse", "1"},
	}
	for _, args := range tests {
		t.Run(args[0], func(t *testing.T) {
			root := NewRootCmd()
			root.SetOut(&bytes.Buffer{})
			root.SetErr(&bytes.Buffer{})
			root.SetArgs(append([]string{"--bolt-path", filepath.Join(t.TempDir(), "l.db")}, args...))
			err := root.Execute()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "requires --user")
		})
	}
}

func TestInvalidStoreFlag(t *testing.T) {
	root := NewRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"--store", "mysql", "trial-balance"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --store")
}

func (s *LedgerctlTestSuite) TestCreateOwnerCategoryPostsOpeningBalance() {
	out, err := s.run("category", "create-owner", "--kind", "EMPLOYEE", "--owner-id", "12",
		"--parent", "02-02", "--parent-category", string(domain.CategoryPayrollLiability),
		"--name", "Jane Doe", "--opening-balance", "75", "--user", "admin")
	s.Require().NoError(err)
	var category domain.TransactionCategory
	s.Require().NoError(json.Unmarshal([]byte(out), &category), out)
	s.Equal(domain.CategoryCode("02-02-004"), category.Code)
	s.Require().NotNil(category.ParentTransactionCategoryID)

	out, err = s.run("trial-balance", "--json")
	s.Require().NoError(err)
	var report domain.TrialBalance
	s.Require().NoError(json.Unmarshal([]byte(out), &report))
	s.True(report.Balanced())
	s.Equal("75", report.TotalCredit.String())

	_, err = s.run("verify", string(category.Code), string(domain.CategoryOpeningBalanceOffsetLiabilities))
	s.NoError(err)
}
