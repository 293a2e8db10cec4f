package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/zarrin-erp/zarrin-erp/internal/platform/db"
	"github.com/zarrin-erp/zarrin-erp/internal/shared"
)

// Repository persists ledger entities in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes operations available inside one posting transaction.
type TxRepository interface {
	GetAccount(ctx context.Context, id int64) (Account, error)
	GetAccountByCode(ctx context.Context, code string) (Account, error)
	GetAccountForUpdate(ctx context.Context, id int64) (Account, error)
	LastAccountCodeInPrefix(ctx context.Context, prefix string) (string, error)
	InsertAccount(ctx context.Context, a Account) (Account, error)
	UpdateAccount(ctx context.Context, a Account) error
	UpdateAccountBalances(ctx context.Context, id int64, debit, credit, current decimal.Decimal) error

	GetSubsidiary(ctx context.Context, id int64) (SubsidiaryAccount, error)
	GetSubsidiaryForUpdate(ctx context.Context, id int64) (SubsidiaryAccount, error)
	CountSubsidiaries(ctx context.Context, accountID int64) (int, error)
	InsertSubsidiary(ctx context.Context, s SubsidiaryAccount) (SubsidiaryAccount, error)
	UpdateSubsidiaryBalances(ctx context.Context, id int64, debit, credit, current decimal.Decimal) error

	NextEntrySequence(ctx context.Context, period string) (int64, error)
	InsertEntry(ctx context.Context, e JournalEntry) (JournalEntry, error)
	InsertLines(ctx context.Context, entryID int64, lines []JournalEntryLine) error
	GetEntryForUpdate(ctx context.Context, id int64) (JournalEntry, error)
	GetEntryLines(ctx context.Context, entryID int64) ([]JournalEntryLine, error)
	MarkPosted(ctx context.Context, id, actor int64, at time.Time) error
	MarkReversed(ctx context.Context, id, reversalID int64, reason string) error
	DeleteDraftEntry(ctx context.Context, id int64) error

	GetPeriodForPosting(ctx context.Context, code string) (AccountingPeriod, error)
	SetPeriodLock(ctx context.Context, code string, locked bool, actor int64, at time.Time) error

	InsertAudit(ctx context.Context, e shared.AuditEntry) error
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes fn within a repeatable-read transaction. Any error rolls
// the whole transaction back.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("ledger: repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const accountColumns = `id, code, name, name_fa, type, normal_side, debit_balance, credit_balance, current_balance, is_active, created_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Code, &a.Name, &a.NameFa, &a.Type, &a.NormalSide,
		&a.DebitBalance, &a.CreditBalance, &a.CurrentBalance, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r *txRepository) GetAccount(ctx context.Context, id int64) (Account, error) {
	a, err := scanAccount(r.tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrAccountNotFound
	}
	return a, err
}

func (r *txRepository) GetAccountByCode(ctx context.Context, code string) (Account, error) {
	a, err := scanAccount(r.tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE code=$1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrAccountNotFound
	}
	return a, err
}

func (r *txRepository) GetAccountForUpdate(ctx context.Context, id int64) (Account, error) {
	a, err := scanAccount(r.tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrAccountNotFound
	}
	return a, err
}

func (r *txRepository) LastAccountCodeInPrefix(ctx context.Context, prefix string) (string, error) {
	var code string
	err := r.tx.QueryRow(ctx,
		`SELECT code FROM accounts WHERE code LIKE $1 || '%' AND code NOT LIKE '%-%' ORDER BY length(code) DESC, code DESC LIMIT 1`,
		prefix).Scan(&code)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return code, err
}

func (r *txRepository) InsertAccount(ctx context.Context, a Account) (Account, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO accounts (code, name, name_fa, type, normal_side, is_active)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id, debit_balance, credit_balance, current_balance, created_at, updated_at`,
		a.Code, a.Name, a.NameFa, a.Type, a.NormalSide, a.IsActive)
	if err := row.Scan(&a.ID, &a.DebitBalance, &a.CreditBalance, &a.CurrentBalance, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return Account{}, ErrDuplicateAccountCode
		}
		return Account{}, err
	}
	return a, nil
}

func (r *txRepository) UpdateAccount(ctx context.Context, a Account) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE accounts SET name=$2, name_fa=$3, is_active=$4, updated_at=NOW() WHERE id=$1`,
		a.ID, a.Name, a.NameFa, a.IsActive)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *txRepository) UpdateAccountBalances(ctx context.Context, id int64, debit, credit, current decimal.Decimal) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE accounts SET debit_balance=$2, credit_balance=$3, current_balance=$4, updated_at=NOW() WHERE id=$1`,
		id, debit, credit, current)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

const subsidiaryColumns = `id, account_id, code, name, name_fa, debit_balance, credit_balance, current_balance, is_active, created_at, updated_at`

func scanSubsidiary(row pgx.Row) (SubsidiaryAccount, error) {
	var s SubsidiaryAccount
	err := row.Scan(&s.ID, &s.AccountID, &s.Code, &s.Name, &s.NameFa,
		&s.DebitBalance, &s.CreditBalance, &s.CurrentBalance, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (r *txRepository) GetSubsidiary(ctx context.Context, id int64) (SubsidiaryAccount, error) {
	s, err := scanSubsidiary(r.tx.QueryRow(ctx, `SELECT `+subsidiaryColumns+` FROM subsidiary_accounts WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return SubsidiaryAccount{}, ErrSubsidiaryNotFound
	}
	return s, err
}

func (r *txRepository) GetSubsidiaryForUpdate(ctx context.Context, id int64) (SubsidiaryAccount, error) {
	s, err := scanSubsidiary(r.tx.QueryRow(ctx, `SELECT `+subsidiaryColumns+` FROM subsidiary_accounts WHERE id=$1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return SubsidiaryAccount{}, ErrSubsidiaryNotFound
	}
	return s, err
}

func (r *txRepository) CountSubsidiaries(ctx context.Context, accountID int64) (int, error) {
	var n int
	err := r.tx.QueryRow(ctx, `SELECT COUNT(*) FROM subsidiary_accounts WHERE account_id=$1`, accountID).Scan(&n)
	return n, err
}

func (r *txRepository) InsertSubsidiary(ctx context.Context, s SubsidiaryAccount) (SubsidiaryAccount, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO subsidiary_accounts (account_id, code, name, name_fa, is_active)
VALUES ($1,$2,$3,$4,$5) RETURNING id, debit_balance, credit_balance, current_balance, created_at, updated_at`,
		s.AccountID, s.Code, s.Name, s.NameFa, s.IsActive)
	if err := row.Scan(&s.ID, &s.DebitBalance, &s.CreditBalance, &s.CurrentBalance, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return SubsidiaryAccount{}, ErrDuplicateAccountCode
		}
		return SubsidiaryAccount{}, err
	}
	return s, nil
}

func (r *txRepository) UpdateSubsidiaryBalances(ctx context.Context, id int64, debit, credit, current decimal.Decimal) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE subsidiary_accounts SET debit_balance=$2, credit_balance=$3, current_balance=$4, updated_at=NOW() WHERE id=$1`,
		id, debit, credit, current)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrSubsidiaryNotFound
	}
	return nil
}

// NextEntrySequence increments the per-period counter used for entry numbers.
// The upsert serializes concurrent numbering on the sequence row.
func (r *txRepository) NextEntrySequence(ctx context.Context, period string) (int64, error) {
	var seq int64
	err := r.tx.QueryRow(ctx, `INSERT INTO entry_sequences (period_code, last_seq) VALUES ($1, 1)
ON CONFLICT (period_code) DO UPDATE SET last_seq = entry_sequences.last_seq + 1
RETURNING last_seq`, period).Scan(&seq)
	return seq, err
}

const entryColumns = `id, number, date, description, description_fa, reference, source_type, source_id, total_debit, total_credit, status, period, fiscal_year, posted_by, posted_at, reversed_entry_id, reversal_reason, metadata, created_at, updated_at`

func scanEntry(row pgx.Row) (JournalEntry, error) {
	var e JournalEntry
	var meta []byte
	err := row.Scan(&e.ID, &e.Number, &e.Date, &e.Description, &e.DescriptionFa, &e.Reference,
		&e.SourceType, &e.SourceID, &e.TotalDebit, &e.TotalCredit, &e.Status, &e.Period, &e.FiscalYear,
		&e.PostedBy, &e.PostedAt, &e.ReversedEntryID, &e.ReversalReason, &meta, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return JournalEntry{}, err
	}
	if len(meta) > 0 {
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(meta, &raw); err == nil {
			e.Metadata = decodeMetadata(raw)
		}
	}
	return e, nil
}

func (r *txRepository) InsertEntry(ctx context.Context, e JournalEntry) (JournalEntry, error) {
	meta, err := json.Marshal(e.Metadata)
	if err != nil {
		return JournalEntry{}, err
	}
	row := r.tx.QueryRow(ctx, `INSERT INTO journal_entries
(number, date, description, description_fa, reference, source_type, source_id, total_debit, total_credit, status, period, fiscal_year, metadata)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13) RETURNING id, created_at, updated_at`,
		e.Number, e.Date, e.Description, e.DescriptionFa, e.Reference, e.SourceType, e.SourceID,
		e.TotalDebit, e.TotalCredit, e.Status, e.Period, e.FiscalYear, meta)
	if err := row.Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return JournalEntry{}, err
	}
	return e, nil
}

func (r *txRepository) InsertLines(ctx context.Context, entryID int64, lines []JournalEntryLine) error {
	for _, line := range lines {
		meta, err := json.Marshal(line.Metadata)
		if err != nil {
			return err
		}
		if _, err := r.tx.Exec(ctx, `INSERT INTO journal_entry_lines
(entry_id, line_number, account_id, subsidiary_account_id, debit, credit, description, metadata)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			entryID, line.LineNumber, line.AccountID, line.SubsidiaryID, line.Debit, line.Credit, line.Description, meta); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) GetEntryForUpdate(ctx context.Context, id int64) (JournalEntry, error) {
	e, err := scanEntry(r.tx.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE id=$1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return JournalEntry{}, ErrEntryNotFound
	}
	return e, err
}

const lineColumns = `id, entry_id, line_number, account_id, subsidiary_account_id, debit, credit, description, metadata, created_at, updated_at`

func scanLines(rows pgx.Rows) ([]JournalEntryLine, error) {
	defer rows.Close()
	var lines []JournalEntryLine
	for rows.Next() {
		var line JournalEntryLine
		var meta []byte
		if err := rows.Scan(&line.ID, &line.EntryID, &line.LineNumber, &line.AccountID, &line.SubsidiaryID,
			&line.Debit, &line.Credit, &line.Description, &meta, &line.CreatedAt, &line.UpdatedAt); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			var raw map[string]json.RawMessage
			if err := json.Unmarshal(meta, &raw); err == nil {
				line.Metadata = decodeMetadata(raw)
			}
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (r *txRepository) GetEntryLines(ctx context.Context, entryID int64) ([]JournalEntryLine, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+lineColumns+` FROM journal_entry_lines WHERE entry_id=$1 ORDER BY line_number ASC`, entryID)
	if err != nil {
		return nil, err
	}
	return scanLines(rows)
}

func (r *txRepository) MarkPosted(ctx context.Context, id, actor int64, at time.Time) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journal_entries SET status=$2, posted_by=$3, posted_at=$4, updated_at=NOW() WHERE id=$1`,
		id, EntryStatusPosted, actor, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (r *txRepository) MarkReversed(ctx context.Context, id, reversalID int64, reason string) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journal_entries SET status=$2, reversed_entry_id=$3, reversal_reason=$4, updated_at=NOW() WHERE id=$1`,
		id, EntryStatusReversed, reversalID, reason)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// DeleteDraftEntry removes an unposted entry; lines cascade.
func (r *txRepository) DeleteDraftEntry(ctx context.Context, id int64) error {
	cmd, err := r.tx.Exec(ctx, `DELETE FROM journal_entries WHERE id=$1 AND status=$2`, id, EntryStatusDraft)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrInvalidStatus
	}
	return nil
}

const periodColumns = `id, code, locked, locked_by, locked_at, created_at, updated_at`

func scanPeriod(row pgx.Row) (AccountingPeriod, error) {
	var p AccountingPeriod
	err := row.Scan(&p.ID, &p.Code, &p.Locked, &p.LockedBy, &p.LockedAt, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// GetPeriodForPosting upserts the period row and locks it for the duration
// of the posting transaction, so the lock check and the status flip cannot
// interleave with a concurrent LockPeriod.
func (r *txRepository) GetPeriodForPosting(ctx context.Context, code string) (AccountingPeriod, error) {
	if _, err := r.tx.Exec(ctx, `INSERT INTO accounting_periods (code) VALUES ($1) ON CONFLICT (code) DO NOTHING`, code); err != nil {
		return AccountingPeriod{}, err
	}
	return scanPeriod(r.tx.QueryRow(ctx, `SELECT `+periodColumns+` FROM accounting_periods WHERE code=$1 FOR UPDATE`, code))
}

func (r *txRepository) SetPeriodLock(ctx context.Context, code string, locked bool, actor int64, at time.Time) error {
	var lockedBy any
	var lockedAt any
	if locked {
		lockedBy = actor
		lockedAt = at
	}
	cmd, err := r.tx.Exec(ctx, `UPDATE accounting_periods SET locked=$2, locked_by=$3, locked_at=$4, updated_at=NOW() WHERE code=$1`,
		code, locked, lockedBy, lockedAt)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrPeriodNotFound
	}
	return nil
}

func (r *txRepository) InsertAudit(ctx context.Context, e shared.AuditEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	changed, err := json.Marshal(e.ChangedFields)
	if err != nil {
		return err
	}
	at := e.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err = r.tx.Exec(ctx, `INSERT INTO audit_trail (table_name, record_id, operation, old_values, new_values, changed_fields, actor_id, description, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		e.TableName, e.RecordID, e.Op, e.OldValues, e.NewValues, changed, e.ActorID, e.Description, at)
	return err
}

// --- pool-level reads -------------------------------------------------------

// ListAccounts returns the chart of accounts ordered by code.
func (r *Repository) ListAccounts(ctx context.Context, activeOnly bool) ([]Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts`
	if activeOnly {
		query += ` WHERE is_active`
	}
	rows, err := r.pool.Query(ctx, query+` ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// ListSubsidiaries returns detail accounts under a main account.
func (r *Repository) ListSubsidiaries(ctx context.Context, accountID int64) ([]SubsidiaryAccount, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+subsidiaryColumns+` FROM subsidiary_accounts WHERE account_id=$1 ORDER BY code`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var subs []SubsidiaryAccount
	for rows.Next() {
		s, err := scanSubsidiary(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

// GetEntryWithLines loads a journal entry and its ordered lines.
func (r *Repository) GetEntryWithLines(ctx context.Context, id int64) (JournalEntry, error) {
	e, err := scanEntry(r.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, ErrEntryNotFound
		}
		return JournalEntry{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+lineColumns+` FROM journal_entry_lines WHERE entry_id=$1 ORDER BY line_number ASC`, id)
	if err != nil {
		return JournalEntry{}, err
	}
	e.Lines, err = scanLines(rows)
	return e, err
}

// EntryFilter narrows ListEntries results.
type EntryFilter struct {
	Status     EntryStatus
	Period     string
	SourceType string
	Limit      int
}

// ListEntries returns entries newest first, optionally filtered.
func (r *Repository) ListEntries(ctx context.Context, f EntryFilter) ([]JournalEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM journal_entries WHERE 1=1`
	var args []any
	if f.Status != "" {
		args = append(args, f.Status)
		query += ` AND status=$` + itoa(len(args))
	}
	if f.Period != "" {
		args = append(args, f.Period)
		query += ` AND period=$` + itoa(len(args))
	}
	if f.SourceType != "" {
		args = append(args, f.SourceType)
		query += ` AND source_type=$` + itoa(len(args))
	}
	query += ` ORDER BY number DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += ` LIMIT $` + itoa(len(args))
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []JournalEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// IsPeriodLocked reports the lock flag; unknown periods are open.
func (r *Repository) IsPeriodLocked(ctx context.Context, code string) (bool, error) {
	var locked bool
	err := r.pool.QueryRow(ctx, `SELECT locked FROM accounting_periods WHERE code=$1`, code).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return locked, err
}

// AccountTotals aggregates posted line sums for one account.
type AccountTotals struct {
	AccountID int64
	Code      string
	Name      string
	NameFa    string
	Type      AccountType
	Debit     decimal.Decimal
	Credit    decimal.Decimal
}

// PostedAccountTotals sums posted journal lines per account over a date
// window. A nil bound leaves that side open.
func (r *Repository) PostedAccountTotals(ctx context.Context, from, to *time.Time) ([]AccountTotals, error) {
	query := `SELECT a.id, a.code, a.name, a.name_fa, a.type,
COALESCE(SUM(l.debit), 0), COALESCE(SUM(l.credit), 0)
FROM accounts a
JOIN journal_entry_lines l ON l.account_id = a.id
JOIN journal_entries e ON e.id = l.entry_id AND e.status IN ('POSTED','REVERSED')`
	var args []any
	if from != nil {
		args = append(args, *from)
		query += ` AND e.date >= $` + itoa(len(args))
	}
	if to != nil {
		args = append(args, *to)
		query += ` AND e.date <= $` + itoa(len(args))
	}
	query += ` WHERE a.is_active GROUP BY a.id, a.code, a.name, a.name_fa, a.type ORDER BY a.code`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var totals []AccountTotals
	for rows.Next() {
		var t AccountTotals
		if err := rows.Scan(&t.AccountID, &t.Code, &t.Name, &t.NameFa, &t.Type, &t.Debit, &t.Credit); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

// AccountBalanceAsOf derives debit/credit totals for one account from
// posted lines dated at or before asOf.
func (r *Repository) AccountBalanceAsOf(ctx context.Context, accountID int64, asOf time.Time) (debit, credit decimal.Decimal, err error) {
	err = r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(l.debit), 0), COALESCE(SUM(l.credit), 0)
FROM journal_entry_lines l
JOIN journal_entries e ON e.id = l.entry_id
WHERE l.account_id = $1 AND e.status IN ('POSTED','REVERSED') AND e.date <= $2`, accountID, asOf).Scan(&debit, &credit)
	return debit, credit, err
}

// StoredAccountBalances returns the running balances kept on the accounts
// table, used by the integrity job to detect drift.
func (r *Repository) StoredAccountBalances(ctx context.Context) (map[int64]decimal.Decimal, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, current_balance FROM accounts WHERE is_active`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64]decimal.Decimal)
	for rows.Next() {
		var id int64
		var bal decimal.Decimal
		if err := rows.Scan(&id, &bal); err != nil {
			return nil, err
		}
		out[id] = bal
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

// decodeMetadata rebuilds typed metadata from raw JSON. Numbers map to the
// decimal variant, RFC3339 strings to the time variant.
func decodeMetadata(raw map[string]json.RawMessage) Metadata {
	if len(raw) == 0 {
		return nil
	}
	out := make(Metadata, len(raw))
	for k, v := range raw {
		out[k] = decodeValue(v)
	}
	return out
}

func decodeValue(raw json.RawMessage) Value {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return Bool(b)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if ts, err := time.Parse(time.RFC3339, s); err == nil {
			return Time(ts)
		}
		return String(s)
	}
	var num decimal.Decimal
	if err := json.Unmarshal(raw, &num); err == nil {
		return Number(num)
	}
	var nested map[string]json.RawMessage
	if err := json.Unmarshal(raw, &nested); err == nil {
		return Map(decodeMetadata(nested))
	}
	return String(string(raw))
}
