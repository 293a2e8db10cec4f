package instruments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zarrin-erp/zarrin-erp/internal/shared"
)

// RepositoryPort is the persistence surface the instrument services need.
type RepositoryPort interface {
	InsertCheck(ctx context.Context, c *CheckRecord) error
	GetCheck(ctx context.Context, id int64) (CheckRecord, error)
	UpdateCheckStatus(ctx context.Context, id int64, status CheckStatus, entryID *int64, audit shared.AuditEntry) error
	ListChecks(ctx context.Context, f CheckFilter) ([]CheckRecord, error)

	InsertInstallmentPlan(ctx context.Context, acct *InstallmentAccount, payments []InstallmentPayment) error
	GetInstallmentAccount(ctx context.Context, id int64) (InstallmentAccount, error)
	GetInstallmentPayment(ctx context.Context, id int64) (InstallmentPayment, error)
	ApplyInstallmentPayment(ctx context.Context, paymentID int64, paidAt time.Time, entryID int64, acct InstallmentAccount, audit shared.AuditEntry) error
	ListDuePayments(ctx context.Context, asOf time.Time) ([]InstallmentPayment, error)

	InsertReconciliation(ctx context.Context, r *BankReconciliation) error
	InsertReconciliationItem(ctx context.Context, item *ReconciliationItem) error
	GetReconciliation(ctx context.Context, id int64) (BankReconciliation, error)
	CompleteReconciliation(ctx context.Context, id int64, entryID *int64, audit shared.AuditEntry) error
}

// CheckFilter narrows check listings. Zero values mean no constraint.
type CheckFilter struct {
	Kind    CheckKind
	Status  CheckStatus
	DueFrom *time.Time
	DueTo   *time.Time
	Limit   int
}

// Repository is the PostgreSQL implementation of RepositoryPort.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const checkCols = `id, number, bank_name, amount, due_date, kind, status, customer_ref, journal_entry_id, created_at, updated_at`

func scanCheck(row pgx.Row) (CheckRecord, error) {
	var c CheckRecord
	err := row.Scan(&c.ID, &c.Number, &c.BankName, &c.Amount, &c.DueDate, &c.Kind, &c.Status, &c.CustomerRef, &c.JournalEntryID, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *Repository) InsertCheck(ctx context.Context, c *CheckRecord) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO checks (number, bank_name, amount, due_date, kind, status, customer_ref, journal_entry_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`,
		c.Number, c.BankName, c.Amount, c.DueDate, c.Kind, c.Status, c.CustomerRef, c.JournalEntryID,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (r *Repository) GetCheck(ctx context.Context, id int64) (CheckRecord, error) {
	c, err := scanCheck(r.pool.QueryRow(ctx, `SELECT `+checkCols+` FROM checks WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return CheckRecord{}, ErrCheckNotFound
	}
	return c, err
}

func (r *Repository) UpdateCheckStatus(ctx context.Context, id int64, status CheckStatus, entryID *int64, audit shared.AuditEntry) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE checks SET status = $2, journal_entry_id = COALESCE($3, journal_entry_id), updated_at = now()
			WHERE id = $1`, id, status, entryID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrCheckNotFound
		}
		return insertAudit(ctx, tx, audit)
	})
}

func (r *Repository) ListChecks(ctx context.Context, f CheckFilter) ([]CheckRecord, error) {
	q := `SELECT ` + checkCols + ` FROM checks WHERE 1=1`
	args := []any{}
	if f.Kind != "" {
		args = append(args, f.Kind)
		q += fmt.Sprintf(" AND kind = $%d", len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		q += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if f.DueFrom != nil {
		args = append(args, *f.DueFrom)
		q += fmt.Sprintf(" AND due_date >= $%d", len(args))
	}
	if f.DueTo != nil {
		args = append(args, *f.DueTo)
		q += fmt.Sprintf(" AND due_date <= $%d", len(args))
	}
	q += " ORDER BY due_date, id"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CheckRecord
	for rows.Next() {
		c, err := scanCheck(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) InsertInstallmentPlan(ctx context.Context, acct *InstallmentAccount, payments []InstallmentPayment) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO installment_accounts
				(customer_ref, principal, installment_amount, interest_rate, installment_count, frequency,
				 start_date, remaining_balance, remaining_installments, status, journal_entry_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING id, created_at, updated_at`,
			acct.CustomerRef, acct.Principal, acct.InstallmentAmount, acct.InterestRate, acct.Count,
			acct.Frequency, acct.StartDate, acct.RemainingBalance, acct.RemainingInstallments,
			acct.Status, acct.JournalEntryID,
		).Scan(&acct.ID, &acct.CreatedAt, &acct.UpdatedAt)
		if err != nil {
			return err
		}
		for i := range payments {
			p := &payments[i]
			p.AccountID = acct.ID
			err = tx.QueryRow(ctx, `
				INSERT INTO installment_payments (account_id, sequence, due_date, amount_due, interest_part)
				VALUES ($1, $2, $3, $4, $5)
				RETURNING id, created_at, updated_at`,
				p.AccountID, p.Sequence, p.DueDate, p.AmountDue, p.InterestPart,
			).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

const instAcctCols = `id, customer_ref, principal, installment_amount, interest_rate, installment_count, frequency,
	start_date, remaining_balance, remaining_installments, status, journal_entry_id, created_at, updated_at`

func (r *Repository) GetInstallmentAccount(ctx context.Context, id int64) (InstallmentAccount, error) {
	var a InstallmentAccount
	err := r.pool.QueryRow(ctx, `SELECT `+instAcctCols+` FROM installment_accounts WHERE id = $1`, id).Scan(
		&a.ID, &a.CustomerRef, &a.Principal, &a.InstallmentAmount, &a.InterestRate, &a.Count, &a.Frequency,
		&a.StartDate, &a.RemainingBalance, &a.RemainingInstallments, &a.Status, &a.JournalEntryID,
		&a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return InstallmentAccount{}, ErrInstallmentNotFound
	}
	return a, err
}

const paymentCols = `id, account_id, sequence, due_date, amount_due, interest_part, paid_at, journal_entry_id, created_at, updated_at`

func scanPayment(row pgx.Row) (InstallmentPayment, error) {
	var p InstallmentPayment
	err := row.Scan(&p.ID, &p.AccountID, &p.Sequence, &p.DueDate, &p.AmountDue, &p.InterestPart, &p.PaidAt, &p.JournalEntryID, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *Repository) GetInstallmentPayment(ctx context.Context, id int64) (InstallmentPayment, error) {
	p, err := scanPayment(r.pool.QueryRow(ctx, `SELECT `+paymentCols+` FROM installment_payments WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return InstallmentPayment{}, ErrInstallmentNotFound
	}
	return p, err
}

func (r *Repository) ApplyInstallmentPayment(ctx context.Context, paymentID int64, paidAt time.Time, entryID int64, acct InstallmentAccount, audit shared.AuditEntry) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE installment_payments SET paid_at = $2, journal_entry_id = $3, updated_at = now()
			WHERE id = $1 AND paid_at IS NULL`, paymentID, paidAt, entryID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrPaymentAlreadyApplied
		}
		_, err = tx.Exec(ctx, `
			UPDATE installment_accounts
			SET remaining_balance = $2, remaining_installments = $3, status = $4, updated_at = now()
			WHERE id = $1`,
			acct.ID, acct.RemainingBalance, acct.RemainingInstallments, acct.Status)
		if err != nil {
			return err
		}
		return insertAudit(ctx, tx, audit)
	})
}

func (r *Repository) ListDuePayments(ctx context.Context, asOf time.Time) ([]InstallmentPayment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+paymentCols+` FROM installment_payments
		WHERE paid_at IS NULL AND due_date <= $1
		ORDER BY due_date, id`, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []InstallmentPayment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repository) InsertReconciliation(ctx context.Context, rec *BankReconciliation) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO bank_reconciliations (bank_name, statement_date, statement_balance, book_balance, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`,
		rec.BankName, rec.StatementDate, rec.StatementBalance, rec.BookBalance, rec.Status,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
}

func (r *Repository) InsertReconciliationItem(ctx context.Context, item *ReconciliationItem) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO bank_reconciliation_items (reconciliation_id, kind, amount, matched, memo)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		item.ReconciliationID, item.Kind, item.Amount, item.Matched, item.Memo,
	).Scan(&item.ID, &item.CreatedAt)
}

func (r *Repository) GetReconciliation(ctx context.Context, id int64) (BankReconciliation, error) {
	var rec BankReconciliation
	err := r.pool.QueryRow(ctx, `
		SELECT id, bank_name, statement_date, statement_balance, book_balance, status, journal_entry_id, created_at, updated_at
		FROM bank_reconciliations WHERE id = $1`, id).Scan(
		&rec.ID, &rec.BankName, &rec.StatementDate, &rec.StatementBalance, &rec.BookBalance,
		&rec.Status, &rec.JournalEntryID, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return BankReconciliation{}, ErrReconciliationNotFound
	}
	if err != nil {
		return BankReconciliation{}, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, reconciliation_id, kind, amount, matched, memo, created_at
		FROM bank_reconciliation_items WHERE reconciliation_id = $1 ORDER BY id`, id)
	if err != nil {
		return BankReconciliation{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var it ReconciliationItem
		if err := rows.Scan(&it.ID, &it.ReconciliationID, &it.Kind, &it.Amount, &it.Matched, &it.Memo, &it.CreatedAt); err != nil {
			return BankReconciliation{}, err
		}
		rec.Items = append(rec.Items, it)
	}
	return rec, rows.Err()
}

func (r *Repository) CompleteReconciliation(ctx context.Context, id int64, entryID *int64, audit shared.AuditEntry) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE bank_reconciliations SET status = $2, journal_entry_id = $3, updated_at = now()
			WHERE id = $1 AND status = $4`,
			id, ReconciliationStatusCompleted, entryID, ReconciliationStatusOpen)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrReconciliationClosed
		}
		return insertAudit(ctx, tx, audit)
	})
}

func (r *Repository) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func insertAudit(ctx context.Context, tx pgx.Tx, a shared.AuditEntry) error {
	if err := a.Validate(); err != nil {
		return err
	}
	changed, err := json.Marshal(a.ChangedFields)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO audit_trail (table_name, record_id, operation, old_values, new_values, changed_fields, actor_id, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.TableName, a.RecordID, a.Op, a.OldValues, a.NewValues, changed, a.ActorID, a.Description)
	return err
}
