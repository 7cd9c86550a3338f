package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

const (
	PaymentTypeClient  = "CLIENT"
	PaymentTypePartner = "PARTNER"
)

// PaymentRecord is an append-only ledger entry. Records are never mutated;
// a mistaken record is deleted and re-created.
type PaymentRecord struct {
	ID           string
	PaymentType  string
	OrderID      string
	SubOrderDate string
	Amount       int64
	Note         string
	CreatedAt    time.Time
}

type PaymentFilter struct {
	PaymentType  string
	OrderID      string
	SubOrderDate string
}

type PaymentLedger interface {
	CreatePayment(ctx context.Context, record PaymentRecord) (PaymentRecord, error)
	DeletePayment(ctx context.Context, id string) error
	ListPayments(ctx context.Context, filter PaymentFilter) ([]PaymentRecord, error)
	// SumPaid derives the paid amount by summing matching record amounts.
	SumPaid(ctx context.Context, filter PaymentFilter) (int64, error)
}

// Postgres ledger.
//
//	create table if not exists payment_records (
//	    id             text primary key,
//	    payment_type   text not null,
//	    order_id       text not null,
//	    sub_order_date text not null default '',
//	    amount         bigint not null,
//	    note           text not null default '',
//	    created_at     timestamptz not null default now()
//	);
//	create index if not exists payment_records_order_idx
//	    on payment_records (payment_type, order_id, sub_order_date);
func (s *PG) CreatePayment(ctx context.Context, record PaymentRecord) (PaymentRecord, error) {
	row := s.db.QueryRow(ctx, `
		insert into payment_records (id, payment_type, order_id, sub_order_date, amount, note)
		values ($1, $2, $3, $4, $5, $6)
		returning id, payment_type, order_id, sub_order_date, amount, note, created_at
	`, record.ID, record.PaymentType, record.OrderID, record.SubOrderDate, record.Amount, record.Note)
	return scanPayment(row)
}

func (s *PG) DeletePayment(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `delete from payment_records where id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: payment %s", ErrNotFound, id)
	}
	return nil
}

func (s *PG) ListPayments(ctx context.Context, filter PaymentFilter) ([]PaymentRecord, error) {
	where, args := paymentWhere(filter)
	rows, err := s.db.Query(ctx, `
		select id, payment_type, order_id, sub_order_date, amount, note, created_at
		from payment_records where `+where+`
		order by created_at desc, id
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []PaymentRecord
	for rows.Next() {
		record, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s *PG) SumPaid(ctx context.Context, filter PaymentFilter) (int64, error) {
	where, args := paymentWhere(filter)
	var total int64
	err := s.db.QueryRow(ctx, `
		select coalesce(sum(amount), 0) from payment_records where `+where,
		args...).Scan(&total)
	return total, err
}

// paymentWhere builds the filter clause. Empty filter fields match
// everything.
func paymentWhere(filter PaymentFilter) (string, []any) {
	where := "true"
	var args []any
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		where += fmt.Sprintf(" and %s = $%d", column, len(args))
	}
	add("payment_type", filter.PaymentType)
	add("order_id", filter.OrderID)
	add("sub_order_date", filter.SubOrderDate)
	return where, args
}

func scanPayment(row interface{ Scan(...any) error }) (PaymentRecord, error) {
	var record PaymentRecord
	err := row.Scan(&record.ID, &record.PaymentType, &record.OrderID,
		&record.SubOrderDate, &record.Amount, &record.Note, &record.CreatedAt)
	return record, err
}

// MemoryLedger is the in-process PaymentLedger used by tests.
type MemoryLedger struct {
	mu      sync.Mutex
	records map[string]PaymentRecord
	seq     int
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{records: make(map[string]PaymentRecord)}
}

func (l *MemoryLedger) CreatePayment(_ context.Context, record PaymentRecord) (PaymentRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if record.ID == "" {
		l.seq++
		record.ID = fmt.Sprintf("payment-%d", l.seq)
	}
	record.CreatedAt = time.Now()
	l.records[record.ID] = record
	return record, nil
}

func (l *MemoryLedger) DeletePayment(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.records[id]; !ok {
		return fmt.Errorf("%w: payment %s", ErrNotFound, id)
	}
	delete(l.records, id)
	return nil
}

func (l *MemoryLedger) ListPayments(_ context.Context, filter PaymentFilter) ([]PaymentRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var records []PaymentRecord
	for _, record := range l.records {
		if paymentMatches(record, filter) {
			records = append(records, record)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

func (l *MemoryLedger) SumPaid(_ context.Context, filter PaymentFilter) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var total int64
	for _, record := range l.records {
		if paymentMatches(record, filter) {
			total += record.Amount
		}
	}
	return total, nil
}

// paymentMatches mirrors paymentWhere: empty filter fields match
// everything.
func paymentMatches(record PaymentRecord, filter PaymentFilter) bool {
	if filter.PaymentType != "" && record.PaymentType != filter.PaymentType {
		return false
	}
	if filter.OrderID != "" && record.OrderID != filter.OrderID {
		return false
	}
	if filter.SubOrderDate != "" && record.SubOrderDate != filter.SubOrderDate {
		return false
	}
	return true
}
