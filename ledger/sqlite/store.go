// Package sqlite provides a SQLite-backed ledger store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	_ "modernc.org/sqlite"

	"github.com/airswap/airswap-protocols-sub003/ledger"
	"github.com/airswap/airswap-protocols-sub003/ledger/sqlite/migrations"
)

const migrationTable = "schema_migrations"

// Store persists nonces, grants and the settlement log in SQLite.
type Store struct {
	sqlDB *sql.DB
	// SQLite has a single writer; Update calls queue here instead of
	// failing with SQLITE_BUSY.
	mu sync.Mutex
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open opens a SQLite ledger store and applies embedded migrations.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) NonceStatus(ctx context.Context, signer common.Address, nonce *big.Int) (ledger.NonceStatus, error) {
	return nonceStatus(ctx, s.sqlDB, signer, nonce)
}

func (s *Store) MinimumNonce(ctx context.Context, signer common.Address) (*big.Int, error) {
	return minimumNonce(ctx, s.sqlDB, signer)
}

func (s *Store) Grant(ctx context.Context, approver, delegate common.Address) (ledger.Grant, bool, error) {
	return getGrant(ctx, s.sqlDB, approver, delegate)
}

// Settlements returns the logged settlements of signer, oldest first.
func (s *Store) Settlements(ctx context.Context, signer common.Address) ([]ledger.Settlement, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT order_hash, path, nonce, signer_wallet, signer_token, signer_amount,
		        sender_wallet, sender_token, sender_amount, protocol_fee, fee, rebate, settled_at
		   FROM settlements
		  WHERE signer_wallet = ?
		  ORDER BY id`,
		signer.Hex(),
	)
	if err != nil {
		return nil, fmt.Errorf("query settlements: %w", err)
	}
	defer rows.Close()

	var out []ledger.Settlement
	for rows.Next() {
		var (
			rec                                  ledger.Settlement
			orderHash, signerWallet, signerToken string
			senderWallet, senderToken            string
			nonce, signerAmount, senderAmount    string
			protocolFee, fee, rebate             string
			settledAt                            int64
		)
		if err := rows.Scan(&orderHash, &rec.Path, &nonce, &signerWallet, &signerToken, &signerAmount,
			&senderWallet, &senderToken, &senderAmount, &protocolFee, &fee, &rebate, &settledAt); err != nil {
			return nil, fmt.Errorf("scan settlement: %w", err)
		}
		rec.OrderHash = common.HexToHash(orderHash)
		rec.SignerWallet = common.HexToAddress(signerWallet)
		rec.SignerToken = common.HexToAddress(signerToken)
		rec.SenderWallet = common.HexToAddress(senderWallet)
		rec.SenderToken = common.HexToAddress(senderToken)
		for _, field := range []struct {
			dst **big.Int
			src string
		}{
			{&rec.Nonce, nonce},
			{&rec.SignerAmount, signerAmount},
			{&rec.SenderAmount, senderAmount},
			{&rec.ProtocolFee, protocolFee},
			{&rec.Fee, fee},
			{&rec.Rebate, rebate},
		} {
			v, err := parseBig(field.src)
			if err != nil {
				return nil, err
			}
			*field.dst = v
		}
		rec.SettledAt = fromNanos(settledAt)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate settlements: %w", err)
	}
	return out, nil
}

// Update runs fn inside one SQL transaction.
func (s *Store) Update(ctx context.Context, fn func(tx ledger.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(&storeTx{q: sqlTx}); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type storeTx struct {
	q querier
}

func (tx *storeTx) NonceStatus(ctx context.Context, signer common.Address, nonce *big.Int) (ledger.NonceStatus, error) {
	return nonceStatus(ctx, tx.q, signer, nonce)
}

func (tx *storeTx) MinimumNonce(ctx context.Context, signer common.Address) (*big.Int, error) {
	return minimumNonce(ctx, tx.q, signer)
}

func (tx *storeTx) Grant(ctx context.Context, approver, delegate common.Address) (ledger.Grant, bool, error) {
	return getGrant(ctx, tx.q, approver, delegate)
}

func (tx *storeTx) SetNonceStatus(ctx context.Context, signer common.Address, nonce *big.Int, status ledger.NonceStatus) error {
	_, err := tx.q.ExecContext(ctx,
		`INSERT INTO nonces (signer, nonce, status) VALUES (?, ?, ?)
		 ON CONFLICT (signer, nonce) DO UPDATE SET status = excluded.status`,
		signer.Hex(), bigText(nonce), int(status),
	)
	if err != nil {
		return fmt.Errorf("set nonce status: %w", err)
	}
	return nil
}

func (tx *storeTx) SetMinimumNonce(ctx context.Context, signer common.Address, nonce *big.Int) error {
	_, err := tx.q.ExecContext(ctx,
		`INSERT INTO minimum_nonces (signer, nonce) VALUES (?, ?)
		 ON CONFLICT (signer) DO UPDATE SET nonce = excluded.nonce`,
		signer.Hex(), bigText(nonce),
	)
	if err != nil {
		return fmt.Errorf("set minimum nonce: %w", err)
	}
	return nil
}

func (tx *storeTx) PutGrant(ctx context.Context, grant ledger.Grant) error {
	_, err := tx.q.ExecContext(ctx,
		`INSERT INTO grants (approver, delegate, expiry) VALUES (?, ?, ?)
		 ON CONFLICT (approver, delegate) DO UPDATE SET expiry = excluded.expiry`,
		grant.Approver.Hex(), grant.Delegate.Hex(), grant.Expiry.Unix(),
	)
	if err != nil {
		return fmt.Errorf("put grant: %w", err)
	}
	return nil
}

func (tx *storeTx) DeleteGrant(ctx context.Context, approver, delegate common.Address) error {
	_, err := tx.q.ExecContext(ctx,
		`DELETE FROM grants WHERE approver = ? AND delegate = ?`,
		approver.Hex(), delegate.Hex(),
	)
	if err != nil {
		return fmt.Errorf("delete grant: %w", err)
	}
	return nil
}

func (tx *storeTx) RecordSettlement(ctx context.Context, rec ledger.Settlement) error {
	_, err := tx.q.ExecContext(ctx,
		`INSERT INTO settlements (
		   order_hash, path, nonce,
		   signer_wallet, signer_token, signer_amount,
		   sender_wallet, sender_token, sender_amount,
		   protocol_fee, fee, rebate, settled_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.OrderHash.Hex(), rec.Path, bigText(rec.Nonce),
		rec.SignerWallet.Hex(), rec.SignerToken.Hex(), bigText(rec.SignerAmount),
		rec.SenderWallet.Hex(), rec.SenderToken.Hex(), bigText(rec.SenderAmount),
		bigText(rec.ProtocolFee), bigText(rec.Fee), bigText(rec.Rebate), toNanos(rec.SettledAt),
	)
	if err != nil {
		return fmt.Errorf("record settlement: %w", err)
	}
	return nil
}

func nonceStatus(ctx context.Context, q querier, signer common.Address, nonce *big.Int) (ledger.NonceStatus, error) {
	var status int
	err := q.QueryRowContext(ctx,
		`SELECT status FROM nonces WHERE signer = ? AND nonce = ?`,
		signer.Hex(), bigText(nonce),
	).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.NonceUnused, nil
	}
	if err != nil {
		return ledger.NonceUnused, fmt.Errorf("get nonce status: %w", err)
	}
	return ledger.NonceStatus(status), nil
}

func minimumNonce(ctx context.Context, q querier, signer common.Address) (*big.Int, error) {
	var text string
	err := q.QueryRowContext(ctx,
		`SELECT nonce FROM minimum_nonces WHERE signer = ?`,
		signer.Hex(),
	).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return new(big.Int), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get minimum nonce: %w", err)
	}
	return parseBig(text)
}

func getGrant(ctx context.Context, q querier, approver, delegate common.Address) (ledger.Grant, bool, error) {
	var expiry int64
	err := q.QueryRowContext(ctx,
		`SELECT expiry FROM grants WHERE approver = ? AND delegate = ?`,
		approver.Hex(), delegate.Hex(),
	).Scan(&expiry)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Grant{}, false, nil
	}
	if err != nil {
		return ledger.Grant{}, false, fmt.Errorf("get grant: %w", err)
	}
	return ledger.Grant{Approver: approver, Delegate: delegate, Expiry: time.Unix(expiry, 0).UTC()}, true, nil
}

func bigText(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func parseBig(text string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(text, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q in ledger", text)
	}
	return v, nil
}

func toNanos(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromNanos(v int64) time.Time {
	return time.Unix(0, v).UTC()
}

// applyMigrations executes each embedded migration at most once.
func applyMigrations(sqlDB *sql.DB, migrationFS fs.FS) error {
	entries, err := fs.ReadDir(migrationFS, ".")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	if _, err := sqlDB.Exec(`CREATE TABLE IF NOT EXISTS ` + migrationTable + ` (
    name TEXT PRIMARY KEY,
    applied_at INTEGER NOT NULL
)`); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	for _, file := range files {
		var applied int
		if err := sqlDB.QueryRow(`SELECT COUNT(1) FROM `+migrationTable+` WHERE name = ?`, file).Scan(&applied); err != nil {
			return fmt.Errorf("check migration %s: %w", file, err)
		}
		if applied > 0 {
			continue
		}
		content, err := fs.ReadFile(migrationFS, file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}

		tx, err := sqlDB.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", file, err)
		}
		if _, err := tx.Exec(upSection(string(content))); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", file, err)
		}
		if _, err := tx.Exec(`INSERT INTO `+migrationTable+` (name, applied_at) VALUES (?, ?)`,
			file, time.Now().UTC().UnixMilli()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", file, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", file, err)
		}
	}
	return nil
}

// upSection returns the SQL between the Up and Down markers.
func upSection(content string) string {
	const up, down = "-- +migrate Up", "-- +migrate Down"
	if i := strings.Index(content, up); i >= 0 {
		content = content[i+len(up):]
	}
	if i := strings.Index(content, down); i >= 0 {
		content = content[:i]
	}
	return content
}
