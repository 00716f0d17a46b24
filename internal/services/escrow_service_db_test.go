package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/giftmoments/backend/internal/config"
	"github.com/giftmoments/backend/internal/db"
	"github.com/giftmoments/backend/internal/events"
	"github.com/giftmoments/backend/internal/models"
	"github.com/giftmoments/backend/internal/proofcheck"
	"github.com/giftmoments/backend/internal/repositories"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// These tests exercise the full money paths against a real database. Set
// TEST_POSTGRES_DSN to run them; they are skipped otherwise.

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, events.Event) error { return nil }

type settlementEnv struct {
	pool     *pgxpool.Pool
	balances *repositories.BalanceRepo
	escrows  *EscrowService
	disputes *DisputeService
	cfg      *config.Config
}

func newSettlementEnv(t *testing.T) *settlementEnv {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	log := zap.NewNop()

	pool, err := db.NewPostgresPool(ctx, dsn, log)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := db.RunMigrations(ctx, pool, "../../migrations", log); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := &config.Config{
		InflationBufferPercent:    dec("0.05"),
		DefaultCommissionRate:     dec("0.10"),
		DefaultGiverShare:         dec("0.70"),
		PlatformAccountID:         uuid.MustParse("00000000-0000-0000-0000-000000000001"),
		DefaultProofDeadlineHours: 72,
		AutoReleaseDelay:          72 * time.Hour,
		DisputeResponseDeadline:   48 * time.Hour,
		DisputeReviewDeadline:     120 * time.Hour,
		RateMaxAge:                time.Hour,
		ProofFetchTimeoutMS:       5000,
		ProofFetchMaxRetries:      2,
	}

	escrowRepo := repositories.NewEscrowRepo(pool)
	giftRepo := repositories.NewGiftRepo(pool)
	balanceRepo := repositories.NewBalanceRepo(pool)
	commissionRepo := repositories.NewCommissionRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)
	rateRepo := repositories.NewRateRepo(pool)
	disputeRepo := repositories.NewDisputeRepo(pool)

	if err := rateRepo.Upsert(ctx, "USD", "TRY", dec("40")); err != nil {
		t.Fatalf("seed rate: %v", err)
	}

	commission := NewCommissionService(commissionRepo, rateRepo, cfg, log)
	checker := proofcheck.NewChecker(cfg.ProofFetchTimeoutMS, cfg.ProofFetchMaxRetries, log)
	escrows := NewEscrowService(pool, escrowRepo, giftRepo, balanceRepo, commissionRepo, auditRepo,
		commission, checker, nopPublisher{}, cfg, log)
	disputes := NewDisputeService(pool, disputeRepo, escrowRepo, escrows, nopPublisher{}, cfg, log)

	return &settlementEnv{
		pool:     pool,
		balances: balanceRepo,
		escrows:  escrows,
		disputes: disputes,
		cfg:      cfg,
	}
}

func (e *settlementEnv) newUser(t *testing.T) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	if err := e.pool.QueryRow(context.Background(), `INSERT INTO users DEFAULT VALUES RETURNING id`).Scan(&id); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return id
}

func (e *settlementEnv) newMoment(t *testing.T, hostID uuid.UUID) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	if err := e.pool.QueryRow(context.Background(),
		`INSERT INTO moments (host_user_id) VALUES ($1) RETURNING id`, hostID).Scan(&id); err != nil {
		t.Fatalf("create moment: %v", err)
	}
	return id
}

func (e *settlementEnv) fund(t *testing.T, userID uuid.UUID, amount string) {
	t.Helper()
	if err := e.balances.Credit(context.Background(), userID, "USD", dec(amount)); err != nil {
		t.Fatalf("fund user: %v", err)
	}
}

func (e *settlementEnv) balance(t *testing.T, userID uuid.UUID) decimal.Decimal {
	t.Helper()
	b, err := e.balances.Get(context.Background(), userID, "USD")
	if err != nil {
		t.Fatalf("read balance: %v", err)
	}
	return b.Amount
}

func (e *settlementEnv) open(t *testing.T, in OpenEscrowInput) *OpenEscrowResult {
	t.Helper()
	result, err := e.escrows.OpenEscrow(context.Background(), in)
	if err != nil {
		t.Fatalf("open escrow: %v", err)
	}
	return result
}

func proofServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>thank you note</title></head><body>done</body></html>`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestVerifyAndReleaseCreditsRecipientOnce(t *testing.T) {
	env := newSettlementEnv(t)
	ctx := context.Background()

	giver := env.newUser(t)
	receiver := env.newUser(t)
	admin := env.newUser(t)
	moment := env.newMoment(t, receiver)
	env.fund(t, giver, "500")

	result := env.open(t, OpenEscrowInput{
		GiverID:       giver,
		ReceiverID:    receiver,
		MomentID:      moment,
		Category:      "birthday",
		Amount:        dec("200"),
		Currency:      "USD",
		RequiresProof: true,
	})
	if result.Escrow == nil {
		t.Fatal("expected an escrow above the threshold")
	}
	if !env.balance(t, giver).Equal(dec("288.80")) {
		t.Errorf("giver balance after open = %s, want 288.80", env.balance(t, giver))
	}

	srv := proofServer(t)
	if _, err := env.escrows.SubmitProof(ctx, result.Escrow.ID, receiver, srv.URL); err != nil {
		t.Fatalf("submit proof: %v", err)
	}

	first, err := env.escrows.VerifyProofAndRelease(ctx, result.Escrow.ID, admin)
	if err != nil {
		t.Fatalf("verify and release: %v", err)
	}
	if first.Status != models.EscrowStatusReleased {
		t.Fatalf("escrow status = %s, want released", first.Status)
	}
	// Second call must be a no-op, not a second credit.
	if _, err := env.escrows.VerifyProofAndRelease(ctx, result.Escrow.ID, admin); err != nil {
		t.Fatalf("repeat verify and release: %v", err)
	}
	if !env.balance(t, receiver).Equal(dec("195.20")) {
		t.Errorf("receiver balance = %s, want a single 195.20 credit", env.balance(t, receiver))
	}
}

func TestDirectSettlementReplaysOnSameKey(t *testing.T) {
	env := newSettlementEnv(t)

	giver := env.newUser(t)
	receiver := env.newUser(t)
	moment := env.newMoment(t, receiver)
	env.fund(t, giver, "100")

	key := uuid.New().String()
	in := OpenEscrowInput{
		GiverID:        giver,
		ReceiverID:     receiver,
		MomentID:       moment,
		Category:       "coffee",
		Amount:         dec("30"),
		Currency:       "USD",
		RequiresProof:  true,
		IdempotencyKey: &key,
	}

	first := env.open(t, in)
	if first.Escrow != nil {
		t.Fatal("30 USD is below the escrow threshold, expected direct settlement")
	}
	if first.Gift.Status != models.GiftStatusCompleted {
		t.Errorf("gift status = %s, want completed", first.Gift.Status)
	}

	second := env.open(t, in)
	if !second.Replayed {
		t.Fatal("second open with the same key must replay, not settle again")
	}
	if second.Escrow != nil {
		t.Error("replayed direct settlement must not grow an escrow")
	}
	if second.Gift.ID != first.Gift.ID {
		t.Errorf("replay returned gift %s, want %s", second.Gift.ID, first.Gift.ID)
	}
	if !env.balance(t, giver).Equal(dec("67.90")) {
		t.Errorf("giver balance = %s, want a single 32.10 debit", env.balance(t, giver))
	}
	if !env.balance(t, receiver).Equal(dec("29.10")) {
		t.Errorf("receiver balance = %s, want a single 29.10 credit", env.balance(t, receiver))
	}
}

func TestSecondDisputeOnSameEscrowRejected(t *testing.T) {
	env := newSettlementEnv(t)
	ctx := context.Background()

	giver := env.newUser(t)
	receiver := env.newUser(t)
	moment := env.newMoment(t, receiver)
	env.fund(t, giver, "500")

	result := env.open(t, OpenEscrowInput{
		GiverID:       giver,
		ReceiverID:    receiver,
		MomentID:      moment,
		Category:      "birthday",
		Amount:        dec("200"),
		Currency:      "USD",
		RequiresProof: true,
	})

	in := OpenDisputeInput{
		EscrowID:    result.Escrow.ID,
		OpenerID:    giver,
		Reason:      models.DisputeReasonNotCompleted,
		Description: "nothing arrived",
	}
	dispute, err := env.disputes.OpenDispute(ctx, in)
	if err != nil {
		t.Fatalf("open dispute: %v", err)
	}

	// The escrow is already disputed, so the status gate fires first.
	if _, err := env.disputes.OpenDispute(ctx, in); !errors.Is(err, ErrEscrowNotPending) {
		t.Errorf("second dispute: got %v, want ErrEscrowNotPending", err)
	}

	// Only the counterparty responds; the opener does not answer themselves.
	if _, err := env.disputes.RespondToDispute(ctx, dispute.ID, giver, "but I did", nil); !errors.Is(err, ErrNotCounterparty) {
		t.Errorf("opener response: got %v, want ErrNotCounterparty", err)
	}
}

func TestExpiredDisputeRefundsGiver(t *testing.T) {
	env := newSettlementEnv(t)
	ctx := context.Background()

	giver := env.newUser(t)
	receiver := env.newUser(t)
	admin := env.newUser(t)
	moment := env.newMoment(t, receiver)
	env.fund(t, giver, "500")

	result := env.open(t, OpenEscrowInput{
		GiverID:       giver,
		ReceiverID:    receiver,
		MomentID:      moment,
		Category:      "birthday",
		Amount:        dec("200"),
		Currency:      "USD",
		RequiresProof: true,
	})

	dispute, err := env.disputes.OpenDispute(ctx, OpenDisputeInput{
		EscrowID:    result.Escrow.ID,
		OpenerID:    giver,
		Reason:      models.DisputeReasonNotCompleted,
		Description: "no sign of the gift",
	})
	if err != nil {
		t.Fatalf("open dispute: %v", err)
	}

	resolved, err := env.disputes.ResolveDispute(ctx, ResolveDisputeInput{
		DisputeID:  dispute.ID,
		AdminID:    admin,
		Resolution: models.ResolutionExpire,
	})
	if err != nil {
		t.Fatalf("resolve dispute: %v", err)
	}
	if resolved.Status != models.DisputeStatusExpired {
		t.Errorf("dispute status = %s, want expired", resolved.Status)
	}

	escrow, err := env.escrows.GetEscrow(ctx, result.Escrow.ID, giver, false)
	if err != nil {
		t.Fatalf("load escrow: %v", err)
	}
	if escrow.Status != models.EscrowStatusRefunded {
		t.Errorf("escrow status after expiry = %s, want refunded", escrow.Status)
	}
	gift, err := env.escrows.GetGift(ctx, result.Gift.ID)
	if err != nil {
		t.Fatalf("load gift: %v", err)
	}
	if gift.Status != models.GiftStatusRefunded {
		t.Errorf("gift status after expiry = %s, want refunded", gift.Status)
	}
	// 500 - 211.20 at open, + 195.20 escrowed net back.
	if !env.balance(t, giver).Equal(dec("484.00")) {
		t.Errorf("giver balance after expiry = %s, want 484.00", env.balance(t, giver))
	}
	if !env.balance(t, receiver).IsZero() {
		t.Errorf("receiver balance after expiry = %s, want 0", env.balance(t, receiver))
	}
}

func TestTimerEscrowReleasesAtExpiry(t *testing.T) {
	env := newSettlementEnv(t)
	ctx := context.Background()

	giver := env.newUser(t)
	receiver := env.newUser(t)
	moment := env.newMoment(t, receiver)
	env.fund(t, giver, "500")

	result := env.open(t, OpenEscrowInput{
		GiverID:       giver,
		ReceiverID:    receiver,
		MomentID:      moment,
		Category:      "birthday",
		Amount:        dec("200"),
		Currency:      "USD",
		RequiresProof: false,
	})
	if result.Escrow.ReleaseCondition != models.ReleaseConditionTimerExpiry {
		t.Fatalf("release condition = %s, want timer_expiry", result.Escrow.ReleaseCondition)
	}

	// Neither proof nor a giver reclaim applies to a timer escrow.
	srv := proofServer(t)
	if _, err := env.escrows.SubmitProof(ctx, result.Escrow.ID, receiver, srv.URL); !errors.Is(err, ErrReleasesOnTimer) {
		t.Errorf("submit proof on timer escrow: got %v, want ErrReleasesOnTimer", err)
	}
	if _, err := env.escrows.RefundEscrow(ctx, result.Escrow.ID, giver, false); !errors.Is(err, ErrReleasesOnTimer) {
		t.Errorf("giver refund on timer escrow: got %v, want ErrReleasesOnTimer", err)
	}

	released, err := env.escrows.AutoRelease(ctx, result.Escrow.ID)
	if err != nil {
		t.Fatalf("auto release before expiry: %v", err)
	}
	if released {
		t.Fatal("timer escrow released before its deadline")
	}

	if _, err := env.pool.Exec(ctx,
		`UPDATE escrow_transactions SET expires_at = now() - interval '1 minute' WHERE id = $1`,
		result.Escrow.ID); err != nil {
		t.Fatalf("age escrow: %v", err)
	}

	released, err = env.escrows.AutoRelease(ctx, result.Escrow.ID)
	if err != nil {
		t.Fatalf("auto release after expiry: %v", err)
	}
	if !released {
		t.Fatal("timer escrow did not release after its deadline")
	}
	if !env.balance(t, receiver).Equal(dec("195.20")) {
		t.Errorf("receiver balance = %s, want 195.20", env.balance(t, receiver))
	}
	gift, err := env.escrows.GetGift(ctx, result.Gift.ID)
	if err != nil {
		t.Fatalf("load gift: %v", err)
	}
	if gift.Status != models.GiftStatusCompleted {
		t.Errorf("gift status = %s, want completed", gift.Status)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "gifts_idempotency_key_key"}
	if !isUniqueViolation(fmt.Errorf("create gift: %w", dup)) {
		t.Error("wrapped 23505 not recognized as a unique violation")
	}
	if isUniqueViolation(&pgconn.PgError{Code: "23503"}) {
		t.Error("foreign key violation misread as a unique violation")
	}
	if isUniqueViolation(errors.New("create gift: connection reset")) {
		t.Error("plain error misread as a unique violation")
	}
}
