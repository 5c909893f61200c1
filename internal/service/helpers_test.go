package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/delivery/kafka"
	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/metrics"
	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/models"
	pgRepo "github.com/vogiaan1904/ticketbottle-boxoffice/internal/repository/postgres"
	repository "github.com/vogiaan1904/ticketbottle-boxoffice/internal/repository/redis"
	"github.com/vogiaan1904/ticketbottle-boxoffice/pkg/clock"
	"github.com/vogiaan1904/ticketbottle-boxoffice/pkg/logger"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const grant = 5 * time.Minute

// --- Recording producer ---

type recordingProducer struct {
	mu        sync.Mutex
	joined    []kafka.QueueJoinedEvent
	left      []kafka.QueueLeftEvent
	granted   []kafka.AdmissionGrantedEvent
	expired   []kafka.AdmissionExpiredEvent
	completed []kafka.AdmissionCompletedEvent
	purchases []kafka.PurchaseCompletedEvent
}

func (p *recordingProducer) PublishQueueJoined(_ context.Context, e kafka.QueueJoinedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.joined = append(p.joined, e)
	return nil
}
func (p *recordingProducer) PublishQueueLeft(_ context.Context, e kafka.QueueLeftEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.left = append(p.left, e)
	return nil
}
func (p *recordingProducer) PublishAdmissionGranted(_ context.Context, e kafka.AdmissionGrantedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.granted = append(p.granted, e)
	return nil
}
func (p *recordingProducer) PublishAdmissionExpired(_ context.Context, e kafka.AdmissionExpiredEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expired = append(p.expired, e)
	return nil
}
func (p *recordingProducer) PublishAdmissionCompleted(_ context.Context, e kafka.AdmissionCompletedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed = append(p.completed, e)
	return nil
}
func (p *recordingProducer) PublishPurchaseCompleted(_ context.Context, e kafka.PurchaseCompletedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.purchases = append(p.purchases, e)
	return nil
}
func (p *recordingProducer) Close() error { return nil }

func (p *recordingProducer) grantedUsers() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	users := make([]string, 0, len(p.granted))
	for _, g := range p.granted {
		users = append(users, g.UserID)
	}
	return users
}

// --- Mock scheduler ---

type mockScheduler struct {
	scheduleFn func(ctx context.Context, w *models.AdmissionWindow) error
}

func (m *mockScheduler) ScheduleExpiry(ctx context.Context, w *models.AdmissionWindow) error {
	if m.scheduleFn != nil {
		return m.scheduleFn(ctx, w)
	}
	return nil
}

// --- Mock payment capture ---

type mockPaymentCapture struct {
	recordFn func(ctx context.Context, userID string, details models.PaymentDetails) (string, error)
}

func (m *mockPaymentCapture) RecordPaymentMethod(ctx context.Context, userID string, details models.PaymentDetails) (string, error) {
	return m.recordFn(ctx, userID, details)
}

// --- Test environment ---

type testEnv struct {
	clk  *clock.Fake
	mr   *miniredis.Miniredis
	rdb  *redis.Client
	db   *gorm.DB
	prod *recordingProducer

	qRepo      repository.QueueRepository
	admRepo    repository.AdmissionRepository
	ledgerRepo repository.LedgerRepository
	catalog    pgRepo.CatalogRepository
	sales      pgRepo.SaleRepository
	tx         pgRepo.TxManager

	qSvc      QueueService
	admSvc    AdmissionService
	ledgerSvc LedgerService
	pSvc      PurchaseService
	box       BoxOfficeService
}

type envOption func(*envOptions)

type envOptions struct {
	payments PaymentCapture
	sched    ExpiryScheduler
}

func withPayments(p PaymentCapture) envOption {
	return func(o *envOptions) { o.payments = p }
}

func withScheduler(s ExpiryScheduler) envOption {
	return func(o *envOptions) { o.sched = s }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	var o envOptions
	for _, opt := range opts {
		opt(&o)
	}

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, pgRepo.AutoMigrate(db))

	l := logger.NewNop()
	m := metrics.New()

	e := &testEnv{
		clk:  clock.NewFake(time.Date(2025, 5, 1, 18, 0, 0, 0, time.UTC)),
		mr:   mr,
		rdb:  rdb,
		db:   db,
		prod: &recordingProducer{},

		qRepo:      repository.NewRedisQueueRepository(rdb, l),
		admRepo:    repository.NewRedisAdmissionRepository(rdb, l),
		ledgerRepo: repository.NewRedisLedgerRepository(rdb, l),
		catalog:    pgRepo.NewCatalogRepository(db),
		sales:      pgRepo.NewSaleRepository(db),
		tx:         pgRepo.NewTxManager(db),
	}

	payments := o.payments
	if payments == nil {
		payments = NewPaymentCapture(pgRepo.NewPaymentRepository(db), e.tx, e.clk)
	}

	e.qSvc = NewQueueService(e.qRepo, e.clk, m, l)
	e.admSvc = NewAdmissionService(e.admRepo, e.qSvc, e.prod, o.sched, nil, e.clk, AdmissionConfig{GrantDuration: grant}, m, l)
	e.ledgerSvc = NewLedgerService(e.ledgerRepo, e.catalog, e.sales, e.tx, m, l)
	e.pSvc = NewPurchaseService(e.admSvc, e.ledgerSvc, e.catalog, e.sales, payments, e.tx, e.prod, e.clk, PurchaseConfig{MaxPerPurchase: 10}, m, l)
	e.box = NewBoxOfficeService(e.qSvc, e.admSvc, e.ledgerSvc, e.pSvc, e.catalog, e.sales, e.prod, e.clk, l)

	return e
}

// seedEvent creates event "concert" with categories "vip" and "floor", and
// event "matinee" with category "balcony".
func (e *testEnv) seedEvent(t *testing.T, vipSeats, floorSeats int) {
	t.Helper()
	ctx := context.Background()

	_, err := e.box.CreateEvent(ctx, CreateEventInput{
		ID:        "concert",
		Name:      "Night Concert",
		VenueName: "Arena",
		StartsAt:  e.clk.Now().Add(48 * time.Hour),
		Categories: []CreateCategoryInput{
			{ID: "vip", Name: "VIP", Price: 25000, Capacity: vipSeats},
			{ID: "floor", Name: "Floor", Price: 9000, Capacity: floorSeats},
		},
	})
	require.NoError(t, err)

	_, err = e.box.CreateEvent(ctx, CreateEventInput{
		ID:   "matinee",
		Name: "Matinee",
		Categories: []CreateCategoryInput{
			{ID: "balcony", Name: "Balcony", Price: 5000, Capacity: 5},
		},
	})
	require.NoError(t, err)
}

func (e *testEnv) join(t *testing.T, eID string, users ...string) {
	t.Helper()
	for _, u := range users {
		_, err := e.box.JoinQueue(context.Background(), eID, u)
		require.NoError(t, err)
	}
}

func (e *testEnv) status(t *testing.T, eID, uID string) models.AdmissionStatus {
	t.Helper()
	st, err := e.box.GetStatus(context.Background(), eID, uID)
	require.NoError(t, err)
	return st
}

func (e *testEnv) issuedCount(t *testing.T, catID string) int64 {
	t.Helper()
	n, err := e.sales.CountIssued(context.Background(), catID)
	require.NoError(t, err)
	return n
}

func payment() models.PaymentDetails {
	return models.PaymentDetails{
		CardHolderName: gofakeit.Name(),
		CardNumber:     gofakeit.CreditCardNumber(nil),
		CVV:            "123",
		ExpiryMonth:    gofakeit.Number(1, 12),
		ExpiryYear:     2030,
		BillingAddress: gofakeit.Street(),
	}
}

func purchaseInput(eID, uID, catID string, qty int) PurchaseInput {
	return PurchaseInput{
		EventID:    eID,
		UserID:     uID,
		CategoryID: catID,
		Quantity:   qty,
		Payment:    payment(),
	}
}
