package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"evmarket/internal/apperr"
	"evmarket/internal/models"
)

type fakeStore struct {
	nextID       int64
	rows         []models.SessionWithInvoice
	providerRows []models.SessionWithInvoice
	createErr    error
	listErr      error
}

func (f *fakeStore) CreateWithInvoice(_ context.Context, session *models.Session, amount decimal.Decimal) (*models.Session, *models.Invoice, error) {
	if f.createErr != nil {
		return nil, nil, f.createErr
	}
	f.nextID++
	s := *session
	s.ID = f.nextID
	s.CreatedAt = time.Now().UTC()
	f.rows = append(f.rows, models.SessionWithInvoice{Session: s, InvoiceAmount: amount})
	invoice := &models.Invoice{ID: f.nextID, SessionID: s.ID, Amount: amount, CreatedAt: s.CreatedAt}
	return &s, invoice, nil
}

func (f *fakeStore) DeleteWithInvoice(_ context.Context, sessionID, userID int64) error {
	for i, row := range f.rows {
		if row.ID == sessionID && row.UserID == userID {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return apperr.ErrNotFound
}

func (f *fakeStore) ListByUser(_ context.Context, userID int64) ([]models.SessionWithInvoice, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.SessionWithInvoice
	for _, row := range f.rows {
		if row.UserID == userID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeStore) ListByProvider(_ context.Context, _ int64) ([]models.SessionWithInvoice, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.providerRows, nil
}

type fakeCatalog struct {
	vehicles  map[int64]*models.Vehicle
	stations  map[int64]*models.Station
	providers map[int64]int64
}

func (f *fakeCatalog) GetVehicle(_ context.Context, vehicleID int64) (*models.Vehicle, error) {
	v, ok := f.vehicles[vehicleID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return v, nil
}

func (f *fakeCatalog) GetStation(_ context.Context, stationID int64) (*models.Station, error) {
	s, ok := f.stations[stationID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return s, nil
}

func (f *fakeCatalog) ProviderIDForUser(_ context.Context, userID int64) (int64, error) {
	id, ok := f.providers[userID]
	if !ok {
		return 0, apperr.ErrNotFound
	}
	return id, nil
}

type fakeHistory struct {
	data          map[int64][]models.SessionWithInvoice
	saves         int
	invalidations int
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{data: make(map[int64][]models.SessionWithInvoice)}
}

func (f *fakeHistory) Get(_ context.Context, userID int64) ([]models.SessionWithInvoice, error) {
	sessions, ok := f.data[userID]
	if !ok {
		return nil, redis.Nil
	}
	return sessions, nil
}

func (f *fakeHistory) Save(_ context.Context, userID int64, sessions []models.SessionWithInvoice) error {
	f.saves++
	f.data[userID] = sessions
	return nil
}

func (f *fakeHistory) Invalidate(_ context.Context, userID int64) error {
	f.invalidations++
	delete(f.data, userID)
	return nil
}

func testCatalog() *fakeCatalog {
	return &fakeCatalog{
		vehicles: map[int64]*models.Vehicle{
			1: {ID: 1, OwnerUserID: 7},
		},
		stations: map[int64]*models.Station{
			3: {ID: 3, ProviderID: 5, RatePerMinute: decimal.RequireFromString("2.50")},
		},
		providers: map[int64]int64{42: 5},
	}
}

func newTestSessionsService(store *fakeStore, catalog *fakeCatalog, history HistoryCache) *SessionsService {
	return NewSessionsService(store, catalog, history, zap.NewNop())
}

func TestCreateSessionBillsAndPersists(t *testing.T) {
	store := &fakeStore{}
	svc := newTestSessionsService(store, testCatalog(), nil)

	result, err := svc.CreateSession(context.Background(), CreateSessionInput{
		UserID:    7,
		VehicleID: 1,
		StationID: 3,
		StartTime: "2024-01-15T14:30:00Z",
		EndTime:   "2024-01-15T15:45:00Z",
	})
	if err != nil {
		t.Fatalf("CreateSession returned error: %v", err)
	}
	if result.DurationMinutes != 75 {
		t.Fatalf("DurationMinutes = %d, want 75", result.DurationMinutes)
	}
	if got := result.Invoice.Amount.StringFixed(2); got != "187.50" {
		t.Fatalf("invoice amount = %s, want 187.50", got)
	}
	if result.Invoice.SessionID != result.Session.ID {
		t.Fatalf("invoice session id = %d, session id = %d", result.Invoice.SessionID, result.Session.ID)
	}
	if len(store.rows) != 1 {
		t.Fatalf("stored sessions = %d, want 1", len(store.rows))
	}
	if store.rows[0].StartTime.Location() != time.UTC {
		t.Fatal("stored start time is not UTC")
	}
}

func TestCreateSessionOffsetIndependence(t *testing.T) {
	store := &fakeStore{}
	svc := newTestSessionsService(store, testCatalog(), nil)

	withOffset, err := svc.CreateSession(context.Background(), CreateSessionInput{
		UserID: 7, VehicleID: 1, StationID: 3,
		StartTime: "2024-01-01T14:30:00+03:00",
		EndTime:   "2024-01-01T15:45:00+03:00",
	})
	if err != nil {
		t.Fatal(err)
	}
	naive, err := svc.CreateSession(context.Background(), CreateSessionInput{
		UserID: 7, VehicleID: 1, StationID: 3,
		StartTime: "2024-01-01T11:30:00",
		EndTime:   "2024-01-01T12:45:00",
	})
	if err != nil {
		t.Fatal(err)
	}

	if !withOffset.Session.StartTime.Equal(naive.Session.StartTime) {
		t.Fatalf("stored instants differ: %v vs %v", withOffset.Session.StartTime, naive.Session.StartTime)
	}
	if !withOffset.Invoice.Amount.Equal(naive.Invoice.Amount) {
		t.Fatalf("billed amounts differ: %s vs %s", withOffset.Invoice.Amount, naive.Invoice.Amount)
	}
}

func TestCreateSessionOneSecondBillsFractionally(t *testing.T) {
	store := &fakeStore{}
	svc := newTestSessionsService(store, testCatalog(), nil)

	result, err := svc.CreateSession(context.Background(), CreateSessionInput{
		UserID: 7, VehicleID: 1, StationID: 3,
		StartTime: "2024-01-15T14:30:00Z",
		EndTime:   "2024-01-15T14:30:01Z",
	})
	if err != nil {
		t.Fatalf("one-second session rejected: %v", err)
	}
	if result.DurationMinutes != 0 {
		t.Fatalf("DurationMinutes = %d, want 0", result.DurationMinutes)
	}
	// 1/60 minute at 2.50/min rounds to 0.04, not down to zero.
	if got := result.Invoice.Amount.StringFixed(2); got != "0.04" {
		t.Fatalf("invoice amount = %s, want 0.04", got)
	}
}

func TestCreateSessionZeroRateAccepted(t *testing.T) {
	catalog := testCatalog()
	catalog.stations[3].RatePerMinute = decimal.Zero
	svc := newTestSessionsService(&fakeStore{}, catalog, nil)

	result, err := svc.CreateSession(context.Background(), CreateSessionInput{
		UserID: 7, VehicleID: 1, StationID: 3,
		StartTime: "2024-01-15T14:30:00Z",
		EndTime:   "2024-01-15T15:30:00Z",
	})
	if err != nil {
		t.Fatalf("zero rate rejected: %v", err)
	}
	if !result.Invoice.Amount.IsZero() {
		t.Fatalf("invoice amount = %s, want 0", result.Invoice.Amount)
	}
}

func TestCreateSessionValidation(t *testing.T) {
	cases := []struct {
		name     string
		input    CreateSessionInput
		sentinel error
		message  string
	}{
		{
			name:     "vehicle missing",
			input:    CreateSessionInput{UserID: 7, VehicleID: 99, StationID: 3, StartTime: "2024-01-15T14:30:00Z", EndTime: "2024-01-15T15:00:00Z"},
			sentinel: apperr.ErrNotFound,
			message:  "vehicle not found",
		},
		{
			name:     "vehicle owned by someone else",
			input:    CreateSessionInput{UserID: 8, VehicleID: 1, StationID: 3, StartTime: "2024-01-15T14:30:00Z", EndTime: "2024-01-15T15:00:00Z"},
			sentinel: apperr.ErrNotFound,
			message:  "vehicle not found",
		},
		{
			name:     "station missing",
			input:    CreateSessionInput{UserID: 7, VehicleID: 1, StationID: 99, StartTime: "2024-01-15T14:30:00Z", EndTime: "2024-01-15T15:00:00Z"},
			sentinel: apperr.ErrNotFound,
			message:  "charging station not found",
		},
		{
			name:     "end equals start",
			input:    CreateSessionInput{UserID: 7, VehicleID: 1, StationID: 3, StartTime: "2024-01-15T14:30:00Z", EndTime: "2024-01-15T14:30:00Z"},
			sentinel: apperr.ErrInvalidArgument,
			message:  "end time must be after start time",
		},
		{
			name:     "end before start",
			input:    CreateSessionInput{UserID: 7, VehicleID: 1, StationID: 3, StartTime: "2024-01-15T15:30:00Z", EndTime: "2024-01-15T14:30:00Z"},
			sentinel: apperr.ErrInvalidArgument,
			message:  "end time must be after start time",
		},
		{
			name:     "unparseable start",
			input:    CreateSessionInput{UserID: 7, VehicleID: 1, StationID: 3, StartTime: "yesterday", EndTime: "2024-01-15T14:30:00Z"},
			sentinel: apperr.ErrInvalidArgument,
			message:  "invalid start time",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeStore{}
			svc := newTestSessionsService(store, testCatalog(), nil)

			_, err := svc.CreateSession(context.Background(), tc.input)
			if !errors.Is(err, tc.sentinel) {
				t.Fatalf("error = %v, want %v", err, tc.sentinel)
			}
			if msg, ok := apperr.UserMessage(err); !ok || msg != tc.message {
				t.Fatalf("message = %q, want %q", msg, tc.message)
			}
			if len(store.rows) != 0 {
				t.Fatal("rejected session was persisted")
			}
		})
	}
}

func TestCreateSessionStorageFailure(t *testing.T) {
	store := &fakeStore{createErr: errors.New("connection reset")}
	svc := newTestSessionsService(store, testCatalog(), nil)

	_, err := svc.CreateSession(context.Background(), CreateSessionInput{
		UserID: 7, VehicleID: 1, StationID: 3,
		StartTime: "2024-01-15T14:30:00Z",
		EndTime:   "2024-01-15T15:00:00Z",
	})
	if !errors.Is(err, apperr.ErrUnavailable) {
		t.Fatalf("error = %v, want ErrUnavailable", err)
	}
}

func TestDeleteSessionRoundTrip(t *testing.T) {
	store := &fakeStore{}
	history := newFakeHistory()
	svc := newTestSessionsService(store, testCatalog(), history)

	result, err := svc.CreateSession(context.Background(), CreateSessionInput{
		UserID: 7, VehicleID: 1, StationID: 3,
		StartTime: "2024-01-15T14:30:00Z",
		EndTime:   "2024-01-15T15:45:00Z",
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.DeleteSession(context.Background(), result.Session.ID, 7); err != nil {
		t.Fatalf("DeleteSession returned error: %v", err)
	}
	if len(store.rows) != 0 {
		t.Fatalf("ledger not empty after round trip: %d rows", len(store.rows))
	}
	if history.invalidations != 2 {
		t.Fatalf("history invalidations = %d, want 2 (create + delete)", history.invalidations)
	}
}

func TestDeleteSessionNotFound(t *testing.T) {
	store := &fakeStore{}
	svc := newTestSessionsService(store, testCatalog(), nil)

	err := svc.DeleteSession(context.Background(), 12345, 7)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestDeleteSessionWrongOwnerReportsNotFound(t *testing.T) {
	store := &fakeStore{}
	svc := newTestSessionsService(store, testCatalog(), nil)

	result, err := svc.CreateSession(context.Background(), CreateSessionInput{
		UserID: 7, VehicleID: 1, StationID: 3,
		StartTime: "2024-01-15T14:30:00Z",
		EndTime:   "2024-01-15T15:45:00Z",
	})
	if err != nil {
		t.Fatal(err)
	}

	err = svc.DeleteSession(context.Background(), result.Session.ID, 8)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
	if len(store.rows) != 1 {
		t.Fatal("another user's delete removed the session")
	}
}

func TestListSessionsForUserCaches(t *testing.T) {
	store := &fakeStore{}
	history := newFakeHistory()
	svc := newTestSessionsService(store, testCatalog(), history)

	if _, err := svc.CreateSession(context.Background(), CreateSessionInput{
		UserID: 7, VehicleID: 1, StationID: 3,
		StartTime: "2024-01-15T14:30:00Z",
		EndTime:   "2024-01-15T15:45:00Z",
	}); err != nil {
		t.Fatal(err)
	}

	first, err := svc.ListSessionsForUser(context.Background(), 7)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 1 {
		t.Fatalf("sessions = %d, want 1", len(first))
	}
	if history.saves != 1 {
		t.Fatalf("cache saves = %d, want 1", history.saves)
	}

	// Second read must come from the cache without touching storage.
	store.listErr = errors.New("db down")
	second, err := svc.ListSessionsForUser(context.Background(), 7)
	if err != nil {
		t.Fatalf("cached read failed: %v", err)
	}
	if len(second) != 1 {
		t.Fatalf("cached sessions = %d, want 1", len(second))
	}
}

func TestListSessionsStorageFailure(t *testing.T) {
	store := &fakeStore{listErr: errors.New("timeout")}
	svc := newTestSessionsService(store, testCatalog(), nil)

	if _, err := svc.ListSessionsForUser(context.Background(), 7); !errors.Is(err, apperr.ErrUnavailable) {
		t.Fatalf("error = %v, want ErrUnavailable", err)
	}
}
