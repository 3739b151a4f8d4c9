package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"tracker/internal/driving"
	"tracker/internal/service"
)

// ──────────────────────────────────────────────
// 2. SESSIONS AND LOCKING
// ──────────────────────────────────────────────

func TestEndSession_PersistsOpenTrip(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	for _, s := range drive(0, 30, 0, 60) {
		if _, err := f.service.IngestSample(ctx, "car-1", s); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	rec, err := f.service.EndSession(ctx, "car-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec == nil {
		t.Fatal("expected the open trip to be returned")
	}
	if rec.Trip.IsActive {
		t.Error("force-ended trip must not be active")
	}
	if want := epoch.Add(30 * time.Second); !rec.Trip.EndedAt.Equal(want) {
		t.Errorf("expected trip to end at the last sample %s, got %s", want, rec.Trip.EndedAt)
	}
	if rec.Trip.End == nil {
		t.Error("expected end location to be set")
	}

	if f.tripRepo.CountTrips() != 1 {
		t.Errorf("expected 1 persisted trip, got %d", f.tripRepo.CountTrips())
	}
	if _, ok := f.locationStore.Location("car-1"); ok {
		t.Error("expected live location to be removed")
	}
	if len(f.service.Devices()) != 0 {
		t.Errorf("expected device state to be dropped, got %v", f.service.Devices())
	}

	// The device starts over with a fresh state.
	res, err := f.service.IngestSample(ctx, "car-1", sample(10, 0, 60))
	if err != nil {
		t.Fatalf("expected earlier timestamp to be accepted after session end, got %v", err)
	}
	if res.TripStarted == nil {
		t.Error("expected a new trip to start")
	}
}

func TestEndSession_NoOpenTrip_ReturnsNil(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	if _, err := f.service.IngestSample(ctx, "car-1", sample(0, 0, 3)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec, err := f.service.EndSession(ctx, "car-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec != nil {
		t.Errorf("expected no trip, got %s", rec.Trip.ID)
	}
	if f.tripRepo.CreateCallCount != 0 {
		t.Error("nothing should be persisted")
	}
	if len(f.service.Devices()) != 0 {
		t.Error("expected device state to be dropped")
	}
}

func TestEndSession_UnknownDevice(t *testing.T) {
	t.Parallel()

	f := newFixture()

	_, err := f.service.EndSession(context.Background(), "ghost")
	if !errors.Is(err, driving.ErrUnknownDevice) {
		t.Errorf("expected ErrUnknownDevice, got %v", err)
	}
}

func TestEndSession_MissingDeviceID(t *testing.T) {
	t.Parallel()

	f := newFixture()

	_, err := f.service.EndSession(context.Background(), "")
	if !errors.Is(err, service.ErrInvalidDeviceID) {
		t.Errorf("expected ErrInvalidDeviceID, got %v", err)
	}
}

func TestActiveTrip(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	if _, err := f.service.IngestSample(ctx, "parked", sample(0, 0, 0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, s := range drive(0, 20, 0, 72) {
		if _, err := f.service.IngestSample(ctx, "car-1", s); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	active, err := f.service.ActiveTrip(ctx, "car-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !active.Trip.IsActive || !active.IsDriving {
		t.Error("expected an active, driving trip")
	}
	if len(active.Trip.Waypoints) != 5 {
		t.Errorf("expected 5 waypoints, got %d", len(active.Trip.Waypoints))
	}
	if active.Stats.MaxSpeedKmh != 72 {
		t.Errorf("expected max speed 72, got %v", active.Stats.MaxSpeedKmh)
	}
	if active.Stats.TotalDrivingTime != 20*time.Second {
		t.Errorf("expected 20s driving, got %s", active.Stats.TotalDrivingTime)
	}

	if _, err := f.service.ActiveTrip(ctx, "parked"); !errors.Is(err, service.ErrNoActiveTrip) {
		t.Errorf("expected ErrNoActiveTrip, got %v", err)
	}
	if _, err := f.service.ActiveTrip(ctx, "ghost"); !errors.Is(err, driving.ErrUnknownDevice) {
		t.Errorf("expected ErrUnknownDevice, got %v", err)
	}
}

func TestIngest_DeviceLockedElsewhere_ReturnsBusy(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.lockStore.Hold("car-1", time.Minute)

	_, err := f.service.IngestSample(context.Background(), "car-1", sample(0, 0, 30))
	if !errors.Is(err, service.ErrDeviceBusy) {
		t.Fatalf("expected ErrDeviceBusy, got %v", err)
	}
	if len(f.service.Devices()) != 0 {
		t.Error("sample must not be applied while another instance holds the device")
	}
	if f.lockStore.ReleaseCallCount != 0 {
		t.Error("a lock we did not take must not be released")
	}
}

func TestIngest_LockReleasedAfterEachSample(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	for _, s := range drive(0, 10, 0, 40) {
		if _, err := f.service.IngestSample(ctx, "car-1", s); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.lockStore.IsLocked("car-1") {
			t.Fatal("expected lock to be released after the sample")
		}
	}

	if f.lockStore.AcquireCallCount != 3 || f.lockStore.ReleaseCallCount != 3 {
		t.Errorf("expected 3 acquire/release pairs, got %d/%d",
			f.lockStore.AcquireCallCount, f.lockStore.ReleaseCallCount)
	}
}

func TestIngest_LockStoreError_Propagates(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.lockStore.AcquireError = ErrMockTimeout

	_, err := f.service.IngestSample(context.Background(), "car-1", sample(0, 0, 30))
	if !errors.Is(err, ErrMockTimeout) {
		t.Errorf("expected lock error to propagate, got %v", err)
	}
}

func TestActiveDevices(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	for deviceID, speed := range map[string]float64{"car-b": 50, "car-a": 50, "parked": 0} {
		if _, err := f.service.IngestSample(ctx, deviceID, sample(0, 0, speed)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	active, err := f.service.ActiveDevices(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(active) != 2 || active[0] != "car-a" || active[1] != "car-b" {
		t.Errorf("expected [car-a car-b], got %v", active)
	}

	local := f.service.Devices()
	if len(local) != 3 {
		t.Errorf("expected 3 local devices, got %v", local)
	}
}

func TestActiveDevices_WithoutCache(t *testing.T) {
	t.Parallel()

	svc := service.NewTrackingService(service.TrackingDeps{
		Registry: driving.NewRegistry(driving.DefaultConfig()),
		TripRepo: NewMockTripRepository(),
	})
	ctx := context.Background()

	if _, err := svc.IngestSample(ctx, "car-1", sample(0, 0, 50)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.IngestSample(ctx, "parked", sample(0, 0, 0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	active, err := svc.ActiveDevices(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(active) != 1 || active[0] != "car-1" {
		t.Errorf("expected [car-1], got %v", active)
	}
}
