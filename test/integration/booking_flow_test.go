package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	bookingapp "github.com/dmehra2102/Gym-Booking-System/internal/booking/application"
	bookinggrpc "github.com/dmehra2102/Gym-Booking-System/internal/booking/infrastructure/grpc"
	bookinghttp "github.com/dmehra2102/Gym-Booking-System/internal/booking/infrastructure/http"
	bookingmem "github.com/dmehra2102/Gym-Booking-System/internal/booking/infrastructure/memory"
	bookingmsg "github.com/dmehra2102/Gym-Booking-System/internal/booking/infrastructure/messaging"
	classapp "github.com/dmehra2102/Gym-Booking-System/internal/class/application"
	classgrpc "github.com/dmehra2102/Gym-Booking-System/internal/class/infrastructure/grpc"
	classhttp "github.com/dmehra2102/Gym-Booking-System/internal/class/infrastructure/http"
	classmem "github.com/dmehra2102/Gym-Booking-System/internal/class/infrastructure/memory"
	classmsg "github.com/dmehra2102/Gym-Booking-System/internal/class/infrastructure/messaging"
	"github.com/dmehra2102/Gym-Booking-System/pkg/channel"
	"github.com/dmehra2102/Gym-Booking-System/pkg/clock"
)

// system wires both services in process: the class service behind an
// in-memory gRPC listener, a shared in-memory channel and the reservation
// consumer running in the background.
type system struct {
	classes  *httptest.Server
	bookings *httptest.Server
	grpc     *grpc.Server
}

func startSystem(t *testing.T) *system {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	bus := channel.NewMemory(log)

	classSvc := classapp.NewService(log, classmem.NewRepository())
	gs := classgrpc.NewGRPCServer(classgrpc.NewServer(log, classSvc))
	lis := bufconn.Listen(1 << 20)
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	ctx, cancel := context.WithCancel(context.Background())
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		_ = classmsg.NewConsumer(log, bus, "class-service", classSvc, nil).Run(ctx, 2)
	}()
	t.Cleanup(func() {
		cancel()
		<-consumerDone
	})

	conn, err := grpc.NewClient("passthrough:///class-service",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	bookingSvc := bookingapp.NewService(log,
		bookingmem.NewRepository(),
		bookinggrpc.NewClassClientConn(log, conn, 500*time.Millisecond),
		bookingmsg.NewPublisher(log, bus),
		clock.NewRealClock(),
	)

	s := &system{
		classes:  httptest.NewServer(classhttp.NewHandler(log, classSvc).Routes()),
		bookings: httptest.NewServer(bookinghttp.NewHandler(log, bookingSvc).Routes()),
		grpc:     gs,
	}
	t.Cleanup(s.classes.Close)
	t.Cleanup(s.bookings.Close)
	return s
}

func doJSON(t *testing.T, method, url, body string, out any) int {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

type classView struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	TotalCapacity  int    `json:"totalCapacity"`
	AvailableSpots int    `json:"availableSpots"`
}

func (s *system) createClass(t *testing.T, name string, capacity int) classView {
	t.Helper()
	var c classView
	status := doJSON(t, http.MethodPost, s.classes.URL+"/classes", fmt.Sprintf(`{"name":%q,"capacity":%d}`, name, capacity), &c)
	require.Equal(t, http.StatusCreated, status)
	return c
}

func (s *system) availableSpots(t *testing.T, id int64) int {
	var c classView
	status := doJSON(t, http.MethodGet, fmt.Sprintf("%s/classes/%d", s.classes.URL, id), "", &c)
	if status != http.StatusOK {
		return -1
	}
	return c.AvailableSpots
}

func (s *system) book(t *testing.T, classID int64, user string) int {
	t.Helper()
	return doJSON(t, http.MethodPost, s.bookings.URL+"/bookings", fmt.Sprintf(`{"classId":%d,"userName":%q}`, classID, user), nil)
}

func TestYogaBookingDecrementsCapacity(t *testing.T) {
	s := startSystem(t)
	yoga := s.createClass(t, "Yoga", 20)

	var booking struct {
		ID      int64 `json:"id"`
		ClassID int64 `json:"classId"`
	}
	status := doJSON(t, http.MethodPost, s.bookings.URL+"/bookings", fmt.Sprintf(`{"classId":%d,"userName":"alice"}`, yoga.ID), &booking)
	require.Equal(t, http.StatusCreated, status)
	require.Positive(t, booking.ID)
	require.Equal(t, yoga.ID, booking.ClassID)

	require.Eventually(t, func() bool { return s.availableSpots(t, yoga.ID) == 19 }, 2*time.Second, 10*time.Millisecond)
}

func TestYogaFillsUpAfterTwoBookings(t *testing.T) {
	s := startSystem(t)
	yoga := s.createClass(t, "Yoga", 2)

	require.Equal(t, http.StatusCreated, s.book(t, yoga.ID, "userA"))
	require.Equal(t, http.StatusCreated, s.book(t, yoga.ID, "userB"))
	require.Eventually(t, func() bool { return s.availableSpots(t, yoga.ID) == 0 }, 2*time.Second, 10*time.Millisecond)

	require.Equal(t, http.StatusConflict, s.book(t, yoga.ID, "userC"))

	var bookings []struct {
		UserName string `json:"userName"`
	}
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, s.bookings.URL+"/bookings", "", &bookings))
	require.Len(t, bookings, 2)
	require.Equal(t, "userA", bookings[0].UserName)
	require.Equal(t, "userB", bookings[1].UserName)
	require.Equal(t, 0, s.availableSpots(t, yoga.ID))
}

func TestClassCapacityBeyondInt32Rejected(t *testing.T) {
	s := startSystem(t)

	status := doJSON(t, http.MethodPost, s.classes.URL+"/classes", `{"name":"Marathon","capacity":2147483648}`, nil)

	require.Equal(t, http.StatusBadRequest, status)
}

func TestBookingRejections(t *testing.T) {
	s := startSystem(t)
	solo := s.createClass(t, "Private Coaching", 1)

	require.Equal(t, http.StatusCreated, s.book(t, solo.ID, "alice"))
	require.Eventually(t, func() bool { return s.availableSpots(t, solo.ID) == 0 }, 2*time.Second, 10*time.Millisecond)

	require.Equal(t, http.StatusConflict, s.book(t, solo.ID, "bob"))
	require.Equal(t, http.StatusNotFound, s.book(t, 999, "carol"))
	require.Equal(t, http.StatusBadRequest, s.book(t, solo.ID, ""))

	var bookings []map[string]any
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, s.bookings.URL+"/bookings", "", &bookings))
	require.Len(t, bookings, 1, "rejected requests must not create bookings")
}

func TestClassServiceDownYields503(t *testing.T) {
	s := startSystem(t)
	yoga := s.createClass(t, "Yoga", 5)
	s.grpc.Stop()

	require.Equal(t, http.StatusServiceUnavailable, s.book(t, yoga.ID, "alice"))
}
