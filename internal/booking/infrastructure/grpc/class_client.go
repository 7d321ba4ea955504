package grpc

import (
	"context"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/dmehra2102/Gym-Booking-System/internal/booking/application"
	"github.com/dmehra2102/Gym-Booking-System/internal/class/infrastructure/grpc/classrpc"
)

const DefaultTimeout = 3 * time.Second

// ClassClient implements application.ClassAvailabilityClient over the class
// service's gRPC API.
type ClassClient struct {
	log     *slog.Logger
	conn    *grpc.ClientConn
	rpc     classrpc.ClassServiceClient
	timeout time.Duration
}

func NewClassClient(log *slog.Logger, addr string, timeout time.Duration) (*ClassClient, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, errors.Wrapf(err, "dial class service %s", addr)
	}
	c := newClassClient(log, conn, timeout)
	c.conn = conn
	return c, nil
}

// NewClassClientConn wraps an existing connection; the caller owns cc.
func NewClassClientConn(log *slog.Logger, cc grpc.ClientConnInterface, timeout time.Duration) *ClassClient {
	return newClassClient(log, cc, timeout)
}

func newClassClient(log *slog.Logger, cc grpc.ClientConnInterface, timeout time.Duration) *ClassClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ClassClient{log: log, rpc: classrpc.NewClassServiceClient(cc), timeout: timeout}
}

// CheckAvailability applies the client timeout when ctx carries no deadline.
// Any failure to complete the call, including an expired deadline, is
// reported as application.ErrClassServiceUnavailable.
func (c *ClassClient) CheckAvailability(ctx context.Context, classID int64) (application.Availability, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.rpc.GetClass(ctx, &classrpc.GetClassRequest{ID: classID})
	if err != nil {
		c.log.WarnContext(ctx, "class service call failed", "class_id", classID, "code", status.Code(err).String(), "err", err)
		return application.Availability{}, errors.WithSecondaryError(
			errors.Wrapf(application.ErrClassServiceUnavailable, "get class %d", classID), err)
	}
	if !resp.Exists {
		return application.Availability{}, application.ErrClassNotFound
	}
	if resp.AvailableSpots <= 0 {
		return application.Availability{}, application.ErrClassFull
	}
	return application.Availability{
		ClassID:   resp.ID,
		Name:      resp.Name,
		Total:     int(resp.TotalCapacity),
		Available: int(resp.AvailableSpots),
	}, nil
}

func (c *ClassClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
