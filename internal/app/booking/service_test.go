package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chefbook/chefbook/internal/adapter/logger"
	"github.com/chefbook/chefbook/internal/domain"
	"github.com/chefbook/chefbook/internal/interfaces"
)

type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
	logs   map[string][]*domain.StatusLog

	createErr error
	updateErr error

	// beforeReadReturn runs after FindByID has taken its copy but
	// before it returns, outside the repo lock.
	beforeReadReturn func()
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		orders: make(map[string]*domain.Order),
		logs:   make(map[string][]*domain.StatusLog),
	}
}

func (r *fakeOrderRepo) Create(_ context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.createErr != nil {
		return r.createErr
	}
	copied := *order
	r.orders[order.ID] = &copied
	r.appendLog(order, "customer")
	return nil
}

func (r *fakeOrderRepo) FindByID(_ context.Context, id string) (*domain.Order, error) {
	r.mu.Lock()
	order, ok := r.orders[id]
	if !ok {
		r.mu.Unlock()
		return nil, &domain.NotFoundError{Entity: "order", Key: id}
	}
	copied := *order
	r.mu.Unlock()

	if r.beforeReadReturn != nil {
		r.beforeReadReturn()
	}
	return &copied, nil
}

// UpdateStatusWithLog mirrors the store's compare-and-set: the write
// only lands if the order is still in the expected prior status.
func (r *fakeOrderRepo) UpdateStatusWithLog(_ context.Context, order *domain.Order, from domain.Status, changedBy string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.updateErr != nil {
		return r.updateErr
	}
	stored, ok := r.orders[order.ID]
	if !ok {
		return &domain.NotFoundError{Entity: "order", Key: order.ID}
	}
	if stored.Status != from {
		return &domain.InvalidTransitionError{From: stored.Status, To: order.Status}
	}
	stored.Status = order.Status
	stored.UpdatedAt = order.UpdatedAt
	r.appendLog(order, changedBy)
	return nil
}

func (r *fakeOrderRepo) appendLog(order *domain.Order, changedBy string) {
	r.logs[order.ID] = append(r.logs[order.ID], &domain.StatusLog{
		OrderID:   order.ID,
		Status:    order.Status,
		ChangedBy: changedBy,
		ChangedAt: time.Now(),
	})
}

func (r *fakeOrderRepo) ListByChef(_ context.Context, chefID string) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain.Order
	for _, o := range r.orders {
		if o.ChefID == chefID {
			copied := *o
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) ListByCustomer(_ context.Context, customerID string) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain.Order
	for _, o := range r.orders {
		if o.CustomerID == customerID {
			copied := *o
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) ListAll(_ context.Context) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain.Order
	for _, o := range r.orders {
		copied := *o
		out = append(out, &copied)
	}
	return out, nil
}

func (r *fakeOrderRepo) ListAccepted(_ context.Context) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain.Order
	for _, o := range r.orders {
		if o.Status == domain.StatusAccepted {
			copied := *o
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) PruneElapsed(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var pruned int64
	for id, o := range r.orders {
		if !o.Status.IsTerminal() && o.ScheduledDate.Before(before) {
			delete(r.orders, id)
			pruned++
		}
	}
	return pruned, nil
}

func (r *fakeOrderRepo) GetStatusHistory(_ context.Context, orderID string) ([]*domain.StatusLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.logs[orderID], nil
}

type fakeChefRepo struct {
	mu    sync.Mutex
	chefs map[string]*domain.Chef

	incrementErr error
	totalCalls   int
	servedCalls  int
}

func newFakeChefRepo(chefs ...*domain.Chef) *fakeChefRepo {
	r := &fakeChefRepo{chefs: make(map[string]*domain.Chef)}
	for _, c := range chefs {
		r.chefs[c.ID] = c
	}
	return r
}

func (r *fakeChefRepo) Create(_ context.Context, chef *domain.Chef) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chefs[chef.ID] = chef
	return nil
}

func (r *fakeChefRepo) FindByID(_ context.Context, id string) (*domain.Chef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	chef, ok := r.chefs[id]
	if !ok {
		return nil, &domain.NotFoundError{Entity: "chef", Key: id}
	}
	return chef, nil
}

func (r *fakeChefRepo) FindByUserID(_ context.Context, userID string) (*domain.Chef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.chefs {
		if c.UserID == userID {
			return c, nil
		}
	}
	return nil, &domain.NotFoundError{Entity: "chef", Key: userID}
}

func (r *fakeChefRepo) IncrementTotalOrders(_ context.Context, chefID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.totalCalls++
	if r.incrementErr != nil {
		return r.incrementErr
	}
	r.chefs[chefID].TotalOrders++
	return nil
}

func (r *fakeChefRepo) IncrementCustomersServed(_ context.Context, chefID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.servedCalls++
	if r.incrementErr != nil {
		return r.incrementErr
	}
	r.chefs[chefID].CustomersServed++
	return nil
}

type fakeServiceRepo struct {
	services map[string]*domain.Service
}

func newFakeServiceRepo(services ...*domain.Service) *fakeServiceRepo {
	r := &fakeServiceRepo{services: make(map[string]*domain.Service)}
	for _, s := range services {
		r.services[s.ID] = s
	}
	return r
}

func (r *fakeServiceRepo) Create(_ context.Context, svc *domain.Service) error {
	r.services[svc.ID] = svc
	return nil
}

func (r *fakeServiceRepo) FindByID(_ context.Context, id string) (*domain.Service, error) {
	svc, ok := r.services[id]
	if !ok {
		return nil, &domain.NotFoundError{Entity: "service", Key: id}
	}
	return svc, nil
}

func (r *fakeServiceRepo) ListByChef(_ context.Context, chefID string) ([]*domain.Service, error) {
	var out []*domain.Service
	for _, s := range r.services {
		if s.ChefID == chefID && s.Active {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeServiceRepo) Deactivate(_ context.Context, id string) error {
	svc, ok := r.services[id]
	if !ok {
		return &domain.NotFoundError{Entity: "service", Key: id}
	}
	svc.Active = false
	return nil
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []interfaces.OrderEventMessage
	err      error
}

func (p *fakePublisher) PublishOrderEvent(_ context.Context, msg interfaces.OrderEventMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, msg)
	return nil
}

func (p *fakePublisher) published() []interfaces.OrderEventMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]interfaces.OrderEventMessage(nil), p.messages...)
}

type fixture struct {
	service   *Service
	orders    *fakeOrderRepo
	chefs     *fakeChefRepo
	services  *fakeServiceRepo
	publisher *fakePublisher
}

func newFixture() *fixture {
	chef := &domain.Chef{ID: "chef-1", UserID: "user-chef", DisplayName: "Aigerim"}
	svc := &domain.Service{ID: "svc-1", ChefID: "chef-1", Name: "Beshbarmak Dinner", Price: 30000, Active: true}

	f := &fixture{
		orders:    newFakeOrderRepo(),
		chefs:     newFakeChefRepo(chef),
		services:  newFakeServiceRepo(svc),
		publisher: &fakePublisher{},
	}

	f.service = NewService(f.orders, f.chefs, f.services, f.publisher, logger.New("booking-test", "error"))
	f.service.now = func() time.Time { return time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC) }
	f.service.retryDelay = time.Millisecond
	return f
}

func validCommand() interfaces.CreateOrderCommand {
	return interfaces.CreateOrderCommand{
		CustomerID:    "user-1",
		ChefID:        "chef-1",
		ServiceID:     "svc-1",
		ScheduledDate: "2026-09-15",
		TimeSlot:      "18:00",
		DurationHours: 3,
		Phone:         "+77001234567",
		Address:       "12 Abay Ave",
	}
}

func TestCreateOrderHappyPath(t *testing.T) {
	f := newFixture()

	order, err := f.service.CreateOrder(context.Background(), validCommand())
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPending, order.Status)
	assert.Equal(t, "Beshbarmak Dinner", order.ServiceName)
	assert.Equal(t, 30000.0, order.Price)

	chef, _ := f.chefs.FindByID(context.Background(), "chef-1")
	assert.Equal(t, 1, chef.TotalOrders)
	assert.Equal(t, 0, chef.CustomersServed, "customersServed moves only on completion")

	msgs := f.publisher.published()
	require.Len(t, msgs, 1)
	assert.Equal(t, order.ID, msgs[0].OrderID)
	assert.Equal(t, domain.StatusPending, msgs[0].NewStatus)
}

func TestCreateOrderValidationPrecedesLookups(t *testing.T) {
	f := newFixture()

	cmd := validCommand()
	cmd.ChefID = ""
	cmd.ServiceID = "no-such-service"

	_, err := f.service.CreateOrder(context.Background(), cmd)

	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "chef_id", vErr.Field)
}

func TestCreateOrderUnknownChef(t *testing.T) {
	f := newFixture()

	cmd := validCommand()
	cmd.ChefID = "chef-unknown"

	_, err := f.service.CreateOrder(context.Background(), cmd)

	var nfErr *domain.NotFoundError
	require.ErrorAs(t, err, &nfErr)
	assert.Equal(t, "chef", nfErr.Entity)
}

func TestCreateOrderRejectsForeignService(t *testing.T) {
	f := newFixture()
	f.services.services["svc-2"] = &domain.Service{ID: "svc-2", ChefID: "chef-other", Name: "Lagman", Price: 5000, Active: true}

	cmd := validCommand()
	cmd.ServiceID = "svc-2"

	_, err := f.service.CreateOrder(context.Background(), cmd)

	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "service_id", vErr.Field)
}

func TestCreateOrderRejectsDeactivatedService(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.services.Deactivate(context.Background(), "svc-1"))

	_, err := f.service.CreateOrder(context.Background(), validCommand())

	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "service_id", vErr.Field)
}

func TestCreateOrderSucceedsWhenCounterKeepsFailing(t *testing.T) {
	f := newFixture()
	f.chefs.incrementErr = errors.New("connection refused")

	order, err := f.service.CreateOrder(context.Background(), validCommand())
	require.NoError(t, err, "booking must not fail over a lagging counter")
	assert.Equal(t, domain.StatusPending, order.Status)

	assert.Equal(t, counterRetries, f.chefs.totalCalls)

	stored, err := f.orders.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, stored.Status)
}

func TestCreateOrderSucceedsWhenPublishFails(t *testing.T) {
	f := newFixture()
	f.publisher.err = errors.New("broker down")

	order, err := f.service.CreateOrder(context.Background(), validCommand())
	require.NoError(t, err)

	_, err = f.orders.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
}

func TestFullLifecycle(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	order, err := f.service.CreateOrder(ctx, validCommand())
	require.NoError(t, err)

	accepted, err := f.service.UpdateOrderStatus(ctx, order.ID, domain.StatusAccepted, "user-chef")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAccepted, accepted.Status)

	completed, err := f.service.UpdateOrderStatus(ctx, order.ID, domain.StatusCompleted, "user-chef")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, completed.Status)

	chef, _ := f.chefs.FindByID(ctx, "chef-1")
	assert.Equal(t, 1, chef.TotalOrders)
	assert.Equal(t, 1, chef.CustomersServed)

	history, err := f.service.GetStatusHistory(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, domain.StatusPending, history[0].Status)
	assert.Equal(t, domain.StatusAccepted, history[1].Status)
	assert.Equal(t, domain.StatusCompleted, history[2].Status)

	msgs := f.publisher.published()
	require.Len(t, msgs, 3)
	assert.Equal(t, domain.StatusAccepted, msgs[1].NewStatus)
	assert.Equal(t, domain.StatusPending, msgs[1].OldStatus)
}

func TestInvalidTransitionsRejected(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	order, err := f.service.CreateOrder(ctx, validCommand())
	require.NoError(t, err)

	// pending -> completed skips acceptance.
	_, err = f.service.UpdateOrderStatus(ctx, order.ID, domain.StatusCompleted, "user-chef")
	var trErr *domain.InvalidTransitionError
	require.ErrorAs(t, err, &trErr)

	_, err = f.service.UpdateOrderStatus(ctx, order.ID, domain.StatusCancelled, "user-1")
	require.NoError(t, err)

	// Terminal states accept nothing.
	_, err = f.service.UpdateOrderStatus(ctx, order.ID, domain.StatusAccepted, "user-chef")
	require.ErrorAs(t, err, &trErr)

	stored, _ := f.orders.FindByID(ctx, order.ID)
	assert.Equal(t, domain.StatusCancelled, stored.Status)
}

func TestCompletedCountsCustomerExactlyOnce(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	order, err := f.service.CreateOrder(ctx, validCommand())
	require.NoError(t, err)

	_, err = f.service.UpdateOrderStatus(ctx, order.ID, domain.StatusAccepted, "user-chef")
	require.NoError(t, err)
	_, err = f.service.UpdateOrderStatus(ctx, order.ID, domain.StatusCompleted, "user-chef")
	require.NoError(t, err)

	// A duplicate completion request fails the transition check and
	// never reaches the counter.
	_, err = f.service.UpdateOrderStatus(ctx, order.ID, domain.StatusCompleted, "user-chef")
	var trErr *domain.InvalidTransitionError
	require.ErrorAs(t, err, &trErr)

	assert.Equal(t, 1, f.chefs.servedCalls)
}

func TestConcurrentCompletionCountsCustomerOnce(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	order, err := f.service.CreateOrder(ctx, validCommand())
	require.NoError(t, err)
	_, err = f.service.UpdateOrderStatus(ctx, order.ID, domain.StatusAccepted, "user-chef")
	require.NoError(t, err)

	// Hold both writers until each has read the still-accepted order,
	// so both pass the in-memory transition check and race on the
	// store write.
	var reads sync.WaitGroup
	reads.Add(2)
	f.orders.beforeReadReturn = func() {
		reads.Done()
		reads.Wait()
	}

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.UpdateOrderStatus(ctx, order.ID, domain.StatusCompleted, "user-chef")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	f.orders.beforeReadReturn = nil

	conflicts := 0
	for err := range errs {
		if err == nil {
			continue
		}
		var trErr *domain.InvalidTransitionError
		require.ErrorAs(t, err, &trErr)
		conflicts++
	}
	assert.Equal(t, 1, conflicts, "exactly one writer loses the race")
	assert.Equal(t, 1, f.chefs.servedCalls, "customersServed counts the completion once")

	completedEvents := 0
	for _, msg := range f.publisher.published() {
		if msg.NewStatus == domain.StatusCompleted {
			completedEvents++
		}
	}
	assert.Equal(t, 1, completedEvents)

	history, err := f.service.GetStatusHistory(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, history, 3, "the losing writer appends no log row")
}

func TestCounterRetryStopsOnCancelledContext(t *testing.T) {
	f := newFixture()
	f.chefs.incrementErr = errors.New("connection refused")
	f.service.retryDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.service.CreateOrder(ctx, validCommand())
	require.NoError(t, err)
	assert.Equal(t, 1, f.chefs.totalCalls, "no retry wait once the context is gone")
}

func TestUpdateOrderStatusUnknownStatus(t *testing.T) {
	f := newFixture()

	_, err := f.service.UpdateOrderStatus(context.Background(), "any", domain.Status("shipped"), "someone")

	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "status", vErr.Field)
}

func TestUpdateOrderStatusUnknownOrder(t *testing.T) {
	f := newFixture()

	_, err := f.service.UpdateOrderStatus(context.Background(), "missing", domain.StatusAccepted, "someone")

	var nfErr *domain.NotFoundError
	require.ErrorAs(t, err, &nfErr)
}
