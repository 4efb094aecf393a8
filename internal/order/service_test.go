package order_test

import (
	"context"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/digitalstore/internal/catalog"
	"github.com/vasiliy-maslov/digitalstore/internal/order"
	"github.com/vasiliy-maslov/digitalstore/internal/user"
)

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) GetViewByID(ctx context.Context, id uuid.UUID) (*order.View, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.View), args.Error(1)
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, o *order.Order, restock bool) error {
	args := m.Called(ctx, o, restock)
	return args.Error(0)
}

func (m *MockOrderRepository) FindByFilter(ctx context.Context, f order.Filter) ([]order.View, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.View), args.Error(1)
}

type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserStore) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

type MockProductStore struct {
	mock.Mock
}

func (m *MockProductStore) GetProductByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func newTestStores() (*MockOrderRepository, *MockUserStore, *MockProductStore, order.Service) {
	mockRepo := new(MockOrderRepository)
	mockUsers := new(MockUserStore)
	mockProducts := new(MockProductStore)
	svc := order.NewService(mockRepo, mockUsers, mockProducts)
	return mockRepo, mockUsers, mockProducts, svc
}

func testClient() *user.User {
	return &user.User{
		ID:        uuid.Must(uuid.NewV4()),
		Email:     "client@example.com",
		FirstName: "Ivan",
		LastName:  "Petrov",
		Role:      user.RoleClient,
	}
}

func testProduct(quantity int) *catalog.Product {
	return &catalog.Product{
		ID:       uuid.Must(uuid.NewV4()),
		Name:     "Pixel 9",
		Brand:    "Google",
		Price:    decimal.NewFromFloat(799.99),
		Quantity: quantity,
	}
}

func TestOrderService_Create_Success(t *testing.T) {
	mockRepo, mockUsers, mockProducts, svc := newTestStores()

	owner := testClient()
	product := testProduct(10)

	mockUsers.On("GetByID", mock.Anything, owner.ID).Return(owner, nil).Once()
	mockProducts.On("GetProductByID", mock.Anything, product.ID).Return(product, nil).Once()
	mockRepo.On("Create", mock.Anything, mock.MatchedBy(func(o *order.Order) bool {
		return o.UserID == owner.ID &&
			o.ProductID == product.ID &&
			o.Quantity == 3 &&
			o.Status == order.StatusNew &&
			o.TotalPrice.Equal(decimal.NewFromFloat(2399.97))
	})).Return(nil).Once()

	created, err := svc.Create(context.Background(), order.CreateInput{
		UserID:    owner.ID,
		ProductID: product.ID,
		Quantity:  3,
	})

	require.NoError(t, err)
	require.NotNil(t, created)
	require.Equal(t, order.StatusNew, created.Status)
	require.Equal(t, owner.Email, created.UserEmail)
	require.Equal(t, "Ivan Petrov", created.UserFullName)
	require.Equal(t, product.Name, created.ProductName)
	require.True(t, created.UnitPrice.Equal(product.Price))
	require.True(t, created.TotalPrice.Equal(decimal.NewFromFloat(2399.97)))
	mockRepo.AssertExpectations(t)
	mockUsers.AssertExpectations(t)
	mockProducts.AssertExpectations(t)
}

func TestOrderService_Create_InvalidQuantity(t *testing.T) {
	mockRepo, _, _, svc := newTestStores()

	created, err := svc.Create(context.Background(), order.CreateInput{
		UserID:    uuid.Must(uuid.NewV4()),
		ProductID: uuid.Must(uuid.NewV4()),
		Quantity:  0,
	})

	require.ErrorIs(t, err, order.ErrInvalidQuantity)
	require.Nil(t, created)
	mockRepo.AssertNotCalled(t, "Create")
}

func TestOrderService_Create_UserNotFound(t *testing.T) {
	mockRepo, mockUsers, mockProducts, svc := newTestStores()

	userID := uuid.Must(uuid.NewV4())
	mockUsers.On("GetByID", mock.Anything, userID).Return(nil, user.ErrNotFound).Once()

	created, err := svc.Create(context.Background(), order.CreateInput{
		UserID:    userID,
		ProductID: uuid.Must(uuid.NewV4()),
		Quantity:  1,
	})

	require.ErrorIs(t, err, order.ErrUserNotFound)
	require.Nil(t, created)
	mockUsers.AssertExpectations(t)
	mockProducts.AssertNotCalled(t, "GetProductByID")
	mockRepo.AssertNotCalled(t, "Create")
}

func TestOrderService_Create_ProductNotFound(t *testing.T) {
	mockRepo, mockUsers, mockProducts, svc := newTestStores()

	owner := testClient()
	productID := uuid.Must(uuid.NewV4())

	mockUsers.On("GetByID", mock.Anything, owner.ID).Return(owner, nil).Once()
	mockProducts.On("GetProductByID", mock.Anything, productID).Return(nil, catalog.ErrProductNotFound).Once()

	created, err := svc.Create(context.Background(), order.CreateInput{
		UserID:    owner.ID,
		ProductID: productID,
		Quantity:  1,
	})

	require.ErrorIs(t, err, order.ErrProductNotFound)
	require.Nil(t, created)
	mockRepo.AssertNotCalled(t, "Create")
}

func TestOrderService_Create_InsufficientStock(t *testing.T) {
	mockRepo, mockUsers, mockProducts, svc := newTestStores()

	owner := testClient()
	product := testProduct(2)

	mockUsers.On("GetByID", mock.Anything, owner.ID).Return(owner, nil).Once()
	mockProducts.On("GetProductByID", mock.Anything, product.ID).Return(product, nil).Once()

	created, err := svc.Create(context.Background(), order.CreateInput{
		UserID:    owner.ID,
		ProductID: product.ID,
		Quantity:  5,
	})

	require.ErrorIs(t, err, order.ErrInsufficientStock)
	require.Contains(t, err.Error(), "only 2 available")
	require.Nil(t, created)
	mockRepo.AssertNotCalled(t, "Create")
}

func TestOrderService_Create_LostStockRace(t *testing.T) {
	mockRepo, mockUsers, mockProducts, svc := newTestStores()

	owner := testClient()
	product := testProduct(5)

	mockUsers.On("GetByID", mock.Anything, owner.ID).Return(owner, nil).Once()
	mockProducts.On("GetProductByID", mock.Anything, product.ID).Return(product, nil).Once()
	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*order.Order")).
		Return(order.ErrInsufficientStock).
		Once()

	created, err := svc.Create(context.Background(), order.CreateInput{
		UserID:    owner.ID,
		ProductID: product.ID,
		Quantity:  5,
	})

	require.ErrorIs(t, err, order.ErrInsufficientStock)
	require.Nil(t, created)
	mockRepo.AssertExpectations(t)
}

func TestOrderService_UpdateStatus_InvalidStatus(t *testing.T) {
	mockRepo, _, _, svc := newTestStores()

	updated, err := svc.UpdateStatus(context.Background(), uuid.Must(uuid.NewV4()), "SHIPPED", "client@example.com")

	require.ErrorIs(t, err, order.ErrInvalidStatus)
	require.Nil(t, updated)
	mockRepo.AssertNotCalled(t, "GetByID")
}

func TestOrderService_UpdateStatus_OrderNotFound(t *testing.T) {
	mockRepo, mockUsers, _, svc := newTestStores()

	orderID := uuid.Must(uuid.NewV4())
	mockRepo.On("GetByID", mock.Anything, orderID).Return(nil, order.ErrOrderNotFound).Once()

	updated, err := svc.UpdateStatus(context.Background(), orderID, order.StatusCancelled, "client@example.com")

	require.ErrorIs(t, err, order.ErrOrderNotFound)
	require.Nil(t, updated)
	mockUsers.AssertNotCalled(t, "GetByEmail")
}

func TestOrderService_UpdateStatus_TerminalStatuses(t *testing.T) {
	actor := &user.User{
		ID:    uuid.Must(uuid.NewV4()),
		Email: "admin@digital.store",
		Role:  user.RoleAdmin,
	}

	testCases := []struct {
		name        string
		current     order.Status
		expectedErr error
	}{
		{name: "cancelled order is immutable", current: order.StatusCancelled, expectedErr: order.ErrOrderCancelled},
		{name: "delivered order is immutable", current: order.StatusDelivered, expectedErr: order.ErrOrderDelivered},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo, mockUsers, _, svc := newTestStores()

			existing := &order.Order{
				ID:     uuid.Must(uuid.NewV4()),
				UserID: uuid.Must(uuid.NewV4()),
				Status: tc.current,
			}

			mockRepo.On("GetByID", mock.Anything, existing.ID).Return(existing, nil).Once()
			mockUsers.On("GetByEmail", mock.Anything, actor.Email).Return(actor, nil).Once()

			// Even an admin cannot touch a terminal order.
			updated, err := svc.UpdateStatus(context.Background(), existing.ID, order.StatusAccepted, actor.Email)

			require.ErrorIs(t, err, tc.expectedErr)
			require.Nil(t, updated)
			mockRepo.AssertNotCalled(t, "UpdateStatus")
		})
	}
}

func TestOrderService_UpdateStatus_ClientNotOwner(t *testing.T) {
	mockRepo, mockUsers, _, svc := newTestStores()

	actor := testClient()
	existing := &order.Order{
		ID:     uuid.Must(uuid.NewV4()),
		UserID: uuid.Must(uuid.NewV4()),
		Status: order.StatusNew,
	}

	mockRepo.On("GetByID", mock.Anything, existing.ID).Return(existing, nil).Once()
	mockUsers.On("GetByEmail", mock.Anything, actor.Email).Return(actor, nil).Once()

	updated, err := svc.UpdateStatus(context.Background(), existing.ID, order.StatusCancelled, actor.Email)

	require.ErrorIs(t, err, order.ErrNotOrderOwner)
	require.Nil(t, updated)
	mockRepo.AssertNotCalled(t, "UpdateStatus")
}

func TestOrderService_UpdateStatus_ClientCancelOnly(t *testing.T) {
	mockRepo, mockUsers, _, svc := newTestStores()

	actor := testClient()
	existing := &order.Order{
		ID:     uuid.Must(uuid.NewV4()),
		UserID: actor.ID,
		Status: order.StatusNew,
	}

	mockRepo.On("GetByID", mock.Anything, existing.ID).Return(existing, nil).Once()
	mockUsers.On("GetByEmail", mock.Anything, actor.Email).Return(actor, nil).Once()

	updated, err := svc.UpdateStatus(context.Background(), existing.ID, order.StatusAccepted, actor.Email)

	require.ErrorIs(t, err, order.ErrClientCancelOnly)
	require.Nil(t, updated)
	mockRepo.AssertNotCalled(t, "UpdateStatus")
}

func TestOrderService_UpdateStatus_ClientCancelsOwnOrder(t *testing.T) {
	mockRepo, mockUsers, _, svc := newTestStores()

	actor := testClient()
	existing := &order.Order{
		ID:        uuid.Must(uuid.NewV4()),
		UserID:    actor.ID,
		ProductID: uuid.Must(uuid.NewV4()),
		Quantity:  2,
		Status:    order.StatusNew,
	}
	expectedView := &order.View{
		ID:     existing.ID,
		UserID: actor.ID,
		Status: order.StatusCancelled,
	}

	mockRepo.On("GetByID", mock.Anything, existing.ID).Return(existing, nil).Once()
	mockUsers.On("GetByEmail", mock.Anything, actor.Email).Return(actor, nil).Once()
	mockRepo.On("UpdateStatus", mock.Anything, mock.MatchedBy(func(o *order.Order) bool {
		return o.ID == existing.ID && o.Status == order.StatusCancelled
	}), true).Return(nil).Once()
	mockRepo.On("GetViewByID", mock.Anything, existing.ID).Return(expectedView, nil).Once()

	updated, err := svc.UpdateStatus(context.Background(), existing.ID, order.StatusCancelled, actor.Email)

	require.NoError(t, err)
	require.Equal(t, order.StatusCancelled, updated.Status)
	mockRepo.AssertExpectations(t)
}

func TestOrderService_UpdateStatus_ManagerSkipsIntermediateStates(t *testing.T) {
	mockRepo, mockUsers, _, svc := newTestStores()

	actor := &user.User{
		ID:    uuid.Must(uuid.NewV4()),
		Email: "manager@digital.store",
		Role:  user.RoleManager,
	}
	existing := &order.Order{
		ID:     uuid.Must(uuid.NewV4()),
		UserID: uuid.Must(uuid.NewV4()),
		Status: order.StatusNew,
	}
	expectedView := &order.View{
		ID:     existing.ID,
		Status: order.StatusDelivered,
	}

	mockRepo.On("GetByID", mock.Anything, existing.ID).Return(existing, nil).Once()
	mockUsers.On("GetByEmail", mock.Anything, actor.Email).Return(actor, nil).Once()
	mockRepo.On("UpdateStatus", mock.Anything, mock.MatchedBy(func(o *order.Order) bool {
		return o.ID == existing.ID && o.Status == order.StatusDelivered
	}), false).Return(nil).Once()
	mockRepo.On("GetViewByID", mock.Anything, existing.ID).Return(expectedView, nil).Once()

	updated, err := svc.UpdateStatus(context.Background(), existing.ID, order.StatusDelivered, actor.Email)

	require.NoError(t, err)
	require.Equal(t, order.StatusDelivered, updated.Status)
	mockRepo.AssertExpectations(t)
}

func TestOrderService_UpdateStatus_ManagerCancelRestocks(t *testing.T) {
	mockRepo, mockUsers, _, svc := newTestStores()

	actor := &user.User{
		ID:    uuid.Must(uuid.NewV4()),
		Email: "manager@digital.store",
		Role:  user.RoleManager,
	}
	existing := &order.Order{
		ID:       uuid.Must(uuid.NewV4()),
		UserID:   uuid.Must(uuid.NewV4()),
		Quantity: 4,
		Status:   order.StatusInTransit,
	}
	expectedView := &order.View{
		ID:     existing.ID,
		Status: order.StatusCancelled,
	}

	mockRepo.On("GetByID", mock.Anything, existing.ID).Return(existing, nil).Once()
	mockUsers.On("GetByEmail", mock.Anything, actor.Email).Return(actor, nil).Once()
	mockRepo.On("UpdateStatus", mock.Anything, mock.AnythingOfType("*order.Order"), true).Return(nil).Once()
	mockRepo.On("GetViewByID", mock.Anything, existing.ID).Return(expectedView, nil).Once()

	updated, err := svc.UpdateStatus(context.Background(), existing.ID, order.StatusCancelled, actor.Email)

	require.NoError(t, err)
	require.Equal(t, order.StatusCancelled, updated.Status)
	mockRepo.AssertExpectations(t)
}

func TestOrderService_UpdateStatus_TerminalDetectedAtCommit(t *testing.T) {
	mockRepo, mockUsers, _, svc := newTestStores()

	actor := &user.User{
		ID:    uuid.Must(uuid.NewV4()),
		Email: "manager@digital.store",
		Role:  user.RoleManager,
	}
	existing := &order.Order{
		ID:       uuid.Must(uuid.NewV4()),
		UserID:   uuid.Must(uuid.NewV4()),
		Quantity: 3,
		Status:   order.StatusNew,
	}

	mockRepo.On("GetByID", mock.Anything, existing.ID).Return(existing, nil).Once()
	mockUsers.On("GetByEmail", mock.Anything, actor.Email).Return(actor, nil).Once()
	// A concurrent transition cancelled the order between the pre-read and
	// the write; the repository reports the stored terminal state.
	mockRepo.On("UpdateStatus", mock.Anything, mock.AnythingOfType("*order.Order"), true).
		Return(order.ErrOrderCancelled).
		Once()

	updated, err := svc.UpdateStatus(context.Background(), existing.ID, order.StatusCancelled, actor.Email)

	require.ErrorIs(t, err, order.ErrOrderCancelled)
	require.Nil(t, updated)
	mockRepo.AssertNotCalled(t, "GetViewByID")
	mockRepo.AssertExpectations(t)
}

func TestOrderService_GetByID_NotFound(t *testing.T) {
	mockRepo, _, _, svc := newTestStores()

	orderID := uuid.Must(uuid.NewV4())
	mockRepo.On("GetViewByID", mock.Anything, orderID).Return(nil, order.ErrOrderNotFound).Once()

	found, err := svc.GetByID(context.Background(), orderID)

	require.ErrorIs(t, err, order.ErrOrderNotFound)
	require.Nil(t, found)
	mockRepo.AssertExpectations(t)
}

func TestOrderService_SearchForUser_ScopesFilterToOwner(t *testing.T) {
	mockRepo, _, _, svc := newTestStores()

	userID := uuid.Must(uuid.NewV4())
	status := order.StatusNew

	mockRepo.On("FindByFilter", mock.Anything, mock.MatchedBy(func(f order.Filter) bool {
		return f.UserID != nil && *f.UserID == userID && f.UserEmail == "" && f.Status != nil && *f.Status == status
	})).Return([]order.View{}, nil).Once()

	// The caller-supplied email predicate must not survive owner scoping.
	views, err := svc.SearchForUser(context.Background(), userID, order.Filter{
		UserEmail: "someone-else@example.com",
		Status:    &status,
	})

	require.NoError(t, err)
	require.Empty(t, views)
	mockRepo.AssertExpectations(t)
}

func TestOrderStatus_Terminal(t *testing.T) {
	require.True(t, order.StatusDelivered.Terminal())
	require.True(t, order.StatusCancelled.Terminal())
	require.False(t, order.StatusNew.Terminal())
	require.False(t, order.StatusAccepted.Terminal())
	require.False(t, order.StatusInTransit.Terminal())
}
