package catalog_test

import (
	"context"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/digitalstore/internal/catalog"
)

type MockCatalogRepository struct {
	mock.Mock
}

func (m *MockCatalogRepository) CreateCategory(ctx context.Context, c *catalog.Category) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockCatalogRepository) GetCategoryByID(ctx context.Context, id uuid.UUID) (*catalog.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Category), args.Error(1)
}

func (m *MockCatalogRepository) CategoryExistsByName(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

func (m *MockCatalogRepository) UpdateCategory(ctx context.Context, c *catalog.Category) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockCatalogRepository) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCatalogRepository) FindCategories(ctx context.Context, namePart string) ([]catalog.Category, error) {
	args := m.Called(ctx, namePart)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Category), args.Error(1)
}

func (m *MockCatalogRepository) CreateProduct(ctx context.Context, p *catalog.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockCatalogRepository) GetProductByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockCatalogRepository) GetProductViewByID(ctx context.Context, id uuid.UUID) (*catalog.ProductView, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.ProductView), args.Error(1)
}

func (m *MockCatalogRepository) ProductExistsByName(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

func (m *MockCatalogRepository) UpdateProduct(ctx context.Context, p *catalog.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockCatalogRepository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCatalogRepository) FindProducts(ctx context.Context, f catalog.ProductFilter) ([]catalog.ProductView, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.ProductView), args.Error(1)
}

func TestCatalogService_CreateCategory_Success(t *testing.T) {
	mockRepo := new(MockCatalogRepository)
	catalogService := catalog.NewService(mockRepo)

	mockRepo.On("CategoryExistsByName", mock.Anything, "Smartphones").Return(false, nil).Once()
	mockRepo.On("CreateCategory", mock.Anything, mock.MatchedBy(func(c *catalog.Category) bool {
		return c.Name == "Smartphones" && c.ID != uuid.Nil
	})).Return(nil).Once()

	created, err := catalogService.CreateCategory(context.Background(), catalog.CategoryInput{
		Name:        "Smartphones",
		Description: "Phones and accessories",
	})

	require.NoError(t, err)
	require.Equal(t, "Smartphones", created.Name)
	mockRepo.AssertExpectations(t)
}

func TestCatalogService_CreateCategory_NameExists(t *testing.T) {
	mockRepo := new(MockCatalogRepository)
	catalogService := catalog.NewService(mockRepo)

	mockRepo.On("CategoryExistsByName", mock.Anything, "Smartphones").Return(true, nil).Once()

	created, err := catalogService.CreateCategory(context.Background(), catalog.CategoryInput{Name: "Smartphones"})

	require.ErrorIs(t, err, catalog.ErrCategoryExists)
	require.Nil(t, created)
	mockRepo.AssertNotCalled(t, "CreateCategory")
}

func TestCatalogService_UpdateCategory_SameNameDoesNotConflict(t *testing.T) {
	mockRepo := new(MockCatalogRepository)
	catalogService := catalog.NewService(mockRepo)

	categoryID := uuid.Must(uuid.NewV4())
	existing := &catalog.Category{ID: categoryID, Name: "Smartphones", Description: "old"}

	mockRepo.On("GetCategoryByID", mock.Anything, categoryID).Return(existing, nil).Once()
	mockRepo.On("UpdateCategory", mock.Anything, mock.MatchedBy(func(c *catalog.Category) bool {
		return c.Description == "new"
	})).Return(nil).Once()

	updated, err := catalogService.UpdateCategory(context.Background(), categoryID, catalog.CategoryInput{
		Name:        "Smartphones",
		Description: "new",
	})

	require.NoError(t, err)
	require.Equal(t, "new", updated.Description)
	mockRepo.AssertNotCalled(t, "CategoryExistsByName")
	mockRepo.AssertExpectations(t)
}

func TestCatalogService_UpdateCategory_NewNameTaken(t *testing.T) {
	mockRepo := new(MockCatalogRepository)
	catalogService := catalog.NewService(mockRepo)

	categoryID := uuid.Must(uuid.NewV4())
	existing := &catalog.Category{ID: categoryID, Name: "Smartphones"}

	mockRepo.On("GetCategoryByID", mock.Anything, categoryID).Return(existing, nil).Once()
	mockRepo.On("CategoryExistsByName", mock.Anything, "Laptops").Return(true, nil).Once()

	updated, err := catalogService.UpdateCategory(context.Background(), categoryID, catalog.CategoryInput{Name: "Laptops"})

	require.ErrorIs(t, err, catalog.ErrCategoryExists)
	require.Nil(t, updated)
	mockRepo.AssertNotCalled(t, "UpdateCategory")
}

func TestCatalogService_CreateProduct_Success(t *testing.T) {
	mockRepo := new(MockCatalogRepository)
	catalogService := catalog.NewService(mockRepo)

	category := &catalog.Category{ID: uuid.Must(uuid.NewV4()), Name: "Smartphones"}

	mockRepo.On("ProductExistsByName", mock.Anything, "Pixel 9").Return(false, nil).Once()
	mockRepo.On("GetCategoryByID", mock.Anything, category.ID).Return(category, nil).Once()
	mockRepo.On("CreateProduct", mock.Anything, mock.MatchedBy(func(p *catalog.Product) bool {
		return p.Name == "Pixel 9" && p.CategoryID == category.ID
	})).Return(nil).Once()

	created, err := catalogService.CreateProduct(context.Background(), catalog.ProductInput{
		Name:       "Pixel 9",
		Brand:      "Google",
		CategoryID: category.ID,
		Price:      decimal.NewFromFloat(799.99),
		Quantity:   10,
	})

	require.NoError(t, err)
	require.Equal(t, "Pixel 9", created.Name)
	require.Equal(t, "Smartphones", created.CategoryName)
	mockRepo.AssertExpectations(t)
}

func TestCatalogService_CreateProduct_NegativePrice(t *testing.T) {
	mockRepo := new(MockCatalogRepository)
	catalogService := catalog.NewService(mockRepo)

	created, err := catalogService.CreateProduct(context.Background(), catalog.ProductInput{
		Name:       "Pixel 9",
		CategoryID: uuid.Must(uuid.NewV4()),
		Price:      decimal.NewFromInt(-1),
	})

	require.ErrorIs(t, err, catalog.ErrNegativePrice)
	require.Nil(t, created)
	mockRepo.AssertNotCalled(t, "CreateProduct")
}

func TestCatalogService_CreateProduct_ZeroPriceAllowed(t *testing.T) {
	mockRepo := new(MockCatalogRepository)
	catalogService := catalog.NewService(mockRepo)

	category := &catalog.Category{ID: uuid.Must(uuid.NewV4()), Name: "Promo"}

	mockRepo.On("ProductExistsByName", mock.Anything, "Sticker pack").Return(false, nil).Once()
	mockRepo.On("GetCategoryByID", mock.Anything, category.ID).Return(category, nil).Once()
	mockRepo.On("CreateProduct", mock.Anything, mock.AnythingOfType("*catalog.Product")).Return(nil).Once()

	created, err := catalogService.CreateProduct(context.Background(), catalog.ProductInput{
		Name:       "Sticker pack",
		CategoryID: category.ID,
		Price:      decimal.Zero,
		Quantity:   100,
	})

	require.NoError(t, err)
	require.True(t, created.Price.IsZero())
	mockRepo.AssertExpectations(t)
}

func TestCatalogService_CreateProduct_CategoryNotFound(t *testing.T) {
	mockRepo := new(MockCatalogRepository)
	catalogService := catalog.NewService(mockRepo)

	categoryID := uuid.Must(uuid.NewV4())

	mockRepo.On("ProductExistsByName", mock.Anything, "Pixel 9").Return(false, nil).Once()
	mockRepo.On("GetCategoryByID", mock.Anything, categoryID).Return(nil, catalog.ErrCategoryNotFound).Once()

	created, err := catalogService.CreateProduct(context.Background(), catalog.ProductInput{
		Name:       "Pixel 9",
		CategoryID: categoryID,
		Price:      decimal.NewFromInt(1),
	})

	require.ErrorIs(t, err, catalog.ErrCategoryNotFound)
	require.Nil(t, created)
	mockRepo.AssertNotCalled(t, "CreateProduct")
}

func TestCatalogService_CreateProduct_NameExists(t *testing.T) {
	mockRepo := new(MockCatalogRepository)
	catalogService := catalog.NewService(mockRepo)

	mockRepo.On("ProductExistsByName", mock.Anything, "Pixel 9").Return(true, nil).Once()

	created, err := catalogService.CreateProduct(context.Background(), catalog.ProductInput{
		Name:       "Pixel 9",
		CategoryID: uuid.Must(uuid.NewV4()),
		Price:      decimal.NewFromInt(1),
	})

	require.ErrorIs(t, err, catalog.ErrProductNameExists)
	require.Nil(t, created)
	mockRepo.AssertNotCalled(t, "CreateProduct")
}

func TestCatalogService_UpdateProduct_CaseOnlyRenameDoesNotConflict(t *testing.T) {
	mockRepo := new(MockCatalogRepository)
	catalogService := catalog.NewService(mockRepo)

	category := &catalog.Category{ID: uuid.Must(uuid.NewV4()), Name: "Smartphones"}
	productID := uuid.Must(uuid.NewV4())
	existing := &catalog.Product{
		ID:         productID,
		Name:       "pixel 9",
		Brand:      "Google",
		CategoryID: category.ID,
		Price:      decimal.NewFromFloat(799.99),
		Quantity:   10,
	}

	mockRepo.On("GetProductByID", mock.Anything, productID).Return(existing, nil).Once()
	mockRepo.On("GetCategoryByID", mock.Anything, category.ID).Return(category, nil).Once()
	mockRepo.On("UpdateProduct", mock.Anything, mock.MatchedBy(func(p *catalog.Product) bool {
		return p.Name == "Pixel 9"
	})).Return(nil).Once()

	// Uniqueness is case-insensitive, so "pixel 9" -> "Pixel 9" is the same
	// record and must skip the collision check.
	updated, err := catalogService.UpdateProduct(context.Background(), productID, catalog.ProductInput{
		Name:       "Pixel 9",
		Brand:      "Google",
		CategoryID: category.ID,
		Price:      decimal.NewFromFloat(799.99),
		Quantity:   10,
	})

	require.NoError(t, err)
	require.Equal(t, "Pixel 9", updated.Name)
	mockRepo.AssertNotCalled(t, "ProductExistsByName")
	mockRepo.AssertExpectations(t)
}

func TestCatalogService_UpdateProduct_NewNameTaken(t *testing.T) {
	mockRepo := new(MockCatalogRepository)
	catalogService := catalog.NewService(mockRepo)

	productID := uuid.Must(uuid.NewV4())
	existing := &catalog.Product{
		ID:    productID,
		Name:  "Pixel 9",
		Price: decimal.NewFromInt(1),
	}

	mockRepo.On("GetProductByID", mock.Anything, productID).Return(existing, nil).Once()
	mockRepo.On("ProductExistsByName", mock.Anything, "Galaxy S25").Return(true, nil).Once()

	updated, err := catalogService.UpdateProduct(context.Background(), productID, catalog.ProductInput{
		Name:       "Galaxy S25",
		CategoryID: uuid.Must(uuid.NewV4()),
		Price:      decimal.NewFromInt(1),
	})

	require.ErrorIs(t, err, catalog.ErrProductNameExists)
	require.Nil(t, updated)
	mockRepo.AssertNotCalled(t, "UpdateProduct")
}

func TestCatalogService_DeleteProduct_NotFound(t *testing.T) {
	mockRepo := new(MockCatalogRepository)
	catalogService := catalog.NewService(mockRepo)

	productID := uuid.Must(uuid.NewV4())
	mockRepo.On("DeleteProduct", mock.Anything, productID).Return(catalog.ErrProductNotFound).Once()

	err := catalogService.DeleteProduct(context.Background(), productID)

	require.ErrorIs(t, err, catalog.ErrProductNotFound)
	mockRepo.AssertExpectations(t)
}

func TestCatalogService_SearchProducts_TrimsFilterStrings(t *testing.T) {
	mockRepo := new(MockCatalogRepository)
	catalogService := catalog.NewService(mockRepo)

	mockRepo.On("FindProducts", mock.Anything, mock.MatchedBy(func(f catalog.ProductFilter) bool {
		return f.Name == "pixel" && f.Brand == "Google"
	})).Return([]catalog.ProductView{}, nil).Once()

	views, err := catalogService.SearchProducts(context.Background(), catalog.ProductFilter{
		Name:  "  pixel ",
		Brand: " Google ",
	})

	require.NoError(t, err)
	require.Empty(t, views)
	mockRepo.AssertExpectations(t)
}
