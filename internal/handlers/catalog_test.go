package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/testutil"
)

func TestCatalog_ProductsAndCategories(t *testing.T) {
	env := newTestEnv(t)
	h := &CatalogHTTP{Svc: env.catalog}
	cat := testutil.CreateCategory(t, env.db, "Games", "games")
	testutil.CreateProduct(t, env.db, cat.ID, "Chess", "chess", "99.90", true)
	testutil.CreateProduct(t, env.db, cat.ID, "Old", "old", "1.00", false)

	c, rec := env.request(http.MethodGet, "/api/v1/categories", nil, nil, 0)
	require.NoError(t, h.Categories(c))
	assert.Contains(t, rec.Body.String(), `"slug":"games"`)

	c, rec = env.request(http.MethodGet, "/api/v1/products?category=games", nil, nil, 0)
	require.NoError(t, h.Products(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var page service.ProductPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.EqualValues(t, 1, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Chess", page.Items[0].Name)

	c, _ = env.request(http.MethodGet, "/api/v1/products?category=nope", nil, nil, 0)
	assert.Equal(t, http.StatusNotFound, statusOf(t, h.Products(c)))
}

func TestCatalog_ProductDetail(t *testing.T) {
	env := newTestEnv(t)
	h := &CatalogHTTP{Svc: env.catalog}

	detail := func(id uint, slug string) (int, error) {
		c, rec := env.request(http.MethodGet, "/", nil, nil, 0)
		c.SetParamNames("id", "slug")
		c.SetParamValues(strconv.FormatUint(uint64(id), 10), slug)
		err := h.Product(c)
		return rec.Code, err
	}

	code, err := detail(env.a.ID, "a")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)

	_, err = detail(env.a.ID, "wrong-slug")
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))
}

func TestCatalog_SearchFallsBackToDatabase(t *testing.T) {
	env := newTestEnv(t)
	h := &CatalogHTTP{Svc: env.catalog}

	c, rec := env.request(http.MethodGet, "/api/v1/products/search?q=b", nil, nil, 0)
	require.NoError(t, h.Search(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var page service.ProductPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, "B", page.Items[0].Name)

	c, _ = env.request(http.MethodGet, "/api/v1/products/search?q=", nil, nil, 0)
	assert.Equal(t, http.StatusBadRequest, statusOf(t, h.Search(c)))
}
