package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ebasak22/Fitness/internal/domain"
	"github.com/ebasak22/Fitness/internal/http/handler"
	"github.com/ebasak22/Fitness/internal/member"
	"github.com/ebasak22/Fitness/internal/payment"
)

type noopGateway struct{}

func (noopGateway) OpenCheckout(ctx context.Context, opts payment.CheckoutOptions) (payment.CheckoutResult, error) {
	return payment.CheckoutResult{PaymentID: "pay_test_1"}, nil
}

// sessionStub injects a fixed session, standing in for the auth middleware.
func sessionStub(sess domain.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("memberSession", sess)
		c.Next()
	}
}

func newShopRouter(t *testing.T) (*gin.Engine, *memoryDocs) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	docs := &memoryDocs{docs: make(map[string][]byte)}
	node, err := snowflake.NewNode(4)
	require.NoError(t, err)
	svc := member.NewService(docs, noopGateway{}, node, zap.NewNop())

	sess := domain.Session{Phone: "+919876543210", UID: "uid-1"}
	shopping := handler.NewShoppingHandler(svc, zap.NewNop())
	addresses := handler.NewAddressHandler(svc, zap.NewNop())

	r := gin.New()
	memberGroup := r.Group("/member")
	memberGroup.GET("/products", shopping.Products)
	authed := memberGroup.Group("", sessionStub(sess))
	{
		authed.GET("/cart", shopping.Cart)
		authed.POST("/cart/items", shopping.AddToCart)
		authed.GET("/addresses", addresses.List)
		authed.POST("/addresses", addresses.Add)
		authed.DELETE("/addresses/:id", addresses.Delete)
	}
	return r, docs
}

func seedProducts(t *testing.T, docs *memoryDocs) {
	t.Helper()
	require.NoError(t, docs.Set(context.Background(), "products", map[string]any{
		"products": []member.Product{
			{ID: "p1", Name: "Whey Protein", Price: 2499, Category: "supplements"},
			{ID: "p2", Name: "Resistance Bands", Price: 599, Category: "equipment"},
		},
	}, false))
}

func TestProductsEndpoint(t *testing.T) {
	r, docs := newShopRouter(t)
	seedProducts(t, docs)

	req := httptest.NewRequest(http.MethodGet, "/member/products?category=supplements", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Products []member.Product `json:"products"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Products, 1)
	require.Equal(t, "p1", body.Products[0].ID)
}

func TestCartEndpoints(t *testing.T) {
	r, docs := newShopRouter(t)
	seedProducts(t, docs)

	w := postJSON(t, r, "/member/cart/items", `{"product_id":"p2"}`)
	require.Equal(t, http.StatusOK, w.Code)
	w = postJSON(t, r, "/member/cart/items", `{"product_id":"p2"}`)
	require.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/member/cart", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Items []member.CartItem `json:"items"`
		Count int               `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 2, body.Count)
	require.Len(t, body.Items, 1)
}

func TestAddToCartEndpointUnknownProduct(t *testing.T) {
	r, docs := newShopRouter(t)
	seedProducts(t, docs)

	w := postJSON(t, r, "/member/cart/items", `{"product_id":"p99"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAddressEndpoints(t *testing.T) {
	r, _ := newShopRouter(t)

	w := postJSON(t, r, "/member/addresses", `{
		"type": "work",
		"name": "Asha Rao",
		"address": "1 Tech Park",
		"locality": "Whitefield",
		"city": "Bengaluru",
		"state": "karnataka",
		"pincode": "560066"
	}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var created member.Address
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)

	req := httptest.NewRequest(http.MethodGet, "/member/addresses", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var list struct {
		Addresses []member.Address `json:"addresses"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Addresses, 1)

	del := httptest.NewRequest(http.MethodDelete, "/member/addresses/"+created.ID, nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, del)
	require.Equal(t, http.StatusNoContent, rec.Code)

	del = httptest.NewRequest(http.MethodDelete, "/member/addresses/"+created.ID, nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, del)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddressEndpointRejectsBadPincode(t *testing.T) {
	r, _ := newShopRouter(t)

	w := postJSON(t, r, "/member/addresses", `{
		"name": "Asha Rao",
		"address": "1 Tech Park",
		"locality": "Whitefield",
		"city": "Bengaluru",
		"state": "karnataka",
		"pincode": "56"
	}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
