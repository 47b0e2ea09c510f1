//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestListProducts_Pagination(t *testing.T) {
	resp := doGet(t, "/api/products?page=1", "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	list := decodeJSON[productListResponse](t, resp)
	if list.Status != 200 {
		t.Errorf("body status: got %d, want 200", list.Status)
	}
	if list.Page != 1 || list.Pages != 2 {
		t.Errorf("pagination: got page %d of %d, want 1 of 2", list.Page, list.Pages)
	}
	if len(list.Products) != 2 {
		t.Fatalf("expected 2 products on page, got %d", len(list.Products))
	}
}

func TestListProducts_PageClamping(t *testing.T) {
	// Past-the-end pages clamp to the last page instead of erroring.
	resp := doGet(t, "/api/products?page=99", "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	list := decodeJSON[productListResponse](t, resp)
	if list.Page != 2 {
		t.Errorf("page: got %d, want 2 (clamped to last)", list.Page)
	}

	// Zero and negative pages clamp to the first.
	resp = doGet(t, "/api/products?page=-3", "")
	defer resp.Body.Close()

	list = decodeJSON[productListResponse](t, resp)
	if list.Page != 1 {
		t.Errorf("page: got %d, want 1 (clamped to first)", list.Page)
	}
}

func TestProductBySlug(t *testing.T) {
	resp := doGet(t, "/api/products/nimbus-x1-phone", "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	// Bare product object, no envelope.
	p := decodeJSON[productResponse](t, resp)
	if p.Title != "Nimbus X1 Phone" {
		t.Errorf("title: got %q", p.Title)
	}
	if p.Category.Slug != "phones" {
		t.Errorf("category slug: got %q, want phones", p.Category.Slug)
	}
	if p.Rating != nil {
		t.Errorf("rating: got %v, want null before any review", *p.Rating)
	}
	if len(p.ProductImage) == 0 {
		t.Error("expected at least one product image")
	}
	if !p.InStock {
		t.Error("expected product in stock")
	}
}

func TestProductBySlug_NotFound(t *testing.T) {
	resp := doGet(t, "/api/products/no-such-slug", "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	body := decodeJSON[detailResponse](t, resp)
	if body.Status != 404 {
		t.Errorf("body status: got %d, want 404", body.Status)
	}
}

func TestTopProducts_EmptyWithoutReviews(t *testing.T) {
	resp := doGet(t, "/api/products/top", "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestCategories_TopLevel(t *testing.T) {
	resp := doGet(t, "/api/categories", "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	// Bare array of roots, no envelope.
	categories := decodeJSON[[]categoryResponse](t, resp)
	if len(categories) != 2 {
		t.Fatalf("expected 2 root categories, got %d", len(categories))
	}
	// Only roots: subcategories like phones must not appear here.
	for _, c := range categories {
		if c.Slug == "phones" || c.Slug == "headphones" {
			t.Errorf("subcategory %q leaked into top-level listing", c.Slug)
		}
	}
}

func TestCategoryBySlug_IncludesDescendants(t *testing.T) {
	// The electronics subtree holds the phone, the laptop, and the earbuds
	// (nested two levels down under audio/headphones).
	resp := doGet(t, "/api/categories/electronics", "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	products := decodeJSON[[]productResponse](t, resp)
	if len(products) != 3 {
		t.Fatalf("expected 3 products in electronics subtree, got %d", len(products))
	}

	slugs := make(map[string]bool)
	for _, p := range products {
		slugs[p.Slug] = true
	}
	if !slugs["echo-buds"] {
		t.Error("deeply nested product echo-buds missing from subtree listing")
	}
	if slugs["trail-runner-shoes"] {
		t.Error("product from a different subtree leaked into electronics")
	}
}

func TestCategoryBySlug_UnderscoreSlugDoesNotOverMatch(t *testing.T) {
	// "e_bikes" and "exbikes" are siblings with same-length slugs. A prefix
	// match that treated _ as a single-character wildcard would pull the
	// exbikes product into the e_bikes listing.
	resp := doGet(t, "/api/categories/e_bikes", "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if products := decodeJSON[[]productResponse](t, resp); len(products) != 0 {
		t.Errorf("e_bikes listing: got %d products, want 0", len(products))
	}

	resp2 := doGet(t, "/api/categories/exbikes", "")
	defer resp2.Body.Close()
	products := decodeJSON[[]productResponse](t, resp2)
	if len(products) != 1 || products[0].Slug != "city-cruiser-ebike" {
		t.Fatalf("exbikes listing: got %+v, want city-cruiser-ebike", products)
	}
}

func TestCategoryBySlug_NotFound(t *testing.T) {
	resp := doGet(t, "/api/categories/no-such-category", "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestCreateReview_UpdatesAggregates(t *testing.T) {
	reviewer := signToken(t, "reviewer-1", "Review Author", false)

	resp := doJSON(t, http.MethodGet, "/api/products/trail-runner-shoes", nil, "")
	product := decodeJSON[productResponse](t, resp)
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, "/api/products/"+product.ID+"/reviews", map[string]any{
		"rating":  "4",
		"comment": "Great grip",
	}, reviewer)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	// Aggregates recomputed: one review, rating equals its value.
	resp2 := doGet(t, "/api/products/trail-runner-shoes", "")
	defer resp2.Body.Close()
	updated := decodeJSON[productResponse](t, resp2)

	if updated.NumReviews != 1 {
		t.Errorf("num_reviews: got %d, want 1", updated.NumReviews)
	}
	if updated.Rating == nil || *updated.Rating != "4" {
		t.Errorf("rating: got %v, want 4", updated.Rating)
	}
	if len(updated.Reviews) != 1 || updated.Reviews[0].Name != "Review Author" {
		t.Errorf("reviews: got %+v", updated.Reviews)
	}

	// Second review by the same user is rejected.
	resp3 := doJSON(t, http.MethodPost, "/api/products/"+product.ID+"/reviews", map[string]any{
		"rating": "5",
	}, reviewer)
	defer resp3.Body.Close()

	if resp3.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 on duplicate review, got %d", resp3.StatusCode)
	}
	body := decodeJSON[detailResponse](t, resp3)
	if body.Detail != "Product review has already been submitted!" {
		t.Errorf("detail: got %q", body.Detail)
	}
}

func TestCreateReview_RequiresAuth(t *testing.T) {
	resp := doJSON(t, http.MethodPost, "/api/products/any/reviews", map[string]any{
		"rating": "5",
	}, "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}
