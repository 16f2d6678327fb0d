// Copyright (C) 2025 Faultline Labs (oss@faultline.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/faultline-io/faultline/services/simulator/datatypes"
	"github.com/faultline-io/faultline/services/simulator/store"
)

func newBooksRouter(t *testing.T) *gin.Engine {
	t.Helper()
	lib, err := store.Open(store.InMemoryConfig())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = lib.Close() })

	router := gin.New()
	v1 := router.Group("/v1")
	books := v1.Group("/books")
	books.POST("", CreateBook(lib))
	books.GET("", ListBooks(lib))
	books.GET("/:id", GetBook(lib))
	books.PUT("/:id", UpdateBook(lib))
	books.DELETE("/:id", DeleteBook(lib))
	books.POST("/:id/reviews", CreateReview(lib))
	books.GET("/:id/reviews", ListReviews(lib))
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestBookCRUD(t *testing.T) {
	router := newBooksRouter(t)

	w := doJSON(t, router, http.MethodPost, "/v1/books", gin.H{
		"title": "The Phoenix Project", "author": "Gene Kim", "year": 2013,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var book datatypes.Book
	if err := json.Unmarshal(w.Body.Bytes(), &book); err != nil {
		t.Fatalf("decode book: %v", err)
	}
	if book.ID == "" {
		t.Fatal("created book has no id")
	}

	t.Run("get", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/v1/books/"+book.ID, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	})

	t.Run("list", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/v1/books", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		var resp struct {
			Count int `json:"count"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode listing: %v", err)
		}
		if resp.Count != 1 {
			t.Errorf("expected 1 book, got %d", resp.Count)
		}
	})

	t.Run("update", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPut, "/v1/books/"+book.ID, gin.H{
			"title": "The Phoenix Project (revised)", "author": "Gene Kim",
		})
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		var updated datatypes.Book
		if err := json.Unmarshal(w.Body.Bytes(), &updated); err != nil {
			t.Fatalf("decode book: %v", err)
		}
		if updated.Title != "The Phoenix Project (revised)" {
			t.Errorf("title not updated: %q", updated.Title)
		}
	})

	t.Run("delete then 404", func(t *testing.T) {
		w := doJSON(t, router, http.MethodDelete, "/v1/books/"+book.ID, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("delete: expected 200, got %d", w.Code)
		}
		w = doJSON(t, router, http.MethodGet, "/v1/books/"+book.ID, nil)
		if w.Code != http.StatusNotFound {
			t.Fatalf("expected 404 after delete, got %d", w.Code)
		}
	})
}

func TestBookValidation(t *testing.T) {
	router := newBooksRouter(t)

	t.Run("missing author", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/v1/books", gin.H{"title": "No Author"})
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})

	t.Run("rating out of range", func(t *testing.T) {
		created := doJSON(t, router, http.MethodPost, "/v1/books", gin.H{
			"title": "Rated", "author": "Someone",
		})
		var book datatypes.Book
		if err := json.Unmarshal(created.Body.Bytes(), &book); err != nil {
			t.Fatalf("decode book: %v", err)
		}
		w := doJSON(t, router, http.MethodPost, "/v1/books/"+book.ID+"/reviews", gin.H{
			"rating": 9,
		})
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})
}

func TestReviews(t *testing.T) {
	router := newBooksRouter(t)

	created := doJSON(t, router, http.MethodPost, "/v1/books", gin.H{
		"title": "Reviewed", "author": "Author",
	})
	var book datatypes.Book
	if err := json.Unmarshal(created.Body.Bytes(), &book); err != nil {
		t.Fatalf("decode book: %v", err)
	}

	t.Run("review for a missing book returns 404", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/v1/books/missing/reviews", gin.H{"rating": 4})
		if w.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", w.Code)
		}
	})

	t.Run("create and list", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/v1/books/"+book.ID+"/reviews", gin.H{
			"rating": 5, "comment": "excellent",
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
		}

		w = doJSON(t, router, http.MethodGet, "/v1/books/"+book.ID+"/reviews", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		var resp struct {
			Count int `json:"count"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode listing: %v", err)
		}
		if resp.Count != 1 {
			t.Errorf("expected 1 review, got %d", resp.Count)
		}
	})
}
