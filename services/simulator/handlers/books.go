// Copyright (C) 2025 Faultline Labs (oss@faultline.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/faultline-io/faultline/services/simulator/datatypes"
	"github.com/faultline-io/faultline/services/simulator/store"
)

// replyStoreError maps store errors to HTTP.
func replyStoreError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, datatypes.ErrorResponse{Error: "not found"})
		return
	}
	slog.Error("store operation failed", "error", err)
	c.JSON(http.StatusInternalServerError, datatypes.ErrorResponse{Error: "storage failure"})
}

// CreateBook handles POST /v1/books.
func CreateBook(lib *store.Library) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.BookRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			replyBindError(c, err)
			return
		}
		book, err := lib.CreateBook(req)
		if err != nil {
			replyStoreError(c, err)
			return
		}
		c.JSON(http.StatusCreated, book)
	}
}

// ListBooks handles GET /v1/books.
func ListBooks(lib *store.Library) gin.HandlerFunc {
	return func(c *gin.Context) {
		books, err := lib.ListBooks()
		if err != nil {
			replyStoreError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"books": books, "count": len(books)})
	}
}

// GetBook handles GET /v1/books/:id.
func GetBook(lib *store.Library) gin.HandlerFunc {
	return func(c *gin.Context) {
		book, err := lib.GetBook(c.Param("id"))
		if err != nil {
			replyStoreError(c, err)
			return
		}
		c.JSON(http.StatusOK, book)
	}
}

// UpdateBook handles PUT /v1/books/:id.
func UpdateBook(lib *store.Library) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.BookRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			replyBindError(c, err)
			return
		}
		book, err := lib.UpdateBook(c.Param("id"), req)
		if err != nil {
			replyStoreError(c, err)
			return
		}
		c.JSON(http.StatusOK, book)
	}
}

// DeleteBook handles DELETE /v1/books/:id. Reviews go with the book.
func DeleteBook(lib *store.Library) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := lib.DeleteBook(id); err != nil {
			replyStoreError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "deleted", "id": id})
	}
}

// CreateReview handles POST /v1/books/:id/reviews.
func CreateReview(lib *store.Library) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.ReviewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			replyBindError(c, err)
			return
		}
		review, err := lib.CreateReview(c.Param("id"), req)
		if err != nil {
			replyStoreError(c, err)
			return
		}
		c.JSON(http.StatusCreated, review)
	}
}

// ListReviews handles GET /v1/books/:id/reviews.
func ListReviews(lib *store.Library) gin.HandlerFunc {
	return func(c *gin.Context) {
		reviews, err := lib.ListReviews(c.Param("id"))
		if err != nil {
			replyStoreError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"reviews": reviews, "count": len(reviews)})
	}
}
