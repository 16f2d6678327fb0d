// Copyright (C) 2025 Faultline Labs (oss@faultline.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

// Book is a library record. The book/review CRUD endpoints are the normal
// workload whose telemetry the injected faults decorate.
type Book struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Year      int    `json:"year,omitempty"`
	Genre     string `json:"genre,omitempty"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// Review is a reader review attached to a book.
type Review struct {
	ID        string `json:"id"`
	BookID    string `json:"book_id"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

// BookRequest creates or updates a book.
type BookRequest struct {
	Title  string `json:"title" binding:"required,max=256"`
	Author string `json:"author" binding:"required,max=128"`
	Year   int    `json:"year" binding:"omitempty,min=0,max=2100"`
	Genre  string `json:"genre" binding:"omitempty,max=64"`
}

// ReviewRequest creates a review for a book.
type ReviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment" binding:"omitempty,max=2048"`
}
