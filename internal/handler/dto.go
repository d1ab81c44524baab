package handler

import (
	"github.com/msomdec/library-api/internal/domain"
)

// UserDTO is the JSON representation of a registered user.
type UserDTO struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func toUserDTO(u *domain.User) UserDTO {
	return UserDTO{
		ID:       u.ID.String(),
		Username: u.Username,
		Email:    u.Email,
	}
}

// BookDTO is the JSON representation of a book. Status is the ordinal
// (0 available, 1 borrowed) and UserID is null unless the book is on loan.
type BookDTO struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Author string  `json:"author"`
	Genre  string  `json:"genre"`
	Status int     `json:"status"`
	UserID *string `json:"userId"`
}

func toBookDTO(b *domain.Book) BookDTO {
	dto := BookDTO{
		ID:     b.ID.String(),
		Title:  b.Title,
		Author: b.Author,
		Genre:  b.Genre,
		Status: int(b.Status),
	}
	if b.HolderID != nil {
		holder := b.HolderID.String()
		dto.UserID = &holder
	}
	return dto
}

func toBookDTOs(books []domain.Book) []BookDTO {
	dtos := make([]BookDTO, len(books))
	for i := range books {
		dtos[i] = toBookDTO(&books[i])
	}
	return dtos
}

type credentialsRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type bookRequest struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Genre  string `json:"genre"`
}
