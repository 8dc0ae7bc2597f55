package main

import (
	"eng_portal/internal/auth"
	"eng_portal/internal/form"
	"eng_portal/internal/portal"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	Surname   string `json:"surname"`
}

type sessionInfo struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	Surname   string `json:"surname"`
	Initials  string `json:"initials"`
}

func newSessionInfo(s auth.Session) sessionInfo {
	return sessionInfo{
		Email:     s.Email,
		FirstName: s.FirstName,
		Surname:   s.Surname,
		Initials:  s.Initials(),
	}
}

type navResponse struct {
	Active portal.View      `json:"active"`
	Header portal.Header    `json:"header"`
	Menu   []portal.NavItem `json:"menu"`
	User   sessionInfo      `json:"user"`
}

type messageResponse struct {
	Message string       `json:"message"`
	Nav     *navResponse `json:"nav,omitempty"`
}

type confirmResponse struct {
	Prompt string `json:"prompt"`
}

type attachmentResponse struct {
	URL string `json:"url"`
}

type enumResponse struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

type editResponse[T any] struct {
	Nav  navResponse   `json:"nav"`
	Form form.State[T] `json:"form"`
}
